package app

import (
	"net/http"
	"time"

	"github.com/bryan-kier/productivity/internal/auth"
	"github.com/bryan-kier/productivity/internal/cache"
	"github.com/bryan-kier/productivity/internal/config"
	"github.com/bryan-kier/productivity/internal/handlers"
	"github.com/bryan-kier/productivity/internal/middleware"
	"github.com/bryan-kier/productivity/internal/repo"
	"github.com/bryan-kier/productivity/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes need. Lists may be nil.
type Deps struct {
	Store       repo.Store
	Lists       *cache.ListCache
	Verifier    auth.Verifier
	Maintenance *service.MaintenanceService
	Log         *zap.Logger
	Started     time.Time
}

func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.HTTP.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, d)
	return r
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, d Deps) {
	health := handlers.NewHealthHandler(d.Store, d.Started)
	r.GET("/", rootHandler(cfg))
	r.GET("/health", health.Health)
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	api := r.Group("/api")

	maintenance := handlers.NewMaintenanceHandler(d.Maintenance, d.Log)
	registerCronRoutes(api.Group("/cron", auth.RequireCronSecret(cfg.Auth.CronSecret)), maintenance)

	protected := api.Group("", auth.RequireBearer(d.Verifier))

	categories := handlers.NewCategoryHandler(service.NewCategoryService(d.Store, d.Lists, d.Log))
	registerCategoryRoutes(protected, categories)

	tasks := handlers.NewTaskHandler(service.NewTaskService(d.Store, d.Lists, d.Log))
	registerTaskRoutes(protected, tasks, maintenance)

	notes := handlers.NewNoteHandler(service.NewNoteService(d.Store, d.Lists, d.Log))
	registerNoteRoutes(protected, notes)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Taskflow API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api",
		})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerCategoryRoutes(api *gin.RouterGroup, h *handlers.CategoryHandler) {
	api.GET("/categories", h.List)
	api.POST("/categories", h.Create)
	api.PATCH("/categories/:id", h.Update)
	api.DELETE("/categories/:id", h.Delete)
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler, m *handlers.MaintenanceHandler) {
	api.GET("/tasks", h.List)
	api.POST("/tasks", h.Create)
	api.PATCH("/tasks/reorder", h.Reorder)
	api.POST("/tasks/refresh/daily", m.RefreshDaily)
	api.POST("/tasks/refresh/weekly", m.RefreshWeekly)
	api.POST("/tasks/cleanup/completed", m.CleanupCompleted)
	api.GET("/tasks/:id", h.Get)
	api.PATCH("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.GET("/tasks/:id/subtasks", h.ListSubtasks)

	api.POST("/subtasks", h.CreateSubtask)
	api.PATCH("/subtasks/:id", h.UpdateSubtask)
	api.DELETE("/subtasks/:id", h.DeleteSubtask)
}

func registerNoteRoutes(api *gin.RouterGroup, h *handlers.NoteHandler) {
	api.GET("/notes", h.List)
	api.POST("/notes", h.Create)
	api.PATCH("/notes/reorder", h.Reorder)
	api.PATCH("/notes/:id", h.Update)
	api.DELETE("/notes/:id", h.Delete)
	api.GET("/announcement", h.GetAnnouncement)
	api.PUT("/announcement", h.PutAnnouncement)
}

func registerCronRoutes(api *gin.RouterGroup, h *handlers.MaintenanceHandler) {
	api.GET("/daily", h.CronDaily)
	api.POST("/daily", h.CronDaily)
	api.GET("/weekly", h.CronWeekly)
	api.POST("/weekly", h.CronWeekly)
}
