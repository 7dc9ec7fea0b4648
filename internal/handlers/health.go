package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bryan-kier/productivity/internal/dto"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	started time.Time
}

func NewHealthHandler(db Pinger, started time.Time) *HealthHandler {
	return &HealthHandler{db: db, started: started}
}

// Health godoc
// @Summary      Liveness and database connectivity
// @Tags         system
// @Produce      json
// @Success      200  {object}  dto.HealthResponse
// @Failure      503  {object}  dto.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	now := time.Now()
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.started).Seconds(),
		Database:  dto.DatabaseHealth{Connected: true, Status: "healthy"},
	}
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "error"
		resp.Database = dto.DatabaseHealth{Connected: false, Status: "unhealthy", Error: err.Error()}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
