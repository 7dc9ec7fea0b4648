package handlers

import (
	"net/http"
	"time"

	"github.com/bryan-kier/productivity/internal/dto"
	"github.com/bryan-kier/productivity/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaintenanceHandler serves the manual refresh/cleanup routes for the
// signed-in owner and the cron entry points for every owner.
type MaintenanceHandler struct {
	svc *service.MaintenanceService
	log *zap.Logger
}

func NewMaintenanceHandler(svc *service.MaintenanceService, log *zap.Logger) *MaintenanceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaintenanceHandler{svc: svc, log: log}
}

// RefreshDaily godoc
// @Summary      Reset the caller's daily tasks
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MessageResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/refresh/daily [post]
func (h *MaintenanceHandler) RefreshDaily(c *gin.Context) {
	if _, err := h.svc.ResetDaily(c.Request.Context(), owner(c)); err != nil {
		writeError(c, "refresh daily tasks", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Daily tasks refreshed"})
}

// RefreshWeekly godoc
// @Summary      Reset the caller's weekly tasks
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MessageResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/refresh/weekly [post]
func (h *MaintenanceHandler) RefreshWeekly(c *gin.Context) {
	if _, err := h.svc.ResetWeekly(c.Request.Context(), owner(c)); err != nil {
		writeError(c, "refresh weekly tasks", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Weekly tasks refreshed"})
}

// CleanupCompleted godoc
// @Summary      Purge the caller's old completed tasks and subtasks
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MessageResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/cleanup/completed [post]
func (h *MaintenanceHandler) CleanupCompleted(c *gin.Context) {
	if _, err := h.svc.PurgeCompleted(c.Request.Context(), owner(c)); err != nil {
		writeError(c, "delete old completed tasks", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Old completed tasks deleted"})
}

// CronDaily godoc
// @Summary      Daily reset for every owner
// @Tags         cron
// @Produce      json
// @Security     CronSecret
// @Success      200  {object}  dto.CronResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /cron/daily [post]
func (h *MaintenanceHandler) CronDaily(c *gin.Context) {
	rep, err := h.svc.RunDaily(c.Request.Context())
	if err != nil {
		h.log.Error("cron daily failed", zap.Error(err))
		writeError(c, "refresh daily tasks", err)
		return
	}
	c.JSON(http.StatusOK, dto.CronResponse{
		Message:   "Daily tasks refreshed",
		Timestamp: time.Now().UTC(),
		Owners:    rep.Owners,
		Failed:    rep.Failed,
	})
}

// CronWeekly godoc
// @Summary      Weekly reset and purge for every owner
// @Tags         cron
// @Produce      json
// @Security     CronSecret
// @Success      200  {object}  dto.CronResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /cron/weekly [post]
func (h *MaintenanceHandler) CronWeekly(c *gin.Context) {
	rep, err := h.svc.RunWeekly(c.Request.Context())
	if err != nil {
		h.log.Error("cron weekly failed", zap.Error(err))
		writeError(c, "refresh weekly tasks", err)
		return
	}
	c.JSON(http.StatusOK, dto.CronResponse{
		Message:   "Weekly tasks refreshed and old completed tasks/subtasks cleaned up",
		Timestamp: time.Now().UTC(),
		Owners:    rep.Owners,
		Failed:    rep.Failed,
		Purged:    rep.Purged,
	})
}
