package handlers

import (
	"net/http"
	"time"

	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/dto"
	"github.com/bryan-kier/productivity/internal/repo"
	"github.com/bryan-kier/productivity/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List godoc
// @Summary      List tasks
// @Description  Daily tasks first, then by display order. Each task carries its category name and subtasks.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   dto.TaskListItem
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), owner(c))
	if err != nil {
		writeError(c, "fetch tasks", err)
		return
	}
	out := make([]dto.TaskListItem, 0, len(list))
	for _, t := range list {
		out = append(out, taskToListItem(t))
	}
	c.JSON(http.StatusOK, out)
}

// Create godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateTaskRequest  true  "Task"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.Create(c.Request.Context(), owner(c), repo.NewTask{
		Title:       req.Title,
		RefreshType: dom.RefreshType(req.RefreshType),
		CategoryID:  req.CategoryID,
		Deadline:    req.Deadline.Ptr(),
	})
	if err != nil {
		writeError(c, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(t))
}

// Get godoc
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		writeError(c, "fetch task", err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t))
}

// Update godoc
// @Summary      Update a task
// @Description  Only provided fields change. Completing stamps completedAt; un-completing clears it.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Task ID"
// @Param        body  body      dto.UpdateTaskRequest  true  "Partial update"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := repo.TaskPatch{Title: req.Title, Completed: req.Completed}
	if req.RefreshType != nil {
		rt := dom.RefreshType(*req.RefreshType)
		p.RefreshType = &rt
	}
	if req.CategoryID.Set {
		p.CategoryID = repo.Nullable[string]{Set: true, Value: req.CategoryID.Value}
	}
	if req.Deadline.Set {
		p.Deadline = repo.Nullable[time.Time]{Set: true, Value: req.Deadline.Ptr()}
	}
	t, err := h.svc.Update(c.Request.Context(), owner(c), c.Param("id"), p)
	if err != nil {
		writeError(c, "update task", err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t))
}

// Delete godoc
// @Summary      Delete a task and its subtasks
// @Tags         tasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		writeError(c, "delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reorder godoc
// @Summary      Reorder tasks
// @Description  Each listed task gets its index in ids as display order. Unlisted tasks are untouched.
// @Tags         tasks
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  dto.ReorderRequest  true  "Ids in display order"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/reorder [patch]
func (h *TaskHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Reorder(c.Request.Context(), owner(c), req.IDs); err != nil {
		writeError(c, "reorder tasks", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubtasks godoc
// @Summary      List a task's subtasks
// @Tags         subtasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {array}   dto.SubtaskResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /tasks/{id}/subtasks [get]
func (h *TaskHandler) ListSubtasks(c *gin.Context) {
	list, err := h.svc.ListSubtasks(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		writeError(c, "fetch subtasks", err)
		return
	}
	out := make([]dto.SubtaskResponse, 0, len(list))
	for _, s := range list {
		out = append(out, subtaskToResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

// CreateSubtask godoc
// @Summary      Create a subtask
// @Tags         subtasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateSubtaskRequest  true  "Subtask"
// @Success      201   {object}  dto.SubtaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /subtasks [post]
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	var req dto.CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.svc.CreateSubtask(c.Request.Context(), owner(c), repo.NewSubtask{
		TaskID:   req.TaskID,
		Title:    req.Title,
		Deadline: req.Deadline.Ptr(),
	})
	if err != nil {
		writeError(c, "create subtask", err)
		return
	}
	c.JSON(http.StatusCreated, subtaskToResponse(s))
}

// UpdateSubtask godoc
// @Summary      Update a subtask
// @Tags         subtasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                    true  "Subtask ID"
// @Param        body  body      dto.UpdateSubtaskRequest  true  "Partial update"
// @Success      200   {object}  dto.SubtaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /subtasks/{id} [patch]
func (h *TaskHandler) UpdateSubtask(c *gin.Context) {
	var req dto.UpdateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := repo.SubtaskPatch{Title: req.Title, Completed: req.Completed}
	if req.Deadline.Set {
		p.Deadline = repo.Nullable[time.Time]{Set: true, Value: req.Deadline.Ptr()}
	}
	s, err := h.svc.UpdateSubtask(c.Request.Context(), owner(c), c.Param("id"), p)
	if err != nil {
		writeError(c, "update subtask", err)
		return
	}
	c.JSON(http.StatusOK, subtaskToResponse(s))
}

// DeleteSubtask godoc
// @Summary      Delete a subtask
// @Tags         subtasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Subtask ID"
// @Success      204
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /subtasks/{id} [delete]
func (h *TaskHandler) DeleteSubtask(c *gin.Context) {
	if err := h.svc.DeleteSubtask(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		writeError(c, "delete subtask", err)
		return
	}
	c.Status(http.StatusNoContent)
}
