package handlers

import (
	"net/http"

	"github.com/bryan-kier/productivity/internal/dto"
	"github.com/bryan-kier/productivity/internal/repo"
	"github.com/bryan-kier/productivity/internal/service"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	svc *service.NoteService
}

func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// List godoc
// @Summary      List notes
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   dto.NoteResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), owner(c))
	if err != nil {
		writeError(c, "fetch notes", err)
		return
	}
	out := make([]dto.NoteResponse, 0, len(list))
	for _, n := range list {
		out = append(out, noteToResponse(n))
	}
	c.JSON(http.StatusOK, out)
}

// Create godoc
// @Summary      Create a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateNoteRequest  true  "Note"
// @Success      201   {object}  dto.NoteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.svc.Create(c.Request.Context(), owner(c), repo.NewNote{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		writeError(c, "create note", err)
		return
	}
	c.JSON(http.StatusCreated, noteToResponse(n))
}

// Update godoc
// @Summary      Update a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Note ID"
// @Param        body  body      dto.UpdateNoteRequest  true  "Partial update"
// @Success      200   {object}  dto.NoteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /notes/{id} [patch]
func (h *NoteHandler) Update(c *gin.Context) {
	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := repo.NotePatch{Title: req.Title, Content: req.Content}
	if req.CategoryID.Set {
		p.CategoryID = repo.Nullable[string]{Set: true, Value: req.CategoryID.Value}
	}
	n, err := h.svc.Update(c.Request.Context(), owner(c), c.Param("id"), p)
	if err != nil {
		writeError(c, "update note", err)
		return
	}
	c.JSON(http.StatusOK, noteToResponse(n))
}

// Delete godoc
// @Summary      Delete a note
// @Tags         notes
// @Security     BearerAuth
// @Param        id   path  string  true  "Note ID"
// @Success      204
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		writeError(c, "delete note", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reorder godoc
// @Summary      Reorder notes
// @Tags         notes
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  dto.ReorderRequest  true  "Ids in display order"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /notes/reorder [patch]
func (h *NoteHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Reorder(c.Request.Context(), owner(c), req.IDs); err != nil {
		writeError(c, "reorder notes", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetAnnouncement godoc
// @Summary      Current announcement
// @Description  Returns null when none has been set.
// @Tags         announcement
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.AnnouncementResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /announcement [get]
func (h *NoteHandler) GetAnnouncement(c *gin.Context) {
	a, err := h.svc.Announcement(c.Request.Context(), owner(c))
	if err != nil {
		writeError(c, "fetch announcement", err)
		return
	}
	if a == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, announcementToResponse(*a))
}

// PutAnnouncement godoc
// @Summary      Set the announcement
// @Tags         announcement
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.AnnouncementRequest  true  "Message"
// @Success      200   {object}  dto.AnnouncementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /announcement [put]
func (h *NoteHandler) PutAnnouncement(c *gin.Context) {
	var req dto.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Message == nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Message is required"})
		return
	}
	a, err := h.svc.SetAnnouncement(c.Request.Context(), owner(c), *req.Message)
	if err != nil {
		writeError(c, "update announcement", err)
		return
	}
	c.JSON(http.StatusOK, announcementToResponse(a))
}
