package handlers

import (
	"errors"
	"net/http"

	"github.com/bryan-kier/productivity/internal/dto"
	"github.com/bryan-kier/productivity/internal/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	svc *service.CategoryService
}

func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// List godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   dto.CategoryResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), owner(c))
	if err != nil {
		writeError(c, "fetch categories", err)
		return
	}
	out := make([]dto.CategoryResponse, 0, len(list))
	for _, cat := range list {
		out = append(out, categoryToResponse(cat))
	}
	c.JSON(http.StatusOK, out)
}

// Create godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CategoryRequest  true  "Category"
// @Success      201   {object}  dto.CategoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	name, ok := bindName(c)
	if !ok {
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), owner(c), name)
	if err != nil {
		writeError(c, "create category", err)
		return
	}
	c.JSON(http.StatusCreated, categoryToResponse(cat))
}

// Update godoc
// @Summary      Rename a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Category ID"
// @Param        body  body      dto.CategoryRequest  true  "New name"
// @Success      200   {object}  dto.CategoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /categories/{id} [patch]
func (h *CategoryHandler) Update(c *gin.Context) {
	name, ok := bindName(c)
	if !ok {
		return
	}
	cat, err := h.svc.Rename(c.Request.Context(), owner(c), c.Param("id"), name)
	if err != nil {
		writeError(c, "update category", err)
		return
	}
	c.JSON(http.StatusOK, categoryToResponse(cat))
}

// Delete godoc
// @Summary      Delete a category
// @Description  Tasks and notes in the category are kept and become uncategorised.
// @Tags         categories
// @Security     BearerAuth
// @Param        id   path  string  true  "Category ID"
// @Success      204
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		writeError(c, "delete category", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindName(c *gin.Context) (string, bool) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return "", false
	}
	if req.Name == nil {
		badRequest(c, errors.New("name is required"))
		return "", false
	}
	return *req.Name, true
}
