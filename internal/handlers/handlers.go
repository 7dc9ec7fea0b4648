package handlers

import (
	"errors"
	"net/http"

	"github.com/bryan-kier/productivity/internal/auth"
	"github.com/bryan-kier/productivity/internal/dto"
	"github.com/bryan-kier/productivity/internal/service"

	"github.com/gin-gonic/gin"
)

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request", Details: err.Error()})
}

// writeError maps service errors to a status code. Anything unknown is a 500
// with a generic message; the cause goes to the request log.
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		badRequest(c, err)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to " + op, Details: err.Error()})
	}
}

// owner returns the authenticated owner; RequireBearer guarantees it is set.
func owner(c *gin.Context) string {
	return auth.OwnerFromContext(c)
}
