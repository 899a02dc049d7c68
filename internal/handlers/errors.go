package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
)

// respondErr maps service-layer errors onto HTTP responses. Every handler
// funnels errors through here so the status mapping stays in one place.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrTokenAlreadyUsed):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrTokenExpired):
		response.Gone(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		response.BadRequest(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// paramID parses a numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
