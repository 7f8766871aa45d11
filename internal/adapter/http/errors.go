package http

import (
	"errors"
	"net/http"
	"strings"

	"samanvay/internal/adapter/middleware"
	"samanvay/internal/domain/access"
	"samanvay/internal/domain/agency"
	"samanvay/internal/domain/outbox"
	"samanvay/internal/domain/project"

	"github.com/labstack/echo/v4"
)

// writeError maps domain errors → HTTP codes. Unknown errors are stashed on
// the context for the request logger and answered with a generic 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	case errors.Is(err, access.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, project.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), project.ErrValidation.Error()+": ")
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: "_", Message: msg}},
		})
	case errors.Is(err, project.ErrNotFound),
		errors.Is(err, agency.ErrNotFound),
		errors.Is(err, outbox.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, project.ErrInvalidState),
		errors.Is(err, project.ErrConcurrentUpdate):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		c.Set(middleware.ErrorKey, err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}

func invalid(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}

// actor returns the caller set by the auth middleware.
func actor(c echo.Context) (access.Actor, error) {
	a, ok := access.FromContext(c.Request().Context())
	if !ok {
		return access.Actor{}, access.ErrUnauthenticated
	}
	return a, nil
}
