package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arnb-smnta/chatline/internal/service"
)

// mapServiceError translates a service-layer error into an HTTP response.
func mapServiceError(c echo.Context, err error) error {
	var se *service.ServiceError
	if !errors.As(err, &se) {
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(se, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(se, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(se, service.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(se, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(se, service.ErrConflict):
		status = http.StatusConflict
	}

	return Error(c, status, se.Code, se.Message)
}
