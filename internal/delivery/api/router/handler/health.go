package handler

import (
	"net/http"

	"citas/internal/delivery/api/middleware"
	"citas/internal/delivery/api/response"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/usecase"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports that the API process is serving.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}

func clientScope(c echo.Context) (*usecase.ClientScope, error) {
	scope, ok := middleware.GetClientScope(c)
	if !ok {
		return nil, domainerrors.ErrInternalError.WithDetails("client scope missing")
	}

	return scope, nil
}
