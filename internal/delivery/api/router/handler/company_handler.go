// Package handler contains the echo handlers of the public API.
package handler

import (
	"log/slog"
	"net/http"

	"citas/internal/delivery/api/response"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// CompanyHandlerParams holds dependencies for CompanyHandler, injected by Fx.
type CompanyHandlerParams struct {
	fx.In

	Logger *slog.Logger
}

// CompanyHandler serves employer verification and the verified company cache.
type CompanyHandler struct {
	logger *slog.Logger
}

// NewCompanyHandler is the constructor for CompanyHandler
func NewCompanyHandler(params CompanyHandlerParams) *CompanyHandler {
	return &CompanyHandler{logger: params.Logger}
}

// VerifyCompanyRequest is the body of a company verification
type VerifyCompanyRequest struct {
	NumeroPatronal string `json:"numeroPatronal" validate:"required,max=20"`
}

// Verify looks up the employer and starts or advances the client's session
func (h *CompanyHandler) Verify(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req VerifyCompanyRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	result, err := scope.Access.VerifyCompany(c.Request().Context(), req.NumeroPatronal)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, result)
}

// Current returns the cached company, or null when absent or stale
func (h *CompanyHandler) Current(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	company, err := scope.Company.Get(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, company)
}

// Access reports whether the client may enter the exam wizard
func (h *CompanyHandler) Access(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	allowed, err := scope.Company.CanAccessExam(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]bool{"canAccessExam": allowed})
}
