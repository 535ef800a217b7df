package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"citas/internal/delivery/api/middleware"
	"citas/internal/delivery/api/response"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AdminHandlerParams holds dependencies for AdminHandler, injected by Fx.
type AdminHandlerParams struct {
	fx.In

	ReviewUC usecase.ReviewUsecase
	Logger   *slog.Logger
}

// AdminHandler serves the review and scheduling of exam requests.
type AdminHandler struct {
	reviewUC usecase.ReviewUsecase
	logger   *slog.Logger
}

// NewAdminHandler is the constructor for AdminHandler
func NewAdminHandler(params AdminHandlerParams) *AdminHandler {
	return &AdminHandler{
		reviewUC: params.ReviewUC,
		logger:   params.Logger,
	}
}

var listableStatuses = map[entity.ExamStatus]bool{
	"":                         true,
	entity.ExamStatusPending:   true,
	entity.ExamStatusApproved:  true,
	entity.ExamStatusObserved:  true,
	entity.ExamStatusRejected:  true,
	entity.ExamStatusScheduled: true,
}

// ListRequests lists exam requests, optionally filtered by ?status=
func (h *AdminHandler) ListRequests(c echo.Context) error {
	status := entity.ExamStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	if !listableStatuses[status] {
		return response.AppError(c, domainerrors.ErrValidationFailed.WithDetails("estado desconocido: "+string(status)))
	}

	requests, err := h.reviewUC.ListRequests(c.Request().Context(), status)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, requests)
}

// GetRequest returns one exam request
func (h *AdminHandler) GetRequest(c echo.Context) error {
	request, err := h.reviewUC.GetRequest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, request)
}

// Review records an administrator decision on an exam request
func (h *AdminHandler) Review(c echo.Context) error {
	var req usecase.ReviewInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	request, err := h.reviewUC.Review(c.Request().Context(), c.Param("id"), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	if claims, ok := middleware.GetAdminClaims(c); ok {
		h.logger.Info("Exam request reviewed",
			slog.String("exam_id", request.ID),
			slog.String("decision", string(req.Decision)),
			slog.String("reviewer", claims.Subject),
		)
	}

	return response.Success(c, http.StatusOK, request)
}

// Schedule books the appointment of an approved exam request
func (h *AdminHandler) Schedule(c echo.Context) error {
	var req usecase.AppointmentInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	request, err := h.reviewUC.Schedule(c.Request().Context(), c.Param("id"), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, request)
}
