package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"citas/internal/delivery/api/response"
	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/accesscode"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccessHandlerParams holds dependencies for AccessHandler, injected by Fx.
type AccessHandlerParams struct {
	fx.In

	QRCode service.QRCodeService
	Clock  service.Clock
	Logger *slog.Logger
}

// AccessHandler serves the access session and its access code.
type AccessHandler struct {
	qrcode service.QRCodeService
	clock  service.Clock
	logger *slog.Logger
}

// NewAccessHandler is the constructor for AccessHandler
func NewAccessHandler(params AccessHandlerParams) *AccessHandler {
	return &AccessHandler{
		qrcode: params.QRCode,
		clock:  params.Clock,
		logger: params.Logger,
	}
}

// RecoverSessionRequest carries a typed access code or the content of a scanned QR
type RecoverSessionRequest struct {
	Code   string `json:"code"`
	QRData string `json:"qrData"`
}

// UpdateStepRequest records a step transition
type UpdateStepRequest struct {
	Step int            `json:"step" validate:"gte=0,lte=3"`
	Data map[string]any `json:"data"`
}

// NormalizeCodeRequest is a raw access-code input value
type NormalizeCodeRequest struct {
	Raw  string `json:"raw" validate:"max=64"`
	Mode string `json:"mode" validate:"required,oneof=keystroke blur"`
}

// NormalizeCodeResponse is the canonical form of an access-code input
type NormalizeCodeResponse struct {
	Value    string `json:"value"`
	Valid    bool   `json:"valid"`
	Repaired bool   `json:"repaired"`
}

// SessionView is the session with its remaining validity
type SessionView struct {
	Session          *entity.AccessSession `json:"session"`
	RemainingSeconds int64                 `json:"remainingSeconds"`
}

func (h *AccessHandler) view(session *entity.AccessSession) *SessionView {
	return &SessionView{
		Session:          session,
		RemainingSeconds: int64(session.Remaining(h.clock.Now()).Seconds()),
	}
}

// StartSession creates a new session, bound to the cached company when there is one
func (h *AccessHandler) StartSession(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	ctx := c.Request().Context()

	company, err := scope.Company.Get(ctx)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if _, err := scope.Session.CreateSession(ctx, company); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, h.view(scope.Session.Current()))
}

// RecoverSession resumes the session identified by a typed or scanned access code
func (h *AccessHandler) RecoverSession(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req RecoverSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}

	code := req.Code
	if strings.TrimSpace(req.QRData) != "" {
		parsed, err := h.qrcode.ParseAccessQR(req.QRData)
		if err != nil {
			return response.AppError(c, domainerrors.ErrInvalidAccessCode.WithDetails(err.Error()))
		}
		code = parsed
	} else {
		code = accesscode.Canonical(code)
	}
	if !accesscode.IsValid(code) {
		return response.AppError(c, domainerrors.ErrInvalidAccessCode)
	}

	recovered, err := scope.Session.RecoverSession(c.Request().Context(), code)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if !recovered {
		return response.AppError(c, domainerrors.ErrSessionNotFound)
	}

	return response.Success(c, http.StatusOK, h.view(scope.Session.Current()))
}

// GetSession returns the current session
func (h *AccessHandler) GetSession(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	session := scope.Session.Current()
	if session == nil {
		return response.AppError(c, domainerrors.ErrSessionNotFound)
	}

	return response.Success(c, http.StatusOK, h.view(session))
}

// UpdateStep records a step transition and merges the partial data
func (h *AccessHandler) UpdateStep(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req UpdateStepRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if scope.Session.Current() == nil {
		return response.AppError(c, domainerrors.ErrSessionNotFound)
	}
	if err := scope.Session.UpdateStep(c.Request().Context(), req.Step, req.Data); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, h.view(scope.Session.Current()))
}

// Logout clears the session, the cached company and the wizard
func (h *AccessHandler) Logout(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	if err := scope.Access.Logout(c.Request().Context()); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.NoContent(c)
}

// SessionQR renders the access code of the current session as a PNG QR code
func (h *AccessHandler) SessionQR(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	session := scope.Session.Current()
	if session == nil {
		return response.AppError(c, domainerrors.ErrSessionNotFound)
	}

	png, err := h.qrcode.GenerateAccessQR(session.ID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// NormalizeCode applies keystroke normalisation or blur repair to a raw access-code input
func (h *AccessHandler) NormalizeCode(c echo.Context) error {
	var req NormalizeCodeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	var res NormalizeCodeResponse
	if req.Mode == "blur" {
		res.Value, res.Repaired = accesscode.RepairOnBlur(req.Raw)
		if res.Repaired {
			ctx := c.Request().Context()
			deliverycontext.GetLoggerOrDefault(ctx, h.logger).InfoContext(ctx, "Access code repaired on blur",
				slog.Int("rawLength", len(req.Raw)),
				slog.String("accessCode", res.Value),
			)
		}
	} else {
		res.Value = accesscode.NormalizeKeystroke(req.Raw)
	}
	res.Valid = accesscode.IsValid(res.Value)

	return response.Success(c, http.StatusOK, res)
}
