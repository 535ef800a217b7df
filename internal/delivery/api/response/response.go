// Package response writes the JSON envelopes returned by every API route:
// {"data": ..., "meta": ...} on success and {"error": ..., "meta": ...} on failure.
package response

import (
	"net/http"

	deliverycontext "citas/internal/delivery/context"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/errors"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

type ErrorInfo struct {
	Code    string `json:"code"`    // e.g. "SESSION_NOT_FOUND"
	Message string `json:"message"` // Spanish, shown to the user as is
	Details any    `json:"details,omitempty"`
}

// MetaInfo lets the front-end correlate a response with server logs and
// recover its client id when the header is not exposed.
type MetaInfo struct {
	RequestID string `json:"request_id"`
	ClientID  string `json:"client_id,omitempty"`
}

func meta(c echo.Context) *MetaInfo {
	return &MetaInfo{
		RequestID: deliverycontext.GetRequestID(c),
		ClientID:  c.Response().Header().Get(deliverycontext.HeaderXClientID),
	}
}

func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, SuccessResponse{Data: data, Meta: meta(c)})
}

// NoContent returns 204 for operations without a payload
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error writes an error envelope. Details never leave the server for 5xx or auth failures.
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		details = nil
	}

	return c.JSON(statusCode, ErrorResponse{
		Error: &ErrorInfo{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Meta: meta(c),
	})
}

// BindingError returns the validation error for a body that could not be decoded
func BindingError(c echo.Context, message string) error {
	return AppError(c, domainerrors.ErrValidationFailed.WithDetails(message))
}

func AppError(c echo.Context, appErr domainerrors.AppError) error {
	var details any
	if d := appErr.Details(); d != "" {
		details = d
	}

	return Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), details)
}

// HandleAppError writes domain errors as envelopes and hands anything else to
// the echo error handler.
func HandleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return AppError(c, appErr)
	}

	return errors.WithStack(err)
}
