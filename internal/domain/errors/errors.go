// Package errors defines the user-facing failures of citas. Every error carries
// a Kind from the taxonomy the front-end reacts to, an HTTP status, a stable
// code and a Spanish message shown to the user as is.
package errors

import (
	"net/http"

	"citas/internal/errors"
)

// Kind groups errors by how the caller should react.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"  // lookup came back empty; the user corrects the input
	KindExpired    Kind = "EXPIRED"    // session, cache or credentials no longer valid; start over
	KindValidation Kind = "VALIDATION" // input rejected before any side effect
	KindConflict   Kind = "CONFLICT"   // input clashes with collected data
	KindTransport  Kind = "TRANSPORT"  // upstream API or storage failed; safe to retry
	KindInternal   Kind = "INTERNAL"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind
	HTTPCode() int
	ErrorCode() string
	Message() string
	Details() string // optional; never sent for 401, 403 or 5xx
}

// KindOf returns the kind of the first AppError in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}

	return KindInternal
}

// BaseError is the AppError used by every predefined error.
type BaseError struct {
	kind      Kind
	httpCode  int
	errorCode string
	message   string
	details   string
}

func newError(kind Kind, httpCode int, errorCode, message string) *BaseError {
	return &BaseError{
		kind:      kind,
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
	}
}

func (e *BaseError) Error() string {
	if e.details != "" {
		return e.message + ": " + e.details
	}

	return e.message
}

func (e *BaseError) Kind() Kind        { return e.kind }
func (e *BaseError) HTTPCode() int     { return e.httpCode }
func (e *BaseError) ErrorCode() string { return e.errorCode }
func (e *BaseError) Message() string   { return e.message }
func (e *BaseError) Details() string   { return e.details }

// WrapMessage annotates e with an internal cause and a stack trace; the cause
// is logged but not returned to the client.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Is matches any BaseError with the same error code, so copies made by WithDetails
// still satisfy errors.Is against the predefined value.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)

	return ok && t.errorCode == e.errorCode
}

// WithDetails returns a copy carrying details for the client.
func (e *BaseError) WithDetails(details string) *BaseError {
	cloned := *e
	cloned.details = details

	return &cloned
}

// Not found
var (
	ErrCompanyNotFound = newError(KindNotFound, http.StatusNotFound, "COMPANY_NOT_FOUND",
		"No se encontró una empresa con el número patronal indicado")
	ErrInsuredNotFound = newError(KindNotFound, http.StatusNotFound, "INSURED_NOT_FOUND",
		"No se encontró un asegurado con el carnet y la fecha de nacimiento indicados")
	ErrExamRequestNotFound = newError(KindNotFound, http.StatusNotFound, "EXAM_REQUEST_NOT_FOUND",
		"No se encontró la solicitud de examen")
	ErrPersonNotFound = newError(KindNotFound, http.StatusNotFound, "PERSON_NOT_FOUND",
		"El asegurado no forma parte de la solicitud en curso")
	ErrSessionNotFound = newError(KindNotFound, http.StatusNotFound, "SESSION_NOT_FOUND",
		"El código de acceso no corresponde a ninguna sesión activa")
)

// Expired or not authorized
var (
	ErrSessionExpired = newError(KindExpired, http.StatusUnauthorized, "SESSION_EXPIRED",
		"La sesión ha expirado, inicie una nueva verificación")
	ErrCompanyNotVerified = newError(KindExpired, http.StatusForbidden, "COMPANY_NOT_VERIFIED",
		"Debe verificar una empresa activa antes de registrar exámenes")
	ErrUnauthorized = newError(KindExpired, http.StatusUnauthorized, "UNAUTHORIZED",
		"Credenciales inválidas o expiradas")
	ErrForbidden = newError(KindExpired, http.StatusForbidden, "FORBIDDEN",
		"No tiene permisos para realizar esta acción")
)

// Validation
var (
	ErrValidationFailed = newError(KindValidation, http.StatusBadRequest, "VALIDATION_FAILED",
		"Los datos ingresados no son válidos")
	ErrInvalidAccessCode = newError(KindValidation, http.StatusBadRequest, "INVALID_ACCESS_CODE",
		"El código de acceso debe tener el formato EXM-XXXX-XXXX-XXXX")
	ErrStepNotAllowed = newError(KindValidation, http.StatusUnprocessableEntity, "STEP_NOT_ALLOWED",
		"Complete los datos del paso actual antes de continuar")
	ErrInvalidDocument = newError(KindValidation, http.StatusBadRequest, "INVALID_DOCUMENT",
		"El documento no tiene un formato o tamaño permitido")
	ErrInvalidReviewTransition = newError(KindValidation, http.StatusUnprocessableEntity, "INVALID_REVIEW_TRANSITION",
		"La solicitud no se encuentra en un estado que permita esta acción")
)

// Conflict
var ErrDuplicateInsured = newError(KindConflict, http.StatusConflict, "DUPLICATE_INSURED",
	"Ya existe un asegurado registrado con el mismo número de carnet")

// Transport
var (
	ErrUpstreamUnavailable = newError(KindTransport, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE",
		"No se pudo conectar con el servicio de la Caja, intente nuevamente")
	ErrUpstreamRejected = newError(KindTransport, http.StatusBadGateway, "UPSTREAM_REJECTED",
		"El servicio de la Caja rechazó la solicitud")
	ErrStorageFailed = newError(KindTransport, http.StatusInternalServerError, "STORAGE_FAILED",
		"No se pudo guardar el progreso, intente nuevamente")
)

var ErrInternalError = newError(KindInternal, http.StatusInternalServerError, "INTERNAL_ERROR",
	"Error interno del sistema")

// DatabaseExecuteError is a slot store failure. It keeps the driver error for
// logs and reports STORAGE_FAILED-style transport semantics to callers.
type DatabaseExecuteError struct {
	err     error
	details string
}

func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, e.details).Error()
}

func (e *DatabaseExecuteError) Kind() Kind        { return KindTransport }
func (e *DatabaseExecuteError) HTTPCode() int     { return http.StatusInternalServerError }
func (e *DatabaseExecuteError) ErrorCode() string { return "DATABASE_EXECUTE_FAILED" }
func (e *DatabaseExecuteError) Message() string {
	return "Error al ejecutar la operación en la base de datos"
}
func (e *DatabaseExecuteError) Details() string { return e.details }
func (e *DatabaseExecuteError) Unwrap() error   { return e.err }
