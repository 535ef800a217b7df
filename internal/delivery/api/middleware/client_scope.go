package middleware

import (
	"log/slog"

	"citas/internal/delivery/api/response"
	deliverycontext "citas/internal/delivery/context"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const clientScopeKey = "client_scope"

// ClientScopeMiddleware binds each request to the storage namespace of its client.
type ClientScopeMiddleware struct {
	scopes usecase.ScopeProvider
	logger *slog.Logger
}

// NewClientScopeMiddleware creates a new client scope middleware
func NewClientScopeMiddleware(scopes usecase.ScopeProvider, logger *slog.Logger) *ClientScopeMiddleware {
	return &ClientScopeMiddleware{scopes: scopes, logger: logger}
}

// Process resolves the X-Client-Id header, generating one when missing or malformed,
// and holds the client's scope for the duration of the request.
func (m *ClientScopeMiddleware) Process(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var clientID string
		if parsed, err := uuid.Parse(c.Request().Header.Get(deliverycontext.HeaderXClientID)); err == nil {
			clientID = parsed.String()
		} else {
			clientID = uuid.NewString()
		}
		c.Response().Header().Set(deliverycontext.HeaderXClientID, clientID)

		ctx := c.Request().Context()
		logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger).With(slog.String("client_id", clientID))
		ctx = deliverycontext.WithClientID(ctx, clientID)
		ctx = deliverycontext.WithLogger(ctx, logger)
		c.SetRequest(c.Request().WithContext(ctx))

		scope, release, err := m.scopes.Acquire(ctx, clientID)
		if err != nil {
			return response.HandleAppError(c, err)
		}
		defer release()

		c.Set(clientScopeKey, scope)

		return next(c)
	}
}

// RequireExamAccess admits only clients whose cached company may register exams.
// It must run after Process.
func (m *ClientScopeMiddleware) RequireExamAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		scope, ok := GetClientScope(c)
		if !ok {
			return response.AppError(c, domainerrors.ErrInternalError)
		}

		allowed, err := scope.Company.CanAccessExam(c.Request().Context())
		if err != nil {
			return response.HandleAppError(c, err)
		}
		if !allowed {
			return response.AppError(c, domainerrors.ErrCompanyNotVerified)
		}

		return next(c)
	}
}

// GetClientScope returns the scope stored by Process.
func GetClientScope(c echo.Context) (*usecase.ClientScope, bool) {
	scope, ok := c.Get(clientScopeKey).(*usecase.ClientScope)

	return scope, ok && scope != nil
}
