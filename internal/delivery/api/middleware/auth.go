package middleware

import (
	"log/slog"
	"strings"

	"citas/internal/delivery/api/response"
	deliverycontext "citas/internal/delivery/context"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"

	"github.com/labstack/echo/v4"
)

const adminClaimsKey = "admin_claims"

// AuthMiddleware authenticates administrators by bearer token.
type AuthMiddleware struct {
	tokens service.AdminTokenService
	logger *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokens service.AdminTokenService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Authenticate validates the bearer token and stores its claims on the echo context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			return response.AppError(c, domainerrors.ErrUnauthorized)
		}

		claims, err := m.tokens.ValidateToken(tokenString)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Warn("Rejected admin token", slog.Any("error", err))

			return response.AppError(c, domainerrors.ErrUnauthorized)
		}

		c.Set(adminClaimsKey, claims)

		return next(c)
	}
}

// RequireRole rejects administrators without role. It must run after Authenticate.
func (m *AuthMiddleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := GetAdminClaims(c)
			if !ok || !claims.HasRole(role) {
				return response.AppError(c, domainerrors.ErrForbidden)
			}

			return next(c)
		}
	}
}

// GetAdminClaims returns the claims stored by Authenticate.
func GetAdminClaims(c echo.Context) (*service.AdminClaims, bool) {
	claims, ok := c.Get(adminClaimsKey).(*service.AdminClaims)

	return claims, ok && claims != nil
}
