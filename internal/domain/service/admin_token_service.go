package service

import (
	"slices"
	"time"
)

// AdminClaims identifies the administrator behind a validated token.
type AdminClaims struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// HasRole reports whether the claims carry role.
func (c *AdminClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// AdminTokenService issues and validates the bearer tokens of the review endpoints.
type AdminTokenService interface {
	// IssueToken signs a token for subject with the given roles.
	IssueToken(subject string, roles []string, ttl time.Duration) (string, error)

	// ValidateToken verifies the signature, expiry and issuer of tokenString.
	ValidateToken(tokenString string) (*AdminClaims, error)
}
