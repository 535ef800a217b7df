package auth

import (
	"testing"
	"time"

	"citas/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(issuer string) *config.Config {
	return &config.Config{
		Admin: &config.AdminConfig{
			JWTSecret: "test_admin_secret_key_very_long_for_testing",
			Issuer:    issuer,
		},
	}
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc, err := NewJWTService(newTestConfig("citas"))
	require.NoError(t, err)

	token, err := svc.IssueToken("reviewer@cns.bo", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reviewer@cns.bo", claims.Subject)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("auditor"))
}

func TestJWTService_RejectsInvalidTokens(t *testing.T) {
	svc, err := NewJWTService(newTestConfig("citas"))
	require.NoError(t, err)

	expired, err := svc.IssueToken("reviewer", []string{"admin"}, -time.Minute)
	require.NoError(t, err)

	other, err := NewJWTService(newTestConfig("other-issuer"))
	require.NoError(t, err)
	foreignIssuer, err := other.IssueToken("reviewer", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	otherSecret := newTestConfig("citas")
	otherSecret.Admin.JWTSecret = "a_completely_different_secret_value"
	forgerSvc, err := NewJWTService(otherSecret)
	require.NoError(t, err)
	forged, err := forgerSvc.IssueToken("reviewer", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "reviewer",
		"iss": "citas",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expired},
		{name: "wrong issuer", token: foreignIssuer},
		{name: "wrong secret", token: forged},
		{name: "none algorithm", token: noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService(&config.Config{Admin: &config.AdminConfig{}})
	assert.Error(t, err)
}
