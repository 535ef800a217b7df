package remoteapi

import (
	"context"
	"log/slog"
	"time"

	"citas/config"
	"citas/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// expiryLeeway treats a token as expired slightly before its exp claim.
const expiryLeeway = 30 * time.Second

// newTokenSource returns a client-credentials source when a client id is configured,
// otherwise a static source over the configured token.
func newTokenSource(ctx context.Context, cfg *config.RemoteAPIConfig) oauth2.TokenSource {
	if cfg.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}

		return cc.TokenSource(ctx)
	}

	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.StaticToken,
		TokenType:   "Bearer",
	})
}

type tokenValidator struct {
	tokenSource oauth2.TokenSource
	now         func() time.Time
	logger      *slog.Logger
}

// NewTokenValidator reports token validity for the client's token source.
func NewTokenValidator(client *Client, clock service.Clock) service.TokenValidator {
	return newTokenValidator(client.tokenSource, clock.Now, client.logger)
}

func newTokenValidator(ts oauth2.TokenSource, now func() time.Time, logger *slog.Logger) *tokenValidator {
	return &tokenValidator{
		tokenSource: ts,
		now:         now,
		logger:      logger,
	}
}

// IsTokenValid obtains a token and checks it is non-empty and not expired. Tokens
// that are JWTs are also checked against their exp claim.
func (v *tokenValidator) IsTokenValid(ctx context.Context) bool {
	token, err := v.tokenSource.Token()
	if err != nil {
		v.logger.WarnContext(ctx, "Remote API token unavailable", slog.Any("error", err))

		return false
	}
	if token == nil || token.AccessToken == "" {
		return false
	}

	now := v.now()
	if !token.Expiry.IsZero() && !token.Expiry.After(now.Add(expiryLeeway)) {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, claims); err != nil {
		// Opaque token; issuance already vouched for it.
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return exp.After(now.Add(expiryLeeway))
}
