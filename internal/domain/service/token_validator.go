package service

import "context"

// TokenValidator reports whether the credential used against the remote API is usable.
type TokenValidator interface {
	IsTokenValid(ctx context.Context) bool
}
