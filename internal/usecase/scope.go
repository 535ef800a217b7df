package usecase

import "context"

// ClientScope groups the usecases bound to one client's storage namespace.
type ClientScope struct {
	ClientID string
	Session  SessionUsecase
	Company  CompanyCacheUsecase
	Access   AccessUsecase
	Wizard   WizardUsecase
}

// ScopeProvider builds client scopes. Scopes of the same client are handed out one at a time;
// callers must call release when done.
type ScopeProvider interface {
	Acquire(ctx context.Context, clientID string) (scope *ClientScope, release func(), err error)
}
