// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"citas/internal/domain/entity"
)

// SessionListener is notified after every session mutation. A nil session means the session was cleared.
type SessionListener func(ctx context.Context, session *entity.AccessSession)

// SessionUsecase owns the single access session of one client.
// Absence and expiry are reported through return values; errors are storage failures only.
type SessionUsecase interface {
	// CreateSession starts a new session, replacing any previous one, and returns its access code.
	CreateSession(ctx context.Context, company *entity.VerifiedCompany) (string, error)

	// RecoverSession resumes the stored session when code matches it and it has not expired.
	RecoverSession(ctx context.Context, code string) (bool, error)

	// UpdateStep records a step transition and merges patch into the partial data. No-op without a session.
	UpdateStep(ctx context.Context, step int, patch map[string]any) error

	// Current returns a copy of the in-memory session, or nil.
	Current() *entity.AccessSession

	// Clear removes the session.
	Clear(ctx context.Context) error

	// Subscribe registers fn and returns a function that unregisters it.
	Subscribe(fn SessionListener) (unsubscribe func())
}

// CompanyListener is notified when the cached company is written, read or cleared (nil).
type CompanyListener func(ctx context.Context, company *entity.VerifiedCompany)

// CompanyCacheUsecase caches the verified company of one client for a limited time.
type CompanyCacheUsecase interface {
	// Put stamps the verification time and stores the company.
	Put(ctx context.Context, company *entity.VerifiedCompany) error

	// Get returns the cached company, or nil when absent or stale.
	Get(ctx context.Context) (*entity.VerifiedCompany, error)

	// CanAccessExam reports whether the cached company may register exams.
	CanAccessExam(ctx context.Context) (bool, error)

	// Clear removes the cached company.
	Clear(ctx context.Context) error

	// Subscribe registers fn and returns a function that unregisters it.
	Subscribe(fn CompanyListener) (unsubscribe func())
}

// CompanyVerification is the result of verifying an employer.
type CompanyVerification struct {
	Company    *entity.VerifiedCompany `json:"company"`
	AccessCode string                  `json:"accessCode"`
	Session    *entity.AccessSession   `json:"session"`
	CanAccess  bool                    `json:"canAccessExam"`
}

// AccessUsecase coordinates company verification with the session of one client.
type AccessUsecase interface {
	// VerifyCompany looks up the employer, caches it and creates or advances the session to step 1.
	VerifyCompany(ctx context.Context, numeroPatronal string) (*CompanyVerification, error)

	// Logout clears the session, the cached company and the wizard.
	Logout(ctx context.Context) error
}

// SessionChange names the mutation that triggered a session notification.
type SessionChange string

const (
	SessionCreated   SessionChange = "created"
	SessionRecovered SessionChange = "recovered"
	SessionUpdated   SessionChange = "updated"
	SessionCleared   SessionChange = "cleared"
)

type sessionChangeKey struct{}

// WithSessionChange annotates the context passed to session listeners.
func WithSessionChange(ctx context.Context, change SessionChange) context.Context {
	return context.WithValue(ctx, sessionChangeKey{}, change)
}

// SessionChangeFrom returns the mutation a listener is being notified about.
func SessionChangeFrom(ctx context.Context) (SessionChange, bool) {
	change, ok := ctx.Value(sessionChangeKey{}).(SessionChange)

	return change, ok
}
