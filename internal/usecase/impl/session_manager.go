// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/accesscode"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/repository"
	"citas/internal/domain/service"
	"citas/internal/usecase"
	"citas/internal/util"
)

// DefaultSessionTTL is the fixed lifetime of an access session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// sessionManager keeps the in-memory copy of the session stored in the client's slot.
// The slot is the source of truth; the in-memory copy is what subscribers observe.
// It is not safe for concurrent use; ScopeProvider hands a client's scope to one request at a time.
type sessionManager struct {
	store     repository.SlotStore
	clock     service.Clock
	ttl       time.Duration
	newCode   func() string
	logger    *slog.Logger
	current   *entity.AccessSession
	listeners listenerSet[*entity.AccessSession]
}

// SessionManagerOption customizes a session manager.
type SessionManagerOption func(*sessionManager)

// WithCodeGenerator replaces the access code generator.
func WithCodeGenerator(fn func() string) SessionManagerOption {
	return func(m *sessionManager) {
		m.newCode = fn
	}
}

// NewSessionManager creates a session manager and loads the persisted session.
// An expired session is removed while loading.
func NewSessionManager(ctx context.Context, store repository.SlotStore, clock service.Clock, ttl time.Duration, logger *slog.Logger, opts ...SessionManagerOption) (usecase.SessionUsecase, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	m := &sessionManager{
		store:   store,
		clock:   clock,
		ttl:     ttl,
		newCode: accesscode.Generate,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	session, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	m.current = session

	return m, nil
}

// load reads the stored session, deleting it when expired or malformed.
func (m *sessionManager) load(ctx context.Context) (*entity.AccessSession, error) {
	var session entity.AccessSession
	found, err := m.store.Get(ctx, repository.SlotAccessSession, &session)
	if err != nil {
		return nil, domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	if !found {
		return nil, nil
	}

	if !accesscode.IsValid(session.ID) || session.IsExpired(m.clock.Now()) {
		deliverycontext.GetLoggerOrDefault(ctx, m.logger).DebugContext(ctx, "Discarding stored access session",
			slog.String("accessCode", session.ID),
			slog.Time("expiresAt", session.ExpiresAt),
		)
		if err := m.store.Remove(ctx, repository.SlotAccessSession); err != nil {
			return nil, domainerrors.ErrStorageFailed.WrapMessage(err.Error())
		}

		return nil, nil
	}

	return &session, nil
}

func (m *sessionManager) persist(ctx context.Context, session *entity.AccessSession) error {
	if err := m.store.Set(ctx, repository.SlotAccessSession, session); err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}

	return nil
}

func (m *sessionManager) CreateSession(ctx context.Context, company *entity.VerifiedCompany) (string, error) {
	now := m.clock.Now()

	session := &entity.AccessSession{
		ID:             accesscode.Canonical(m.newCode()),
		Status:         entity.SessionStatusActive,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.ttl),
		LastAccessedAt: now,
		CurrentStep:    entity.StepPreVerification,
		PartialData:    map[string]any{},
	}
	if company != nil {
		snapshot := *company
		session.CompanyID = company.ID
		session.CompanyName = company.RazonSocial
		session.CurrentStep = entity.StepCompanyVerified
		session.PartialData[entity.PartialDataCompanyKey] = &snapshot
	}

	if err := m.persist(ctx, session); err != nil {
		return "", err
	}
	m.current = session

	deliverycontext.GetLoggerOrDefault(ctx, m.logger).InfoContext(ctx, "Access session created",
		slog.String("accessCode", session.ID),
		slog.Int("step", session.CurrentStep),
		slog.Time("expiresAt", session.ExpiresAt),
	)
	m.listeners.notify(usecase.WithSessionChange(ctx, usecase.SessionCreated), session.Clone())

	return session.ID, nil
}

func (m *sessionManager) RecoverSession(ctx context.Context, code string) (bool, error) {
	stored, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	if stored == nil {
		if m.current != nil {
			m.current = nil
			m.listeners.notify(usecase.WithSessionChange(ctx, usecase.SessionCleared), nil)
		}

		return false, nil
	}

	if stored.ID != accesscode.Canonical(code) {
		return false, nil
	}

	now := m.clock.Now()
	stored.LastAccessedAt = now
	if err := m.persist(ctx, stored); err != nil {
		return false, err
	}
	m.current = stored

	deliverycontext.GetLoggerOrDefault(ctx, m.logger).InfoContext(ctx, "Access session recovered",
		slog.String("accessCode", stored.ID),
		slog.Int("step", stored.CurrentStep),
		slog.String("remaining", util.FormatDuration(stored.Remaining(now))),
	)
	m.listeners.notify(usecase.WithSessionChange(ctx, usecase.SessionRecovered), stored.Clone())

	return true, nil
}

func (m *sessionManager) UpdateStep(ctx context.Context, step int, patch map[string]any) error {
	if m.current == nil {
		return nil
	}

	now := m.clock.Now()
	if m.current.IsExpired(now) {
		return m.Clear(ctx)
	}

	updated := m.current.Clone()
	updated.CurrentStep = step
	updated.LastAccessedAt = now
	if step >= entity.StepExamForm {
		updated.Status = entity.SessionStatusInProgress
	}
	updated.MergePartialData(patch)

	if err := m.persist(ctx, updated); err != nil {
		return err
	}
	m.current = updated
	m.listeners.notify(usecase.WithSessionChange(ctx, usecase.SessionUpdated), updated.Clone())

	return nil
}

func (m *sessionManager) Current() *entity.AccessSession {
	if m.current == nil || m.current.IsExpired(m.clock.Now()) {
		return nil
	}

	return m.current.Clone()
}

func (m *sessionManager) Clear(ctx context.Context) error {
	if err := m.store.Remove(ctx, repository.SlotAccessSession); err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	m.current = nil
	m.listeners.notify(usecase.WithSessionChange(ctx, usecase.SessionCleared), nil)

	return nil
}

func (m *sessionManager) Subscribe(fn usecase.SessionListener) func() {
	return m.listeners.add(fn)
}
