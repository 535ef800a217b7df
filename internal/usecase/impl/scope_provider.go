package impl

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"citas/config"
	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/entity"
	"citas/internal/domain/repository"
	"citas/internal/domain/service"
	"citas/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// ScopeParams holds the dependencies shared by every client scope.
type ScopeParams struct {
	fx.In

	Stores    repository.SlotStoreProvider
	Clock     service.Clock
	Config    *config.Config
	Logger    *slog.Logger
	Tokens    service.TokenValidator
	Companies service.CompanyLookup
	Insured   service.InsuredLookup
	Registry  service.ExamRegistry
	Documents service.DocumentStore
	Publisher service.EventPublisher
}

type scopeProvider struct {
	params ScopeParams
	locks  *clientLocks
}

// NewScopeProvider creates the provider of per-client scopes.
func NewScopeProvider(params ScopeParams) usecase.ScopeProvider {
	return &scopeProvider{
		params: params,
		locks:  newClientLocks(),
	}
}

func (p *scopeProvider) Acquire(ctx context.Context, clientID string) (*usecase.ClientScope, func(), error) {
	unlock, err := p.locks.lock(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}

	scope, unsubscribe, err := p.build(ctx, clientID)
	if err != nil {
		unlock()

		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			unsubscribe()
			unlock()
		})
	}

	return scope, release, nil
}

func (p *scopeProvider) build(ctx context.Context, clientID string) (*usecase.ClientScope, func(), error) {
	cfg := p.params.Config
	store := p.params.Stores.ForClient(clientID)

	session, err := NewSessionManager(ctx, store, p.params.Clock, cfg.Session.TTL, p.params.Logger)
	if err != nil {
		return nil, nil, err
	}
	company := NewCompanyCache(store, p.params.Clock, cfg.Company.CacheTTL, cfg.Company.ActiveMarkers, p.params.Tokens, p.params.Logger)
	wizard := NewWizardService(clientID, store, session, company, WizardDependencies{
		Insured:             p.params.Insured,
		Registry:            p.params.Registry,
		Documents:           p.params.Documents,
		Publisher:           p.params.Publisher,
		Clock:               p.params.Clock,
		Logger:              p.params.Logger,
		MaxInsured:          cfg.Wizard.MaxInsured,
		MaxDocumentBytes:    cfg.Wizard.MaxDocumentBytes,
		AllowedContentTypes: cfg.Wizard.AllowedContentTypes,
	})
	access := NewAccessService(clientID, session, company, wizard, p.params.Companies, p.params.Publisher, p.params.Clock, p.params.Logger)

	bridge := &sessionEventBridge{
		clientID:  clientID,
		publisher: p.params.Publisher,
		clock:     p.params.Clock,
		logger:    p.params.Logger,
	}
	if current := session.Current(); current != nil {
		bridge.lastCode = current.ID
	}
	unsubscribe := session.Subscribe(bridge.onSession)

	return &usecase.ClientScope{
		ClientID: clientID,
		Session:  session,
		Company:  company,
		Access:   access,
		Wizard:   wizard,
	}, unsubscribe, nil
}

// sessionEventBridge republishes session notifications as domain events.
type sessionEventBridge struct {
	clientID  string
	publisher service.EventPublisher
	clock     service.Clock
	logger    *slog.Logger
	lastCode  string
}

func (b *sessionEventBridge) onSession(ctx context.Context, session *entity.AccessSession) {
	event := &service.DomainEvent{
		ID:         uuid.NewString(),
		Type:       b.classify(ctx, session),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		ClientID:   b.clientID,
		OccurredAt: b.clock.Now(),
	}
	if session != nil {
		event.AccessCode = session.ID
		event.Attributes = map[string]string{
			"step":   strconv.Itoa(session.CurrentStep),
			"status": string(session.Status),
		}
		if session.CompanyID != "" {
			event.Attributes["company_id"] = session.CompanyID
		}
		b.lastCode = session.ID
	} else {
		event.AccessCode = b.lastCode
		b.lastCode = ""
	}

	if err := b.publisher.PublishEvent(ctx, event); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, b.logger).WarnContext(ctx, "Failed to publish session event",
			slog.String("type", event.Type),
			slog.Any("error", err),
		)
	}
}

func (b *sessionEventBridge) classify(ctx context.Context, session *entity.AccessSession) string {
	change, ok := usecase.SessionChangeFrom(ctx)
	if !ok {
		if session == nil {
			change = usecase.SessionCleared
		} else {
			change = usecase.SessionUpdated
		}
	}

	switch change {
	case usecase.SessionCreated:
		return service.EventSessionCreated
	case usecase.SessionRecovered:
		return service.EventSessionRecovered
	case usecase.SessionCleared:
		return service.EventSessionCleared
	default:
		return service.EventSessionUpdated
	}
}

// clientLocks serializes work on the same client while letting different clients proceed.
type clientLocks struct {
	mu    sync.Mutex
	locks map[string]*clientLock
}

type clientLock struct {
	sem  chan struct{}
	refs int
}

func newClientLocks() *clientLocks {
	return &clientLocks{locks: make(map[string]*clientLock)}
}

func (l *clientLocks) lock(ctx context.Context, clientID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[clientID]
	if !ok {
		entry = &clientLock{sem: make(chan struct{}, 1)}
		l.locks[clientID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(clientID, entry)

		return nil, ctx.Err()
	}

	return func() {
		<-entry.sem
		l.drop(clientID, entry)
	}, nil
}

func (l *clientLocks) drop(clientID string, entry *clientLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, clientID)
	}
}
