package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/repository"
	"citas/internal/domain/service"
	"citas/internal/usecase"
)

// DefaultCompanyCacheTTL is how long a verified company stays fresh.
const DefaultCompanyCacheTTL = time.Hour

type companyCache struct {
	store         repository.SlotStore
	clock         service.Clock
	ttl           time.Duration
	activeMarkers []string
	tokens        service.TokenValidator
	logger        *slog.Logger
	listeners     listenerSet[*entity.VerifiedCompany]
}

// NewCompanyCache creates the verified company cache of one client.
func NewCompanyCache(store repository.SlotStore, clock service.Clock, ttl time.Duration, activeMarkers []string, tokens service.TokenValidator, logger *slog.Logger) usecase.CompanyCacheUsecase {
	if ttl <= 0 {
		ttl = DefaultCompanyCacheTTL
	}

	return &companyCache{
		store:         store,
		clock:         clock,
		ttl:           ttl,
		activeMarkers: activeMarkers,
		tokens:        tokens,
		logger:        logger,
	}
}

func (c *companyCache) Put(ctx context.Context, company *entity.VerifiedCompany) error {
	entry := *company
	entry.FechaVerificacion = c.clock.Now()

	if err := c.store.Set(ctx, repository.SlotVerifiedCompany, &entry); err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	*company = entry

	c.listeners.notify(ctx, &entry)

	return nil
}

func (c *companyCache) Get(ctx context.Context) (*entity.VerifiedCompany, error) {
	var company entity.VerifiedCompany
	found, err := c.store.Get(ctx, repository.SlotVerifiedCompany, &company)
	if err != nil {
		return nil, domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	if !found {
		return nil, nil
	}

	if company.IsStale(c.clock.Now(), c.ttl) {
		deliverycontext.GetLoggerOrDefault(ctx, c.logger).DebugContext(ctx, "Verified company cache expired",
			slog.String("numeroPatronal", company.NumeroPatronal),
			slog.Time("fechaVerificacion", company.FechaVerificacion),
		)
		if err := c.Clear(ctx); err != nil {
			return nil, err
		}

		return nil, nil
	}

	broadcast := company
	c.listeners.notify(ctx, &broadcast)

	return &company, nil
}

func (c *companyCache) CanAccessExam(ctx context.Context) (bool, error) {
	company, err := c.Get(ctx)
	if err != nil || company == nil {
		return false, err
	}

	if !company.Verified || !company.HasActiveStatus(c.activeMarkers) {
		return false, nil
	}

	return c.tokens.IsTokenValid(ctx), nil
}

func (c *companyCache) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, repository.SlotVerifiedCompany); err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	c.listeners.notify(ctx, nil)

	return nil
}

func (c *companyCache) Subscribe(fn usecase.CompanyListener) func() {
	return c.listeners.add(fn)
}
