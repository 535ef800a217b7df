package impl

import (
	"context"
	"log/slog"
	"strings"

	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"
	"citas/internal/usecase"

	"github.com/google/uuid"
)

type accessService struct {
	clientID  string
	session   usecase.SessionUsecase
	company   usecase.CompanyCacheUsecase
	wizard    usecase.WizardUsecase
	lookup    service.CompanyLookup
	publisher service.EventPublisher
	clock     service.Clock
	logger    *slog.Logger
}

// NewAccessService creates the company verification flow of one client.
func NewAccessService(
	clientID string,
	session usecase.SessionUsecase,
	company usecase.CompanyCacheUsecase,
	wizard usecase.WizardUsecase,
	lookup service.CompanyLookup,
	publisher service.EventPublisher,
	clock service.Clock,
	logger *slog.Logger,
) usecase.AccessUsecase {
	return &accessService{
		clientID:  clientID,
		session:   session,
		company:   company,
		wizard:    wizard,
		lookup:    lookup,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func (s *accessService) VerifyCompany(ctx context.Context, numeroPatronal string) (*usecase.CompanyVerification, error) {
	numeroPatronal = strings.TrimSpace(numeroPatronal)
	if numeroPatronal == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("el número patronal es obligatorio")
	}

	logger := deliverycontext.GetLoggerOrDefault(ctx, s.logger)

	record, err := s.lookup.FindCompany(ctx, numeroPatronal)
	if err != nil {
		return nil, err
	}
	if record == nil {
		logger.InfoContext(ctx, "Employer not found", slog.String("numeroPatronal", numeroPatronal))

		return nil, domainerrors.ErrCompanyNotFound.WithDetails("número patronal " + numeroPatronal)
	}

	company := &entity.VerifiedCompany{
		ID:             record.ID,
		RazonSocial:    record.RazonSocial,
		NIT:            record.NIT,
		NumeroPatronal: record.NumeroPatronal,
		Estado:         record.Estado,
		Verified:       true,
	}
	if company.NumeroPatronal == "" {
		company.NumeroPatronal = numeroPatronal
	}
	if company.ID == "" {
		company.ID = company.NumeroPatronal
	}

	if err := s.company.Put(ctx, company); err != nil {
		return nil, err
	}

	current := s.session.Current()
	if current == nil || current.CompanyID != company.ID {
		if _, err := s.session.CreateSession(ctx, company); err != nil {
			return nil, err
		}
	} else {
		step := max(current.CurrentStep, entity.StepCompanyVerified)
		if err := s.session.UpdateStep(ctx, step, map[string]any{entity.PartialDataCompanyKey: company}); err != nil {
			return nil, err
		}
	}

	canAccess, err := s.company.CanAccessExam(ctx)
	if err != nil {
		return nil, err
	}

	session := s.session.Current()
	result := &usecase.CompanyVerification{
		Company:   company,
		Session:   session,
		CanAccess: canAccess,
	}
	if session != nil {
		result.AccessCode = session.ID
	}

	logger.InfoContext(ctx, "Employer verified",
		slog.String("numeroPatronal", company.NumeroPatronal),
		slog.String("estado", company.Estado),
		slog.Bool("canAccessExam", canAccess),
	)

	event := &service.DomainEvent{
		ID:         uuid.NewString(),
		Type:       service.EventCompanyVerified,
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		ClientID:   s.clientID,
		AccessCode: result.AccessCode,
		Attributes: map[string]string{
			"numero_patronal": company.NumeroPatronal,
			"estado":          company.Estado,
		},
		OccurredAt: s.clock.Now(),
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish company event", slog.Any("error", err))
	}

	return result, nil
}

func (s *accessService) Logout(ctx context.Context) error {
	if err := s.wizard.Reset(ctx); err != nil {
		return err
	}
	if err := s.company.Clear(ctx); err != nil {
		return err
	}

	return s.session.Clear(ctx)
}
