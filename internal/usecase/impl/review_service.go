package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"citas/config"
	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"
	"citas/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// ReviewParams holds the dependencies of the review service.
type ReviewParams struct {
	fx.In

	API       service.ExamReviewAPI
	Publisher service.EventPublisher
	Clock     service.Clock
	Config    *config.Config
	Logger    *slog.Logger
}

type reviewService struct {
	api       service.ExamReviewAPI
	publisher service.EventPublisher
	clock     service.Clock
	rules     config.SchedulingConfig
	location  *time.Location
	logger    *slog.Logger
}

// NewReviewService creates the administrator review service.
func NewReviewService(params ReviewParams) (usecase.ReviewUsecase, error) {
	rules := *params.Config.Scheduling

	location := time.Local
	if rules.TimeZone != "" {
		loc, err := time.LoadLocation(rules.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduling time zone %q: %w", rules.TimeZone, err)
		}
		location = loc
	}

	return &reviewService{
		api:       params.API,
		publisher: params.Publisher,
		clock:     params.Clock,
		rules:     rules,
		location:  location,
		logger:    params.Logger,
	}, nil
}

func (s *reviewService) ListRequests(ctx context.Context, status entity.ExamStatus) ([]*entity.ExamRequest, error) {
	return s.api.ListExamRequests(ctx, status)
}

func (s *reviewService) GetRequest(ctx context.Context, examID string) (*entity.ExamRequest, error) {
	request, err := s.api.GetExamRequest(ctx, examID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domainerrors.ErrExamRequestNotFound.WithDetails("solicitud " + examID)
	}

	return request, nil
}

func (s *reviewService) Review(ctx context.Context, examID string, input *usecase.ReviewInput) (*entity.ExamRequest, error) {
	switch input.Decision {
	case entity.ExamStatusApproved, entity.ExamStatusObserved, entity.ExamStatusRejected:
	default:
		return nil, domainerrors.ErrValidationFailed.WithDetails("decisión inválida: " + string(input.Decision))
	}

	notes := strings.TrimSpace(input.Notes)
	if input.Decision != entity.ExamStatusApproved && notes == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("las observaciones son obligatorias al observar o rechazar")
	}

	request, err := s.GetRequest(ctx, examID)
	if err != nil {
		return nil, err
	}
	if request.Status != entity.ExamStatusPending && request.Status != entity.ExamStatusObserved {
		return nil, domainerrors.ErrInvalidReviewTransition.WithDetails(
			fmt.Sprintf("la solicitud está en estado %s", request.Status))
	}

	if err := s.api.SubmitReview(ctx, &service.ReviewDecision{
		ExamID: examID,
		Status: input.Decision,
		Notes:  notes,
	}); err != nil {
		return nil, err
	}

	request.Status = input.Decision
	request.ReviewNotes = notes

	s.publish(ctx, service.EventExamReviewed, map[string]string{
		"exam_id":  examID,
		"decision": string(input.Decision),
	})

	return request, nil
}

func (s *reviewService) Schedule(ctx context.Context, examID string, input *usecase.AppointmentInput) (*entity.ExamRequest, error) {
	scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", input.Date+" "+input.Time, s.location)
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("fecha u hora de cita inválida")
	}
	if err := s.checkSlot(scheduledAt); err != nil {
		return nil, err
	}

	request, err := s.GetRequest(ctx, examID)
	if err != nil {
		return nil, err
	}
	if request.Status != entity.ExamStatusApproved {
		return nil, domainerrors.ErrInvalidReviewTransition.WithDetails("solo se programan solicitudes aprobadas")
	}

	notes := strings.TrimSpace(input.Notes)
	if err := s.api.ScheduleAppointment(ctx, &service.AppointmentRequest{
		ExamID:      examID,
		ScheduledAt: scheduledAt,
		Notes:       notes,
	}); err != nil {
		return nil, err
	}

	request.Status = entity.ExamStatusScheduled
	request.Appointment = &entity.Appointment{ScheduledAt: scheduledAt, Notes: notes}

	s.publish(ctx, service.EventExamScheduled, map[string]string{
		"exam_id":      examID,
		"scheduled_at": scheduledAt.Format(time.RFC3339),
	})

	return request, nil
}

// checkSlot enforces weekday opening hours within the booking horizon.
func (s *reviewService) checkSlot(at time.Time) error {
	now := s.clock.Now().In(s.location)

	switch {
	case !at.After(now):
		return domainerrors.ErrValidationFailed.WithDetails("la cita debe ser en el futuro")
	case at.Weekday() == time.Saturday || at.Weekday() == time.Sunday:
		return domainerrors.ErrValidationFailed.WithDetails("la cita debe ser en día hábil")
	case at.Hour() < s.rules.OpeningHour || at.Hour() >= s.rules.ClosingHour:
		return domainerrors.ErrValidationFailed.WithDetails(
			fmt.Sprintf("la cita debe ser entre las %02d:00 y las %02d:00", s.rules.OpeningHour, s.rules.ClosingHour))
	case s.rules.MaxDaysAhead > 0 && at.After(now.AddDate(0, 0, s.rules.MaxDaysAhead)):
		return domainerrors.ErrValidationFailed.WithDetails(
			fmt.Sprintf("la cita no puede programarse con más de %d días de anticipación", s.rules.MaxDaysAhead))
	}

	return nil
}

func (s *reviewService) publish(ctx context.Context, eventType string, attributes map[string]string) {
	event := &service.DomainEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Attributes: attributes,
		OccurredAt: s.clock.Now(),
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, s.logger).WarnContext(ctx, "Failed to publish review event",
			slog.String("type", eventType),
			slog.Any("error", err),
		)
	}
}
