package impl

import (
	"context"
	"fmt"
	"log/slog"

	"citas/config"
	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/service"
	"citas/internal/errors"
	"citas/internal/usecase"

	"go.uber.org/fx"
)

// Firebase batch size limit
const firebaseBatchSize = 500

// EventNotifierParams holds the dependencies of the event notifier.
type EventNotifierParams struct {
	fx.In

	Config   *config.Config
	Notifier service.NotificationService
	Logger   *slog.Logger
}

type eventNotifier struct {
	reviewerTokens []string
	notifier       service.NotificationService
	logger         *slog.Logger
}

// NewEventNotifier creates the consumer that pushes exam events to reviewer devices.
func NewEventNotifier(params EventNotifierParams) usecase.EventConsumer {
	var tokens []string
	if params.Config.Admin != nil {
		tokens = params.Config.Admin.ReviewerTokens
	}

	return &eventNotifier{
		reviewerTokens: tokens,
		notifier:       params.Notifier,
		logger:         params.Logger,
	}
}

func (n *eventNotifier) HandleEvent(ctx context.Context, event *service.DomainEvent) error {
	logger := deliverycontext.GetLoggerOrDefault(ctx, n.logger)

	if event.Type != service.EventExamRegistered {
		logger.DebugContext(ctx, "Event observed",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type),
			slog.String("client_id", event.ClientID),
		)

		return nil
	}

	if len(n.reviewerTokens) == 0 {
		logger.InfoContext(ctx, "No reviewer devices configured", slog.String("event_id", event.ID))

		return nil
	}

	alert := service.ReviewerAlert{
		Title: "Nueva solicitud de examen preocupacional",
		Body:  fmt.Sprintf("%s registró %s asegurado(s)", event.Attributes["company_name"], event.Attributes["persons"]),
		Data: map[string]string{
			"event_id":        event.ID,
			"exam_id":         event.Attributes["exam_id"],
			"numero_patronal": event.Attributes["numero_patronal"],
		},
	}

	var sent, failed int
	var invalid []string
	var lastErr error
	for idx := 0; idx < len(n.reviewerTokens); idx += firebaseBatchSize {
		batch := n.reviewerTokens[idx:min(idx+firebaseBatchSize, len(n.reviewerTokens))]

		report, err := n.notifier.NotifyReviewers(ctx, batch, alert)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to send reviewer batch",
				slog.Int("batch_start", idx),
				slog.Int("batch_size", len(batch)),
				slog.Any("error", err),
			)
			failed += len(batch)
			lastErr = err

			continue
		}
		sent += report.Sent
		failed += report.Failed
		invalid = append(invalid, report.InvalidTokens...)
	}

	if len(invalid) > 0 {
		logger.WarnContext(ctx, "Reviewer tokens rejected by FCM, remove them from admin.reviewerTokens",
			slog.Int("count", len(invalid)),
		)
	}

	logger.InfoContext(ctx, "Reviewer notification completed",
		slog.String("exam_id", event.Attributes["exam_id"]),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)

	if sent == 0 && lastErr != nil {
		return usecase.NewRetryableError(errors.WithStack(lastErr))
	}

	return nil
}
