package notification

import (
	"context"
	"fmt"
	"log/slog"

	"citas/config"
	"citas/internal/domain/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

const maxMulticastTokens = 500

type firebaseService struct {
	client *messaging.Client
}

// Params holds dependencies for the notification service
type Params struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// New returns the Firebase service when credentials are configured, otherwise a service that only logs.
func New(params Params) (service.NotificationService, error) {
	cfg := params.Config.Firebase
	if cfg == nil || cfg.CredentialsPath == "" {
		params.Logger.Info("Firebase not configured, reviewer notifications are logged only")

		return &logOnlyService{logger: params.Logger}, nil
	}

	return NewFirebaseService(params.Ctx, cfg.ProjectID, cfg.CredentialsPath)
}

// NewFirebaseService builds the FCM client from a service account file.
func NewFirebaseService(ctx context.Context, projectID, credentialsPath string) (service.NotificationService, error) {
	var fbConfig *firebase.Config
	if projectID != "" {
		fbConfig = &firebase.Config{ProjectID: projectID}
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &firebaseService{
		client: client,
	}, nil
}

// NotifyReviewers sends one multicast to at most 500 device tokens.
func (s *firebaseService) NotifyReviewers(ctx context.Context, tokens []string, alert service.ReviewerAlert) (service.DeliveryReport, error) {
	if len(tokens) == 0 {
		return service.DeliveryReport{}, nil
	}
	if len(tokens) > maxMulticastTokens {
		return service.DeliveryReport{}, fmt.Errorf("token count exceeds limit: %d (max %d)", len(tokens), maxMulticastTokens)
	}

	response, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: alert.Title,
			Body:  alert.Body,
		},
		Data: alert.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	if err != nil {
		return service.DeliveryReport{}, fmt.Errorf("failed to send reviewer alert: %w", err)
	}

	report := service.DeliveryReport{
		Sent:   response.SuccessCount,
		Failed: response.FailureCount,
	}
	for idx, sendResponse := range response.Responses {
		if sendResponse.Error == nil {
			continue
		}
		if messaging.IsInvalidArgument(sendResponse.Error) || messaging.IsUnregistered(sendResponse.Error) {
			report.InvalidTokens = append(report.InvalidTokens, tokens[idx])
		}
	}

	return report, nil
}

// logOnlyService stands in for FCM when no credentials are configured.
type logOnlyService struct {
	logger *slog.Logger
}

func (s *logOnlyService) NotifyReviewers(ctx context.Context, tokens []string, alert service.ReviewerAlert) (service.DeliveryReport, error) {
	s.logger.InfoContext(ctx, "Reviewer alert",
		slog.Int("tokens", len(tokens)),
		slog.String("title", alert.Title),
		slog.String("body", alert.Body),
		slog.Any("data", alert.Data),
	)

	return service.DeliveryReport{Sent: len(tokens)}, nil
}
