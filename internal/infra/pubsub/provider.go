// Package pubsub publishes citas domain events to Google Pub/Sub, to a local
// push endpoint, or nowhere when pubsub is not configured.
package pubsub

import (
	"context"
	"log/slog"
	"maps"

	"citas/config"
	"citas/internal/domain/constants"
	"citas/internal/domain/service"
	"citas/internal/errors"

	"go.uber.org/fx"
)

type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) PublishEvent(ctx context.Context, event *service.DomainEvent) error {
	p.logger.DebugContext(ctx, "Event dropped, pubsub disabled",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
	)

	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// PublisherParams holds dependencies for EventPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewEventPublisher selects the publisher named by pubsub.provider and closes it on stop.
func NewEventPublisher(params PublisherParams) (service.EventPublisher, error) {
	cfg := params.Config.PubSub
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" {
		logger.Info("PubSub not configured, events are dropped")

		return &noopPublisher{logger: logger}, nil
	}

	publisher, err := newProviderPublisher(params.Ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Event publisher ready", slog.String("provider", cfg.Provider))

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})

	return publisher, nil
}

func newProviderPublisher(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.EventPublisher, error) {
	switch cfg.Provider {
	case constants.PubSubProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("pubsub.localEndpoint is required for the local provider")
		}

		return NewLocalHTTPPublisher(cfg.LocalEndpoint, logger), nil
	case constants.PubSubProviderGoogle:
		if cfg.ProjectID == "" || cfg.TopicID == "" {
			return nil, errors.New("pubsub.projectId and pubsub.topicId are required for the google provider")
		}

		return NewGooglePubSubPublisher(ctx, cfg.ProjectID, cfg.TopicID, logger)
	default:
		return nil, errors.Errorf("unknown pubsub provider %q", cfg.Provider)
	}
}

// eventAttributes are the message attributes subscribers filter on.
// Fixed keys win over event-specific ones.
func eventAttributes(event *service.DomainEvent) map[string]string {
	attributes := maps.Clone(event.Attributes)
	if attributes == nil {
		attributes = make(map[string]string, 4)
	}
	attributes["event_id"] = event.ID
	attributes["event_type"] = event.Type
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}
	if event.ClientID != "" {
		attributes["client_id"] = event.ClientID
	}

	return attributes
}

//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewEventPublisher),
)
