// Package handler contains the worker's Pub/Sub push endpoint.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"citas/config"
	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/constants"
	"citas/internal/domain/service"
	"citas/internal/errors"
	"citas/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage is the body of a Pub/Sub push request.
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PushHandler decodes pushed citas events and hands them to the consumer.
// Status codes drive Pub/Sub: 2xx acks, 503 asks for redelivery.
type PushHandler struct {
	verify   func(*http.Request) error
	logger   *slog.Logger
	consumer usecase.EventConsumer
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Consumer usecase.EventConsumer
}

// NewPushHandler requires Google-signed tokens when running the google provider in prod.
func NewPushHandler(params PushHandlerParams) *PushHandler {
	h := &PushHandler{
		logger:   params.Logger,
		consumer: params.Consumer,
	}

	cfg := params.Config.PubSub
	if cfg != nil && cfg.Provider == constants.PubSubProviderGoogle && params.Config.Env.Env == constants.EnvProd {
		v := &pushVerifier{
			audience:       cfg.PushAudience,
			serviceAccount: cfg.PushServiceAccount,
			validate:       idtoken.Validate,
		}
		h.verify = v.verify
	}

	return h
}

func (h *PushHandler) HandlePush(c echo.Context) error {
	if h.verify != nil {
		if err := h.verify(c.Request()); err != nil {
			h.logger.Warn("Rejected unauthenticated push", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var msg PubSubMessage
	if err := c.Bind(&msg); err != nil {
		h.logger.Error("Undecodable push body", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}
	event, err := decodeEvent(&msg)
	if err != nil {
		h.logger.Error("Undecodable event",
			slog.String("message_id", msg.Message.MessageID),
			slog.Any("error", err),
		)

		return c.NoContent(http.StatusBadRequest)
	}

	ctx, logger := h.eventContext(c.Request().Context(), &msg, event)
	logger.Info("Processing event",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.String("message_id", msg.Message.MessageID),
	)

	if err := h.consumer.HandleEvent(ctx, event); err != nil {
		retryable := usecase.IsRetryable(err)
		logger.Error("Event processing failed",
			slog.String("event_id", event.ID),
			slog.Bool("retryable", retryable),
			slog.Any("error", err),
		)
		if retryable {
			return c.NoContent(http.StatusServiceUnavailable)
		}
	}

	return c.NoContent(http.StatusOK)
}

func decodeEvent(msg *PubSubMessage) (*service.DomainEvent, error) {
	data, err := base64.StdEncoding.DecodeString(msg.Message.Data)
	if err != nil {
		return nil, errors.Wrap(err, "message data is not base64")
	}

	var event service.DomainEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrap(err, "message data is not a domain event")
	}

	return &event, nil
}

// eventContext restores the request id and client id of the request that
// produced the event. Attributes win over the payload; a fresh id is the last resort.
func (h *PushHandler) eventContext(ctx context.Context, msg *PubSubMessage, event *service.DomainEvent) (context.Context, *slog.Logger) {
	requestID := firstNonEmpty(msg.Message.Attributes["request_id"], event.RequestID, deliverycontext.GetRequestIDFromContext(ctx))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	clientID := firstNonEmpty(msg.Message.Attributes["client_id"], event.ClientID)

	logger := h.logger.With(slog.String("request_id", requestID))
	if clientID != "" {
		logger = logger.With(slog.String("client_id", clientID))
		ctx = deliverycontext.WithClientID(ctx, clientID)
	}
	ctx = deliverycontext.WithRequestID(ctx, requestID)

	return deliverycontext.WithLogger(ctx, logger), logger
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// pushVerifier checks the OIDC token Pub/Sub attaches to authenticated push requests.
// https://cloud.google.com/pubsub/docs/authenticate-push-subscriptions
type pushVerifier struct {
	audience       string
	serviceAccount string
	validate       func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func (v *pushVerifier) verify(req *http.Request) error {
	token, ok := strings.CutPrefix(req.Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok || token == "" {
		return errors.New("missing bearer token")
	}

	audience := v.audience
	if audience == "" {
		scheme := "https"
		if req.TLS == nil {
			scheme = "http"
		}
		audience = fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)
	}

	payload, err := v.validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "invalid push token")
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("unexpected issuer %q", payload.Issuer)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return errors.New("push service account email not verified")
	}
	if v.serviceAccount != "" {
		if email, _ := payload.Claims["email"].(string); email != v.serviceAccount {
			return errors.Errorf("unexpected push service account %q", email)
		}
	}

	return nil
}
