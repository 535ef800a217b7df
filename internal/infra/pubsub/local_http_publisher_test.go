package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"citas/config"
	"citas/internal/domain/constants"
	"citas/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestLocalHTTPPublisher_PublishEvent(t *testing.T) {
	var received pushEnvelope
	var requestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	event := &service.DomainEvent{
		ID:         "evt-1",
		Type:       service.EventSessionCreated,
		RequestID:  "req-1",
		ClientID:   "client-1",
		AccessCode: "EXM-1234-ABCD-5678",
		Attributes: map[string]string{"step": "1"},
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, publisher.PublishEvent(context.Background(), event))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "evt-1", received.Message.MessageID)
	assert.Equal(t, "2025-03-01T12:00:00Z", received.Message.PublishTime)
	assert.Equal(t, service.EventSessionCreated, received.Message.Attributes["event_type"])
	assert.Equal(t, "1", received.Message.Attributes["step"])

	data, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)

	var decoded service.DomainEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "EXM-1234-ABCD-5678", decoded.AccessCode)
}

func TestLocalHTTPPublisher_PublishEvent_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := publisher.PublishEvent(context.Background(), &service.DomainEvent{ID: "evt-2", Type: service.EventSessionCleared})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestEventAttributes(t *testing.T) {
	attrs := eventAttributes(&service.DomainEvent{
		ID:         "evt-3",
		Type:       service.EventExamRegistered,
		ClientID:   "client-9",
		Attributes: map[string]string{"exam_id": "42", "event_type": "spoofed"},
	})

	assert.Equal(t, map[string]string{
		"event_id":   "evt-3",
		"event_type": service.EventExamRegistered,
		"client_id":  "client-9",
		"exam_id":    "42",
	}, attrs)
}

func TestNewEventPublisher(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.PubSubConfig
		wantErr string
		noop    bool
	}{
		{name: "unconfigured", noop: true},
		{name: "local", cfg: &config.PubSubConfig{Provider: constants.PubSubProviderLocal, LocalEndpoint: "http://localhost:8081/events/push"}},
		{name: "local without endpoint", cfg: &config.PubSubConfig{Provider: constants.PubSubProviderLocal}, wantErr: "localEndpoint"},
		{name: "google without topic", cfg: &config.PubSubConfig{Provider: constants.PubSubProviderGoogle, ProjectID: "p"}, wantErr: "topicId"},
		{name: "unknown", cfg: &config.PubSubConfig{Provider: "kafka"}, wantErr: "kafka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher, err := NewEventPublisher(PublisherParams{
				Lc:     fxtest.NewLifecycle(t),
				Ctx:    context.Background(),
				Config: &config.Config{PubSub: tt.cfg},
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			if tt.noop {
				assert.IsType(t, &noopPublisher{}, publisher)
			} else {
				assert.IsType(t, &localHTTPPublisher{}, publisher)
			}
		})
	}
}
