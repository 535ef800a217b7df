package impl

import (
	"context"
	"fmt"
	"testing"

	"citas/config"
	"citas/internal/domain/service"
	mockSvc "citas/internal/mocks/service"
	"citas/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registeredEvent() *service.DomainEvent {
	return &service.DomainEvent{
		ID:   "evt-1",
		Type: service.EventExamRegistered,
		Attributes: map[string]string{
			"exam_id":         "EX-9",
			"company_name":    "Minera Andina SRL",
			"persons":         "2",
			"numero_patronal": "01-123-4567",
		},
	}
}

func newTestEventNotifier(t *testing.T, tokens []string) (usecase.EventConsumer, *mockSvc.MockNotificationService) {
	t.Helper()

	notifier := mockSvc.NewMockNotificationService(t)

	return NewEventNotifier(EventNotifierParams{
		Config:   &config.Config{Admin: &config.AdminConfig{ReviewerTokens: tokens}},
		Notifier: notifier,
		Logger:   newDiscardLogger(),
	}), notifier
}

func TestEventNotifier_NotifiesReviewers(t *testing.T) {
	consumer, notifier := newTestEventNotifier(t, []string{"t1", "t2"})
	notifier.On("NotifyReviewers", mock.Anything, []string{"t1", "t2"},
		mock.MatchedBy(func(alert service.ReviewerAlert) bool {
			return alert.Title == "Nueva solicitud de examen preocupacional" &&
				alert.Body == "Minera Andina SRL registró 2 asegurado(s)" &&
				alert.Data["exam_id"] == "EX-9"
		}),
	).Return(service.DeliveryReport{Sent: 1, Failed: 1, InvalidTokens: []string{"t2"}}, nil).Once()

	require.NoError(t, consumer.HandleEvent(context.Background(), registeredEvent()))
}

func TestEventNotifier_BatchesTokens(t *testing.T) {
	tokens := make([]string, 0, firebaseBatchSize+3)
	for i := range firebaseBatchSize + 3 {
		tokens = append(tokens, fmt.Sprintf("token-%d", i))
	}
	consumer, notifier := newTestEventNotifier(t, tokens)
	notifier.On("NotifyReviewers", mock.Anything, mock.MatchedBy(func(batch []string) bool {
		return len(batch) == firebaseBatchSize
	}), mock.Anything).Return(service.DeliveryReport{Sent: firebaseBatchSize}, nil).Once()
	notifier.On("NotifyReviewers", mock.Anything, mock.MatchedBy(func(batch []string) bool {
		return len(batch) == 3
	}), mock.Anything).Return(service.DeliveryReport{Sent: 3}, nil).Once()

	require.NoError(t, consumer.HandleEvent(context.Background(), registeredEvent()))
}

func TestEventNotifier_RetryableWhenNothingSent(t *testing.T) {
	consumer, notifier := newTestEventNotifier(t, []string{"t1"})
	notifier.On("NotifyReviewers", mock.Anything, mock.Anything, mock.Anything).
		Return(service.DeliveryReport{}, assert.AnError).Once()

	err := consumer.HandleEvent(context.Background(), registeredEvent())
	require.Error(t, err)
	assert.True(t, usecase.IsRetryable(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEventNotifier_IgnoresOtherEvents(t *testing.T) {
	consumer, _ := newTestEventNotifier(t, []string{"t1"})

	err := consumer.HandleEvent(context.Background(), &service.DomainEvent{ID: "evt-2", Type: service.EventSessionCreated})
	assert.NoError(t, err)
}

func TestEventNotifier_NoReviewers(t *testing.T) {
	consumer, _ := newTestEventNotifier(t, nil)

	assert.NoError(t, consumer.HandleEvent(context.Background(), registeredEvent()))
}
