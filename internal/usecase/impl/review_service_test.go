package impl

import (
	"context"
	"testing"
	"time"

	"citas/config"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"
	mockSvc "citas/internal/mocks/service"
	"citas/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestReviewService(t *testing.T) (usecase.ReviewUsecase, *mockSvc.MockExamReviewAPI, *mockSvc.MockEventPublisher) {
	t.Helper()

	api := mockSvc.NewMockExamReviewAPI(t)
	publisher := mockSvc.NewMockEventPublisher(t)
	svc, err := NewReviewService(ReviewParams{
		API:       api,
		Publisher: publisher,
		Clock:     mockSvc.NewFakeClock(testNow),
		Config: &config.Config{
			Scheduling: &config.SchedulingConfig{
				OpeningHour:  7,
				ClosingHour:  16,
				MaxDaysAhead: 30,
				TimeZone:     "UTC",
			},
		},
		Logger: newDiscardLogger(),
	})
	require.NoError(t, err)

	return svc, api, publisher
}

func TestReviewService_GetRequest_NotFound(t *testing.T) {
	svc, api, _ := newTestReviewService(t)
	api.On("GetExamRequest", mock.Anything, "EX-1").Return(nil, nil).Once()

	_, err := svc.GetRequest(context.Background(), "EX-1")
	assert.ErrorIs(t, err, domainerrors.ErrExamRequestNotFound)
}

func TestReviewService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("approve pending request", func(t *testing.T) {
		svc, api, publisher := newTestReviewService(t)
		api.On("GetExamRequest", mock.Anything, "EX-1").
			Return(&entity.ExamRequest{ID: "EX-1", Status: entity.ExamStatusPending}, nil).Once()
		api.On("SubmitReview", mock.Anything, &service.ReviewDecision{ExamID: "EX-1", Status: entity.ExamStatusApproved}).
			Return(nil).Once()
		publisher.On("PublishEvent", mock.Anything, mock.MatchedBy(func(e *service.DomainEvent) bool {
			return e.Type == service.EventExamReviewed && e.Attributes["decision"] == "APROBADO"
		})).Return(nil).Once()

		request, err := svc.Review(ctx, "EX-1", &usecase.ReviewInput{Decision: entity.ExamStatusApproved})
		require.NoError(t, err)
		assert.Equal(t, entity.ExamStatusApproved, request.Status)
	})

	t.Run("observe requires notes", func(t *testing.T) {
		svc, _, _ := newTestReviewService(t)

		_, err := svc.Review(ctx, "EX-1", &usecase.ReviewInput{Decision: entity.ExamStatusObserved, Notes: "  "})
		assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	})

	t.Run("unknown decision", func(t *testing.T) {
		svc, _, _ := newTestReviewService(t)

		_, err := svc.Review(ctx, "EX-1", &usecase.ReviewInput{Decision: entity.ExamStatusScheduled, Notes: "x"})
		assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	})

	t.Run("already approved", func(t *testing.T) {
		svc, api, _ := newTestReviewService(t)
		api.On("GetExamRequest", mock.Anything, "EX-1").
			Return(&entity.ExamRequest{ID: "EX-1", Status: entity.ExamStatusApproved}, nil).Once()

		_, err := svc.Review(ctx, "EX-1", &usecase.ReviewInput{Decision: entity.ExamStatusRejected, Notes: "duplicado"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidReviewTransition)
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		svc, api, publisher := newTestReviewService(t)
		api.On("GetExamRequest", mock.Anything, "EX-1").
			Return(&entity.ExamRequest{ID: "EX-1", Status: entity.ExamStatusObserved}, nil).Once()
		api.On("SubmitReview", mock.Anything, mock.Anything).Return(nil).Once()
		publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		request, err := svc.Review(ctx, "EX-1", &usecase.ReviewInput{Decision: entity.ExamStatusRejected, Notes: "falta recibo"})
		require.NoError(t, err)
		assert.Equal(t, "falta recibo", request.ReviewNotes)
	})
}

func TestReviewService_Schedule_SlotRules(t *testing.T) {
	tests := []struct {
		name string
		date string
		time string
	}{
		{name: "malformed", date: "03/03/2026", time: "10:00"},
		{name: "past", date: "2026-03-02", time: "09:00"},
		{name: "saturday", date: "2026-03-07", time: "10:00"},
		{name: "before opening", date: "2026-03-03", time: "06:30"},
		{name: "at closing", date: "2026-03-03", time: "16:00"},
		{name: "too far ahead", date: "2026-05-04", time: "10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestReviewService(t)

			_, err := svc.Schedule(context.Background(), "EX-1", &usecase.AppointmentInput{Date: tt.date, Time: tt.time})
			assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
		})
	}
}

func TestReviewService_Schedule(t *testing.T) {
	ctx := context.Background()
	want := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

	t.Run("approved request", func(t *testing.T) {
		svc, api, publisher := newTestReviewService(t)
		api.On("GetExamRequest", mock.Anything, "EX-1").
			Return(&entity.ExamRequest{ID: "EX-1", Status: entity.ExamStatusApproved}, nil).Once()
		api.On("ScheduleAppointment", mock.Anything, mock.MatchedBy(func(req *service.AppointmentRequest) bool {
			return req.ExamID == "EX-1" && req.ScheduledAt.Equal(want) && req.Notes == "ayunas"
		})).Return(nil).Once()
		publisher.On("PublishEvent", mock.Anything, mock.MatchedBy(func(e *service.DomainEvent) bool {
			return e.Type == service.EventExamScheduled
		})).Return(nil).Once()

		request, err := svc.Schedule(ctx, "EX-1", &usecase.AppointmentInput{Date: "2026-03-03", Time: "10:00", Notes: " ayunas "})
		require.NoError(t, err)
		assert.Equal(t, entity.ExamStatusScheduled, request.Status)
		require.NotNil(t, request.Appointment)
		assert.True(t, request.Appointment.ScheduledAt.Equal(want))
	})

	t.Run("pending request", func(t *testing.T) {
		svc, api, _ := newTestReviewService(t)
		api.On("GetExamRequest", mock.Anything, "EX-1").
			Return(&entity.ExamRequest{ID: "EX-1", Status: entity.ExamStatusPending}, nil).Once()

		_, err := svc.Schedule(ctx, "EX-1", &usecase.AppointmentInput{Date: "2026-03-03", Time: "10:00"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidReviewTransition)
	})
}

func TestNewReviewService_InvalidTimeZone(t *testing.T) {
	_, err := NewReviewService(ReviewParams{
		Config: &config.Config{Scheduling: &config.SchedulingConfig{TimeZone: "Nowhere/Invalid"}},
	})
	assert.Error(t, err)
}
