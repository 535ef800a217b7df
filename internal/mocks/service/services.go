package service

import (
	"context"
	"sync"
	"time"

	"citas/internal/domain/service"

	"github.com/stretchr/testify/mock"
)

// MockEventPublisher mocks service.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

// NewMockEventPublisher creates a mock that asserts its expectations on cleanup.
func NewMockEventPublisher(t testingT) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, event *service.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}

// MockNotificationService mocks service.NotificationService.
type MockNotificationService struct {
	mock.Mock
}

// NewMockNotificationService creates a mock that asserts its expectations on cleanup.
func NewMockNotificationService(t testingT) *MockNotificationService {
	m := &MockNotificationService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockNotificationService) NotifyReviewers(ctx context.Context, tokens []string, alert service.ReviewerAlert) (service.DeliveryReport, error) {
	args := m.Called(ctx, tokens, alert)
	report, _ := args.Get(0).(service.DeliveryReport)

	return report, args.Error(1)
}

// MockTokenValidator mocks service.TokenValidator.
type MockTokenValidator struct {
	mock.Mock
}

// NewMockTokenValidator creates a mock that asserts its expectations on cleanup.
func NewMockTokenValidator(t testingT) *MockTokenValidator {
	m := &MockTokenValidator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockTokenValidator) IsTokenValid(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

// MockQRCodeService mocks service.QRCodeService.
type MockQRCodeService struct {
	mock.Mock
}

// NewMockQRCodeService creates a mock that asserts its expectations on cleanup.
func NewMockQRCodeService(t testingT) *MockQRCodeService {
	m := &MockQRCodeService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockQRCodeService) GenerateAccessQR(code string) ([]byte, error) {
	args := m.Called(code)
	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

func (m *MockQRCodeService) ParseAccessQR(qrData string) (string, error) {
	args := m.Called(qrData)

	return args.String(0), args.Error(1)
}

// FakeClock is a settable service.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock stopped at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}
