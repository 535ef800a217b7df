package service

import (
	"context"
	"time"
)

// Event types published by the application.
const (
	EventSessionCreated   = "session.created"
	EventSessionRecovered = "session.recovered"
	EventSessionUpdated   = "session.updated"
	EventSessionCleared   = "session.cleared"
	EventCompanyVerified  = "company.verified"
	EventExamRegistered   = "exam.registered"
	EventExamReviewed     = "exam.reviewed"
	EventExamScheduled    = "exam.scheduled"
)

// DomainEvent is a fact about a session or exam request, published for downstream consumers.
type DomainEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	RequestID  string            `json:"request_id,omitempty"` // For distributed tracing
	ClientID   string            `json:"client_id,omitempty"`
	AccessCode string            `json:"access_code,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishEvent publishes a domain event for async processing
	PublishEvent(ctx context.Context, event *DomainEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
