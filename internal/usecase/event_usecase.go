package usecase

import (
	"context"
	"fmt"

	"citas/internal/domain/service"
	"citas/internal/errors"
)

// EventConsumer reacts to domain events delivered by the message broker.
type EventConsumer interface {
	HandleEvent(ctx context.Context, event *service.DomainEvent) error
}

// RetryableError marks a failure that should be redelivered by the broker.
type RetryableError struct {
	Err error
}

// NewRetryableError wraps err as retryable.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err or any error it wraps is retryable.
func IsRetryable(err error) bool {
	var re *RetryableError

	return errors.As(err, &re)
}
