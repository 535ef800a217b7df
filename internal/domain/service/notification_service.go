package service

import (
	"context"
)

// ReviewerAlert is the push message shown on reviewer devices.
type ReviewerAlert struct {
	Title string
	Body  string
	Data  map[string]string
}

// DeliveryReport summarises one multicast send.
type DeliveryReport struct {
	Sent          int
	Failed        int
	InvalidTokens []string // unregistered or malformed device tokens
}

// NotificationService delivers reviewer alerts to device tokens.
type NotificationService interface {
	// NotifyReviewers sends alert to at most 500 tokens in one multicast.
	NotifyReviewers(ctx context.Context, tokens []string, alert ReviewerAlert) (DeliveryReport, error)
}
