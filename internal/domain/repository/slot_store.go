// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
)

// Well-known slot keys. Each client owns exactly one value per key.
const (
	SlotAccessSession   = "exam_access_session"
	SlotVerifiedCompany = "empresa_verificada"
	SlotExamWizard      = "exam_wizard_state"
)

// SlotStore is a string-keyed store of JSON-serialized values owned by one client.
// It stands in for the browser storage of the original front-end.
type SlotStore interface {
	// Get decodes the value stored under key into dst. It reports false when the slot is empty.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set serializes value and stores it under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error

	// Remove deletes the value stored under key. Removing an empty slot is not an error.
	Remove(ctx context.Context, key string) error
}

// SlotStoreProvider hands out the slot store of a given client.
type SlotStoreProvider interface {
	// ForClient returns the store namespace owned by clientID.
	ForClient(clientID string) SlotStore
}
