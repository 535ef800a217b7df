// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"log/slog"

	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/repository"
	"citas/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// slotStoreProvider implements the repository.SlotStoreProvider interface.
type slotStoreProvider struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSlotStoreProvider is the constructor for slotStoreProvider.
func NewSlotStoreProvider(db *gorm.DB, logger *slog.Logger) repository.SlotStoreProvider {
	return &slotStoreProvider{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the storage_slots table.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.SlotModel{}); err != nil {
		return errors.Wrap(err, "failed to migrate storage_slots")
	}

	return nil
}

// ForClient returns a store bound to clientID.
func (p *slotStoreProvider) ForClient(clientID string) repository.SlotStore {
	return &slotStore{
		db:       p.db,
		logger:   p.logger,
		clientID: clientID,
	}
}

type slotStore struct {
	db       *gorm.DB
	logger   *slog.Logger
	clientID string
}

// Get loads the slot and decodes it into dst. A row that does not decode is deleted and reported as absent.
func (s *slotStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	var slotM model.SlotModel

	if err := s.db.WithContext(ctx).
		Where("client_id = ? AND slot_key = ?", s.clientID, key).
		First(&slotM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}

		return false, domainerrors.NewDatabaseExecuteError(err, "failed to read storage slot")
	}

	if err := json.Unmarshal([]byte(slotM.Value), dst); err != nil {
		s.logger.WarnContext(ctx, "Discarding undecodable storage slot",
			slog.String("clientID", s.clientID),
			slog.String("slot", key),
			slog.Any("error", err),
		)

		return false, s.Remove(ctx, key)
	}

	return true, nil
}

// Set upserts the slot with the JSON encoding of value.
func (s *slotStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode slot %s", key)
	}

	slotM := &model.SlotModel{
		ClientID: s.clientID,
		SlotKey:  key,
		Value:    string(raw),
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "slot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(slotM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to write storage slot")
	}

	return nil
}

// Remove deletes the slot. Removing a missing slot is not an error.
func (s *slotStore) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).
		Where("client_id = ? AND slot_key = ?", s.clientID, key).
		Delete(&model.SlotModel{}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete storage slot")
	}

	return nil
}
