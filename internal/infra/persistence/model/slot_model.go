package model

import (
	"time"
)

// SlotModel is the GORM-specific struct for the 'storage_slots' table.
// Each row is one named slot in one client's namespace.
type SlotModel struct {
	ClientID  string `gorm:"type:varchar(64);primaryKey"`
	SlotKey   string `gorm:"type:varchar(64);primaryKey"`
	Value     string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (SlotModel) TableName() string {
	return "storage_slots"
}
