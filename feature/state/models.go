package state

import "time"

// VariantState is the persisted last-known availability of one
// (variant, country) composite key. Created on first observation, updated on
// every run that observes the key, removed only by Reset.
type VariantState struct {
	Key          string    `gorm:"primaryKey;size:128"`
	Availability string    `gorm:"size:16;not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// SyncCheckpoint is the single persisted timestamp of the last successful
// run. Exactly one row (ID 1) exists once a run has completed.
type SyncCheckpoint struct {
	ID        uint      `gorm:"primaryKey"`
	LastRun   time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// MappingFingerprint is the single persisted structural fingerprint of the
// country/location mapping, compared across runs for change detection.
type MappingFingerprint struct {
	ID        uint      `gorm:"primaryKey"`
	Value     string    `gorm:"size:64;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Stats summarizes the persisted state for the debug command.
type Stats struct {
	VariantCount    int64
	InStockCount    int64
	OutOfStockCount int64
	LastRun         *time.Time
	HasFingerprint  bool
}
