package state

import (
	"errors"
	"fmt"
	"time"

	"country-feed-sync/feature/projection"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// singletonID is the row id of the checkpoint and fingerprint records.
const singletonID = 1

// commitBatchSize bounds one insert statement during Commit.
const commitBatchSize = 500

// Store persists per-key variant availability, the sync checkpoint and the
// mapping fingerprint. One store instance owns the state database for the
// duration of a run; concurrent invocations are not supported.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates the store and migrates its tables.
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&VariantState{}, &SyncCheckpoint{}, &MappingFingerprint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state tables: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Diff partitions the current rows into new (no persisted state for the key)
// and changed (persisted availability differs). Unchanged rows appear in
// neither list. The persisted state is read wholesale once per call.
func (s *Store) Diff(current []projection.CountryVariant) (newRows, changedRows []projection.CountryVariant, err error) {
	if len(current) == 0 {
		return nil, nil, nil
	}

	var persisted []VariantState
	if err := s.db.Find(&persisted).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load variant states: %w", err)
	}

	known := make(map[string]string, len(persisted))
	for _, row := range persisted {
		known[row.Key] = row.Availability
	}

	for _, row := range current {
		previous, seen := known[row.Key()]
		switch {
		case !seen:
			newRows = append(newRows, row)
		case previous != string(row.Availability()):
			changedRows = append(changedRows, row)
		}
	}

	s.logger.Info("State comparison",
		zap.Int("current", len(current)),
		zap.Int("new", len(newRows)),
		zap.Int("changed", len(changedRows)))

	return newRows, changedRows, nil
}

// Commit upserts availability and a fresh timestamp for every key observed
// in this run. Keys not observed keep their previous state; only Reset
// prunes them.
func (s *Store) Commit(current []projection.CountryVariant) error {
	if len(current) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]VariantState, 0, len(current))
	for _, row := range current {
		records = append(records, VariantState{
			Key:          row.Key(),
			Availability: string(row.Availability()),
			UpdatedAt:    now,
		})
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"availability", "updated_at"}),
	}).CreateInBatches(records, commitBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to commit variant states: %w", err)
	}

	s.logger.Info("Committed variant states", zap.Int("count", len(records)))
	return nil
}

// Reset clears all per-key state. Used at the start of a FULL sync so the
// subsequent commit rebuilds every active key from scratch.
func (s *Store) Reset() error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&VariantState{}).Error; err != nil {
		return fmt.Errorf("failed to reset variant states: %w", err)
	}
	s.logger.Info("Variant states reset")
	return nil
}

// LoadCheckpoint returns the last successful run timestamp, or nil when no
// run has ever completed.
func (s *Store) LoadCheckpoint() (*time.Time, error) {
	var checkpoint SyncCheckpoint
	err := s.db.First(&checkpoint, singletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	t := checkpoint.LastRun
	return &t, nil
}

// SaveCheckpoint records the last successful run timestamp. Callers invoke
// it only after output files were written (or there was provably nothing to
// write); partial runs never reach it.
func (s *Store) SaveCheckpoint(t time.Time) error {
	record := SyncCheckpoint{ID: singletonID, LastRun: t.UTC(), UpdatedAt: time.Now().UTC()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_run", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	s.logger.Info("Checkpoint saved", zap.Time("last_run", record.LastRun))
	return nil
}

// LoadFingerprint returns the persisted mapping fingerprint, or an empty
// string when none has been stored yet.
func (s *Store) LoadFingerprint() (string, error) {
	var record MappingFingerprint
	err := s.db.First(&record, singletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load mapping fingerprint: %w", err)
	}
	return record.Value, nil
}

// SaveFingerprint stores the mapping fingerprint, replacing any previous one.
func (s *Store) SaveFingerprint(fingerprint string) error {
	record := MappingFingerprint{ID: singletonID, Value: fingerprint, UpdatedAt: time.Now().UTC()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save mapping fingerprint: %w", err)
	}
	return nil
}

// ClearFingerprint drops the persisted fingerprint so the next change
// detection reports a first run.
func (s *Store) ClearFingerprint() error {
	err := s.db.Delete(&MappingFingerprint{}, singletonID).Error
	if err != nil {
		return fmt.Errorf("failed to clear mapping fingerprint: %w", err)
	}
	s.logger.Info("Mapping fingerprint cleared")
	return nil
}

// Stats summarizes the persisted state for the debug command.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	if err := s.db.Model(&VariantState{}).Count(&stats.VariantCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count variant states: %w", err)
	}
	if err := s.db.Model(&VariantState{}).Where("availability = ?", string(projection.InStock)).Count(&stats.InStockCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count in-stock states: %w", err)
	}
	stats.OutOfStockCount = stats.VariantCount - stats.InStockCount

	checkpoint, err := s.LoadCheckpoint()
	if err != nil {
		return nil, err
	}
	stats.LastRun = checkpoint

	fingerprint, err := s.LoadFingerprint()
	if err != nil {
		return nil, err
	}
	stats.HasFingerprint = fingerprint != ""

	return stats, nil
}
