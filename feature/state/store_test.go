package state

import (
	"testing"
	"time"

	"country-feed-sync/feature/projection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store, err := NewStore(db, zap.NewNop())
	require.NoError(t, err)
	return store
}

func row(variantID, country string, quantity int) projection.CountryVariant {
	return projection.CountryVariant{
		VariantID:   variantID,
		CountryCode: country,
		Quantity:    quantity,
		SKU:         "SKU-" + variantID,
		ProductID:   "100",
	}
}

func TestDiffFirstRunReportsEverythingNew(t *testing.T) {
	store := newTestStore(t)

	current := []projection.CountryVariant{
		row("1", "DE", 5),
		row("1", "FR", 0),
		row("2", "DE", 3),
	}

	newRows, changedRows, err := store.Diff(current)
	require.NoError(t, err)
	assert.Len(t, newRows, 3)
	assert.Empty(t, changedRows)
}

func TestDiffAfterCommitReportsNothing(t *testing.T) {
	store := newTestStore(t)

	current := []projection.CountryVariant{
		row("1", "DE", 5),
		row("2", "DE", 0),
	}
	require.NoError(t, store.Commit(current))

	newRows, changedRows, err := store.Diff(current)
	require.NoError(t, err)
	assert.Empty(t, newRows)
	assert.Empty(t, changedRows)
}

func TestDiffDetectsAvailabilityFlip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Commit([]projection.CountryVariant{
		row("1", "DE", 5),
		row("2", "DE", 0),
	}))

	// Variant 1 sells out, variant 2 restocks, variant 3 is brand new.
	current := []projection.CountryVariant{
		row("1", "DE", 0),
		row("2", "DE", 7),
		row("3", "DE", 1),
	}

	newRows, changedRows, err := store.Diff(current)
	require.NoError(t, err)

	require.Len(t, newRows, 1)
	assert.Equal(t, "3-DE", newRows[0].Key())

	require.Len(t, changedRows, 2)
	keys := []string{changedRows[0].Key(), changedRows[1].Key()}
	assert.ElementsMatch(t, []string{"1-DE", "2-DE"}, keys)
}

func TestDiffIgnoresQuantityChangeWithinSameAvailability(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Commit([]projection.CountryVariant{row("1", "DE", 5)}))

	newRows, changedRows, err := store.Diff([]projection.CountryVariant{row("1", "DE", 2)})
	require.NoError(t, err)
	assert.Empty(t, newRows)
	assert.Empty(t, changedRows)
}

func TestCommitLeavesUnobservedKeysIntact(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Commit([]projection.CountryVariant{
		row("1", "DE", 5),
		row("2", "DE", 5),
	}))

	// An incremental run only observed variant 1.
	require.NoError(t, store.Commit([]projection.CountryVariant{row("1", "DE", 0)}))

	newRows, changedRows, err := store.Diff([]projection.CountryVariant{
		row("1", "DE", 0),
		row("2", "DE", 5),
	})
	require.NoError(t, err)
	assert.Empty(t, newRows)
	assert.Empty(t, changedRows)
}

func TestResetClearsAllVariantState(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Commit([]projection.CountryVariant{row("1", "DE", 5)}))
	require.NoError(t, store.Reset())

	newRows, _, err := store.Diff([]projection.CountryVariant{row("1", "DE", 5)})
	require.NoError(t, err)
	assert.Len(t, newRows, 1)
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadCheckpoint()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCheckpoint(first))

	loaded, err = store.LoadCheckpoint()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Equal(first))

	second := first.Add(time.Hour)
	require.NoError(t, store.SaveCheckpoint(second))

	loaded, err = store.LoadCheckpoint()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Equal(second))
}

func TestFingerprintRoundTrip(t *testing.T) {
	store := newTestStore(t)

	value, err := store.LoadFingerprint()
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SaveFingerprint("abc123"))

	value, err = store.LoadFingerprint()
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)

	require.NoError(t, store.SaveFingerprint("def456"))

	value, err = store.LoadFingerprint()
	require.NoError(t, err)
	assert.Equal(t, "def456", value)

	require.NoError(t, store.ClearFingerprint())

	value, err = store.LoadFingerprint()
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestStatsSummarizesPersistedState(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Commit([]projection.CountryVariant{
		row("1", "DE", 5),
		row("2", "DE", 0),
		row("3", "FR", 2),
	}))
	checkpoint := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCheckpoint(checkpoint))
	require.NoError(t, store.SaveFingerprint("abc123"))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.VariantCount)
	assert.Equal(t, int64(2), stats.InStockCount)
	assert.Equal(t, int64(1), stats.OutOfStockCount)
	require.NotNil(t, stats.LastRun)
	assert.True(t, stats.LastRun.Equal(checkpoint))
	assert.True(t, stats.HasFingerprint)
}
