package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	incidents, err := Load(writeTestCSV(t, t.TempDir()))
	require.NoError(t, err)
	store, err := NewStore(incidents)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreHistory(t *testing.T) {
	store := newTestStore(t)

	history, err := store.History("Iraq")
	require.NoError(t, err)
	require.NotEmpty(t, history)

	total := 0
	for i, yc := range history {
		total += yc.Count
		if i > 0 {
			assert.Greater(t, yc.Year, history[i-1].Year, "years must be ascending")
		}
	}
	// 45 even-indexed rows plus the unlabeled Iraq row.
	assert.Equal(t, 46, total)

	// Lookup is case-insensitive.
	lower, err := store.History("iraq")
	require.NoError(t, err)
	assert.Equal(t, history, lower)
}

func TestStoreHistoryUnknownCountry(t *testing.T) {
	store := newTestStore(t)

	history, err := store.History("Atlantis")
	require.NoError(t, err, "unknown country is not an error")
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestStoreSimilar(t *testing.T) {
	store := newTestStore(t)

	nearby, err := store.Similar("South Asia", 28.0, 77.0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, nearby)
	assert.LessOrEqual(t, len(nearby), 10)

	for i, in := range nearby {
		assert.False(t, in.Latitude == 0 && in.Longitude == 0, "unplaced incident returned")
		if i > 0 {
			assert.GreaterOrEqual(t, in.DistanceKM, nearby[i-1].DistanceKM,
				"results must be sorted by distance ascending")
		}
	}
}

func TestStoreSimilarCap(t *testing.T) {
	store := newTestStore(t)

	nearby, err := store.Similar("South Asia", 28.0, 77.0, 3)
	require.NoError(t, err)
	assert.Len(t, nearby, 3)
}

func TestStoreMetadata(t *testing.T) {
	store := newTestStore(t)

	md, err := store.Metadata()
	require.NoError(t, err)

	assert.Equal(t, testAttacks, md.AttackTypes, "distinct values come back sorted")
	assert.Equal(t, testWeapons, md.WeaponTypes)
	assert.Equal(t, "Iraq", md.Countries[95])
	assert.Equal(t, "India", md.Countries[92])
	assert.Equal(t, "South Asia", md.Regions[6])
}

func TestStoreGlobeStats(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.GlobeStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	total := 0
	for _, cs := range stats {
		total += cs.Incidents
		assert.NotZero(t, cs.CountryID)
	}
	assert.Equal(t, store.Count(), total)
}
