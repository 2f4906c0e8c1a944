package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := testStore(t)

	archive := domain.ForecastArchive{
		"2026-08-25": {10: 1200, 11: 1400},
	}
	require.NoError(t, s.Save("solcast_forecasts", archive))

	var loaded domain.ForecastArchive
	found, err := s.Load("solcast_forecasts", &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, archive, loaded)
}

func TestLoadMissingKey(t *testing.T) {
	s := testStore(t)

	var loaded domain.ForecastArchive
	found, err := s.Load("nothing_here", &loaded)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadDiscardsOldSchema(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	stale, err := json.Marshal(map[string]any{
		"version": SchemaVersion + 1,
		"key":     "forecasts",
		"data":    map[string]any{"2026-08-25": map[string]int{"10": 1200}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forecasts.json"), stale, 0o644))

	var loaded domain.ForecastArchive
	found, err := s.Load("forecasts", &loaded)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveOverwrites(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save("k", domain.HourlyCurve{1: 1}))
	require.NoError(t, s.Save("k", domain.HourlyCurve{2: 2}))

	var loaded domain.HourlyCurve
	found, err := s.Load("k", &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.HourlyCurve{2: 2}, loaded)
}
