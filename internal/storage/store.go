// Package storage persists forecast archives across restarts as versioned
// JSON files, one file per key.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const SchemaVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Key     string          `json:"key"`
	Data    json.RawMessage `json:"data"`
}

type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(zap.String("component", "storage")),
	}, nil
}

// Load reads the value stored under key into v. Returns false when no data
// exists or the schema version does not match (stale formats are treated
// as absent, not as errors).
func (s *Store) Load(key string, v any) (bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: read %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	if env.Version != SchemaVersion {
		s.logger.Warn("discarding stored data with old schema version",
			zap.String("key", key), zap.Int("version", env.Version))
		return false, nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return false, fmt.Errorf("storage: decode %s data: %w", key, err)
	}
	return true, nil
}

// Save writes the value under key atomically (temp file plus rename).
func (s *Store) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{
		Version: SchemaVersion,
		Key:     key,
		Data:    data,
	})
	if err != nil {
		return fmt.Errorf("storage: encode %s envelope: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
