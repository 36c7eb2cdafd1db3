package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// FileStore persists the rental registry snapshot as one JSON file,
// a map of request id to record. There is a single writer (the
// registry's mutation path), so a plain rewrite is sufficient; the
// provider remains the system of record.
type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With("component", "rental_store", "path", path),
	}
}

// Load reads the snapshot. A missing file is a first run and an
// unparseable file is treated the same way: both yield an empty map so
// the caller never fails on startup because of a bad local cache.
func (s *FileStore) Load() (map[string]domain.RentalRecord, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.RentalRecord{}, nil
		}
		s.logger.Warn("failed to read rental snapshot, starting empty", "error", err)
		return map[string]domain.RentalRecord{}, nil
	}

	var records map[string]domain.RentalRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn("rental snapshot is corrupt, starting empty", "error", err)
		return map[string]domain.RentalRecord{}, nil
	}
	if records == nil {
		records = map[string]domain.RentalRecord{}
	}
	return records, nil
}

// Save writes the full snapshot, creating the parent directory on
// first use. Failures are reported as PersistenceError; callers log
// and continue with in-memory state.
func (s *FileStore) Save(records map[string]domain.RentalRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}
