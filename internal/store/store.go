// Package store implements the durable snapshot store: the entire dataset is
// persisted as one JSON document, rewritten atomically on every mutation.
//
// WHY A SINGLE JSON FILE INSTEAD OF A DATABASE?
// The board holds at most one day of small items. A full-document rewrite is
// a few kilobytes, and it gives us crash safety with two syscalls:
//
//  1. Write the new snapshot to db.json.tmp
//  2. os.Rename(db.json.tmp, db.json)
//
// Rename on the same filesystem is atomic at the OS level, so any observer —
// including this process restarting after a crash mid-write — sees either the
// previous complete snapshot or the new complete snapshot, never a torn one.
// The temp file is never the file Load reads.
//
// CORRUPTION POLICY:
// A snapshot that isn't a well-formed JSON object is quarantined: renamed to
// db.json.bad-<millis> (never overwritten in place, so the evidence survives
// for inspection) and a fresh empty dataset is synthesized and persisted.
// Individually malformed fields inside a well-formed object are coerced to
// defaults instead, so a partially-corrupt file loses only the bad fields.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xfsay/xmg-hall/internal/daycycle"
	"github.com/xfsay/xmg-hall/internal/model"
)

const (
	snapshotFile = "db.json"
	tempSuffix   = ".tmp"
)

// Store reads and writes the dataset snapshot under a single data directory.
type Store struct {
	dir    string
	path   string
	logger *slog.Logger
}

// New creates a Store rooted at dir. The directory itself is created lazily
// on the first save/load, so constructing a Store never touches the disk.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		path:   filepath.Join(dir, snapshotFile),
		logger: logger,
	}
}

// Path returns the canonical snapshot path. Exposed for tests and logs.
func (s *Store) Path() string {
	return s.path
}

// rawDataset mirrors model.Dataset but defers the items field, so a corrupt
// items value (e.g. a string where an array should be) can be coerced to an
// empty list without rejecting the whole snapshot.
type rawDataset struct {
	DayKey       string              `json:"dayKey"`
	Items        json.RawMessage     `json:"items"`
	Announcement *model.Announcement `json:"announcement"`
}

// Load reads the snapshot from disk, self-healing as needed:
//
//   - no file  → synthesize a fresh empty dataset for today and persist it
//   - unparsable file → quarantine it, then synthesize and persist fresh
//   - well-formed file with bad fields → coerce field-by-field
//
// Load never fails the process for a bad snapshot; the only errors it
// returns are real I/O problems (permissions, disk gone).
func (s *Store) Load(now time.Time) (*model.Dataset, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating data dir: %w", err)
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.reset(now)
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading snapshot: %w", err)
	}

	var parsed rawDataset
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return s.quarantineAndReset(now, err)
	}

	// Field-level coercion: each bad or missing field falls back to its
	// default rather than discarding the rest of the snapshot.
	ds := &model.Dataset{
		DayKey:       parsed.DayKey,
		Items:        []model.Item{},
		Announcement: parsed.Announcement,
	}
	if ds.DayKey == "" {
		ds.DayKey = daycycle.Key(now)
	}
	if len(parsed.Items) > 0 {
		var items []model.Item
		if err := json.Unmarshal(parsed.Items, &items); err == nil && items != nil {
			ds.Items = items
		} else if err != nil {
			s.logger.Warn("snapshot items field malformed, coercing to empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
	}

	return ds, nil
}

// Save writes the full dataset to a temp file and atomically renames it over
// the canonical path. Any failure means the snapshot on disk is still the
// previous complete one; the caller must treat the operation as not-committed.
func (s *Store) Save(ds *model.Dataset) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("store: creating data dir: %w", err)
	}

	// MarshalIndent keeps the file human-readable — handy when operating a
	// tiny board by hand, and the size cost is irrelevant at this scale.
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding snapshot: %w", err)
	}

	tmp := s.path + tempSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: writing temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: committing snapshot: %w", err)
	}

	return nil
}

// quarantineAndReset moves the unparsable snapshot aside under a timestamped
// name and starts over with a fresh dataset. The bad file is renamed, never
// deleted or overwritten.
func (s *Store) quarantineAndReset(now time.Time, cause error) (*model.Dataset, error) {
	badPath := fmt.Sprintf("%s.bad-%d", s.path, now.UnixMilli())
	if err := os.Rename(s.path, badPath); err != nil {
		return nil, fmt.Errorf("store: quarantining corrupt snapshot: %w", err)
	}

	s.logger.Warn("corrupt snapshot quarantined",
		slog.String("quarantined", badPath),
		slog.String("error", cause.Error()),
	)

	return s.reset(now)
}

// reset synthesizes a fresh empty dataset for today and persists it
// immediately, so the next Load finds a valid file.
func (s *Store) reset(now time.Time) (*model.Dataset, error) {
	ds := model.NewDataset(daycycle.Key(now))
	if err := s.Save(ds); err != nil {
		return nil, err
	}
	return ds, nil
}
