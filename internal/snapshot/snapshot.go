// Package snapshot persists the two programme generations used for change
// detection: the current snapshot and the one it replaced.
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/niksodev/mcz-watcher/internal"
)

const (
	currentFile  = "state.json"
	previousFile = "previous.json"
)

// Store keeps exactly two snapshot generations as JSON files under dir.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) currentPath() string  { return filepath.Join(s.dir, currentFile) }
func (s *Store) previousPath() string { return filepath.Join(s.dir, previousFile) }

// Rotate copies the existing current slot verbatim into the previous slot,
// then overwrites current with snap. On the first-ever run there is no
// current slot and the previous write is silently skipped.
func (s *Store) Rotate(snap internal.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	raw, err := os.ReadFile(s.currentPath())
	if err == nil {
		if err := os.WriteFile(s.previousPath(), raw, 0o600); err != nil {
			return fmt.Errorf("write previous snapshot: %w", err)
		}
	} else if !os.IsNotExist(err) {
		slog.Warn("snapshot: current slot unreadable, skipping previous", "error", err)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.currentPath(), out, 0o600); err != nil {
		return fmt.Errorf("write current snapshot: %w", err)
	}
	return nil
}

// Current returns the current snapshot, or nil on any read or parse
// failure.
func (s *Store) Current() *internal.Snapshot {
	return load(s.currentPath())
}

// Previous returns the snapshot that was current before the most recent
// rotation, or nil on any read or parse failure (including first run).
func (s *Store) Previous() *internal.Snapshot {
	return load(s.previousPath())
}

func load(path string) *internal.Snapshot {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var snap internal.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		slog.Warn("snapshot: unparseable slot, treating as absent", "path", path, "error", err)
		return nil
	}
	return &snap
}
