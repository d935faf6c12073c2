// Package cache holds the normalized programme cache: a long-lived static
// movie map merged on insert, plus short-lived per-day session envelopes
// keyed by (day, source) that expire on the venue-local calendar day
// rollover, not on wall-clock age.
package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/niksodev/mcz-watcher/internal"
)

// Envelope wraps a cached value set with the timestamp it was fetched at.
// An envelope is valid only while FetchedAt falls on the same venue-local
// calendar day as now.
type Envelope[T any] struct {
	FetchedAt time.Time `json:"fetched_at"`
	Items     []T       `json:"items"`
}

// fileLayout is the persisted shape of the cache document.
type fileLayout struct {
	Movies          map[string]internal.MovieStatic                  `json:"movies"`
	Sessions        map[string]map[string]Envelope[internal.Session] `json:"sessions"` // day -> sourceID -> envelope
	Upcoming        map[string]Envelope[internal.UpcomingMovie]      `json:"upcoming"` // sourceID -> envelope
	MoviesUpdatedAt *time.Time                                       `json:"movies_updated_at"`
}

func emptyLayout() fileLayout {
	return fileLayout{
		Movies:   make(map[string]internal.MovieStatic),
		Sessions: make(map[string]map[string]Envelope[internal.Session]),
		Upcoming: make(map[string]Envelope[internal.UpcomingMovie]),
	}
}

// Store is the normalized cache. One process owns its backing file
// exclusively; operations are not safe for concurrent use from multiple
// goroutines, matching the single sequential fetch-and-update cycle the
// watcher runs.
type Store struct {
	path string
	loc  *time.Location
	now  func() time.Time
	data fileLayout
}

// Option configures a Store (e.g. for tests).
type Option func(*Store)

// WithClock overrides the time source used for expiry decisions and
// merge timestamps. Use in tests to pin the venue-local day.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a store persisting to path and observing calendar days
// in loc. Call Load before first use.
func NewStore(path string, loc *time.Location, opts ...Option) *Store {
	s := &Store{
		path: path,
		loc:  loc,
		now:  time.Now,
		data: emptyLayout(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// localDay formats t as a venue-local calendar day key (YYYY-MM-DD).
func (s *Store) localDay(t time.Time) string {
	return t.In(s.loc).Format(time.DateOnly)
}

// Today returns the current venue-local calendar day key.
func (s *Store) Today() string {
	return s.localDay(s.now())
}

// Load reads the backing file. A missing file is a normal empty start; an
// unreadable or corrupt file logs a warning and reinitializes the store to
// empty. Never fatal.
func (s *Store) Load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cache: unreadable backing file, reinitializing", "path", s.path, "error", err)
		}
		s.data = emptyLayout()
		return
	}
	var loaded fileLayout
	if err := json.Unmarshal(raw, &loaded); err != nil {
		slog.Warn("cache: corrupt backing file, reinitializing", "path", s.path, "error", err)
		s.data = emptyLayout()
		return
	}
	if loaded.Movies == nil {
		loaded.Movies = make(map[string]internal.MovieStatic)
	}
	if loaded.Sessions == nil {
		loaded.Sessions = make(map[string]map[string]Envelope[internal.Session])
	}
	if loaded.Upcoming == nil {
		loaded.Upcoming = make(map[string]Envelope[internal.UpcomingMovie])
	}
	s.data = loaded
}

// save persists the store. Failures are logged and swallowed: the store
// keeps operating in memory for the rest of the process lifetime.
func (s *Store) save() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		slog.Warn("cache: create data dir failed, continuing in-memory", "path", s.path, "error", err)
		return
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		slog.Warn("cache: marshal failed, continuing in-memory", "error", err)
		return
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		slog.Warn("cache: write failed, continuing in-memory", "path", s.path, "error", err)
	}
}

// MergeMovies inserts the static records whose ids are not yet present and
// returns how many were inserted. Existing records are never overwritten:
// first write wins, because catalog metadata is assumed immutable.
func (s *Store) MergeMovies(movies map[string]internal.MovieStatic) int {
	added := 0
	for id, movie := range movies {
		if _, ok := s.data.Movies[id]; ok {
			continue
		}
		s.data.Movies[id] = movie
		added++
	}
	if added > 0 {
		at := s.now()
		s.data.MoviesUpdatedAt = &at
		slog.Debug("cache: merged static movies", "added", added)
	}
	return added
}

// SetSessions replaces the whole (day, sourceID) session set with a fresh
// envelope, purges envelopes for past venue-local days, and persists.
// Replacement is a single assignment: readers never observe a mix of old
// and new records.
func (s *Store) SetSessions(day, sourceID string, items []internal.Session, fetchedAt time.Time) {
	if s.data.Sessions[day] == nil {
		s.data.Sessions[day] = make(map[string]Envelope[internal.Session])
	}
	s.data.Sessions[day][sourceID] = Envelope[internal.Session]{FetchedAt: fetchedAt, Items: items}
	s.purgeOldSessions()
	s.save()
	slog.Debug("cache: stored sessions", "day", day, "source", sourceID, "count", len(items))
}

// GetSessions returns the cached envelope for (day, sourceID) only when it
// was fetched on the current venue-local calendar day. A stale envelope is
// evicted and reported as a miss, even if fewer than 24 hours have passed.
func (s *Store) GetSessions(day, sourceID string) (Envelope[internal.Session], bool) {
	bySource, ok := s.data.Sessions[day]
	if !ok {
		return Envelope[internal.Session]{}, false
	}
	env, ok := bySource[sourceID]
	if !ok || env.FetchedAt.IsZero() {
		return Envelope[internal.Session]{}, false
	}
	today := s.Today()
	if s.localDay(env.FetchedAt) != today {
		slog.Debug("cache: session envelope expired", "day", day, "source", sourceID,
			"fetched_day", s.localDay(env.FetchedAt), "today", today)
		delete(bySource, sourceID)
		if len(bySource) == 0 {
			delete(s.data.Sessions, day)
		}
		return Envelope[internal.Session]{}, false
	}
	return env, true
}

// SetUpcoming stores the upcoming list for a source and persists.
func (s *Store) SetUpcoming(sourceID string, items []internal.UpcomingMovie, fetchedAt time.Time) {
	s.data.Upcoming[sourceID] = Envelope[internal.UpcomingMovie]{FetchedAt: fetchedAt, Items: items}
	s.save()
	slog.Debug("cache: stored upcoming", "source", sourceID, "count", len(items))
}

// GetUpcoming returns a source's upcoming envelope under the same
// calendar-day validity rule as GetSessions.
func (s *Store) GetUpcoming(sourceID string) (Envelope[internal.UpcomingMovie], bool) {
	env, ok := s.data.Upcoming[sourceID]
	if !ok || env.FetchedAt.IsZero() {
		return Envelope[internal.UpcomingMovie]{}, false
	}
	if s.localDay(env.FetchedAt) != s.Today() {
		slog.Debug("cache: upcoming envelope expired", "source", sourceID)
		delete(s.data.Upcoming, sourceID)
		return Envelope[internal.UpcomingMovie]{}, false
	}
	return env, true
}

// Movie returns one static record by id.
func (s *Store) Movie(id string) (internal.MovieStatic, bool) {
	m, ok := s.data.Movies[id]
	return m, ok
}

// AllMovies returns the static movie map. Callers must not mutate it.
func (s *Store) AllMovies() map[string]internal.MovieStatic {
	return s.data.Movies
}

// MoviesUpdatedAt reports when a static record was last inserted, or nil if
// none ever was.
func (s *Store) MoviesUpdatedAt() *time.Time {
	return s.data.MoviesUpdatedAt
}

// Save persists the current in-memory state. Most mutations persist
// themselves; this exists for callers that batch MergeMovies.
func (s *Store) Save() {
	s.save()
}

// purgeOldSessions drops session envelopes for days strictly before the
// current venue-local day.
func (s *Store) purgeOldSessions() {
	today := s.Today()
	for day := range s.data.Sessions {
		if day < today {
			delete(s.data.Sessions, day)
		}
	}
}
