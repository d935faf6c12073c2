// Package services wires the upstream source, the normalized cache, and the
// snapshot store into the programme operations the CLI and bot expose.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksodev/mcz-watcher/internal"
	"github.com/niksodev/mcz-watcher/internal/cache"
	"github.com/niksodev/mcz-watcher/internal/diff"
	"github.com/niksodev/mcz-watcher/internal/enrichment"
	"github.com/niksodev/mcz-watcher/internal/ingresso"
	"github.com/niksodev/mcz-watcher/internal/normalize"
	"github.com/niksodev/mcz-watcher/internal/snapshot"
)

const defaultHorizonDays = 14

// Programme serves the venue's daily programme, upcoming releases, and the
// watch cycle (fetch, snapshot rotation, change detection).
type Programme struct {
	source      ingresso.Source
	cache       *cache.Store
	snaps       *snapshot.Store
	enrichers   []internal.MovieEnricher
	horizonDays int
	now         func() time.Time
}

// ProgrammeOption configures the service.
type ProgrammeOption func(*Programme)

// WithEnrichers adds best-effort static-record enrichers, applied before
// records are merged into the cache.
func WithEnrichers(enrichers ...internal.MovieEnricher) ProgrammeOption {
	return func(p *Programme) {
		p.enrichers = append(p.enrichers, enrichers...)
	}
}

// WithHorizon sets how many future days feed the upcoming list.
func WithHorizon(days int) ProgrammeOption {
	return func(p *Programme) {
		if days > 0 {
			p.horizonDays = days
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ProgrammeOption {
	return func(p *Programme) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProgramme(source ingresso.Source, store *cache.Store, snaps *snapshot.Store, opts ...ProgrammeOption) *Programme {
	p := &Programme{
		source:      source,
		cache:       store,
		snaps:       snaps,
		horizonDays: defaultHorizonDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DayView is one day's denormalized programme.
type DayView struct {
	Movies    []internal.MovieShowtimes
	Date      string
	FromCache bool
}

// Day returns the composite view for one date (YYYY-MM-DD; empty = today).
// The cache is consulted first unless refresh is set; on a miss the day is
// fetched, normalized, enriched, and stored before denormalizing.
func (p *Programme) Day(ctx context.Context, date string, refresh bool) (*DayView, error) {
	target := date
	if target == "" {
		target = p.cache.Today()
	}
	if !refresh {
		if env, ok := p.cache.GetSessions(target, p.source.SourceID()); ok {
			return &DayView{
				Movies:    normalize.Denormalize(p.cache.AllMovies(), env.Items),
				Date:      target,
				FromCache: true,
			}, nil
		}
	}

	payload, err := p.source.Day(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch day listings: %w", err)
	}
	res := normalize.Day(payload, p.now())
	enrichment.Enrich(ctx, res.Movies, p.enrichers...)
	p.cache.MergeMovies(res.Movies)
	day := res.Date
	if day == "" {
		day = target
	}
	p.cache.SetSessions(day, p.source.SourceID(), res.Sessions, res.FetchedAt)

	return &DayView{
		Movies: normalize.Denormalize(p.cache.AllMovies(), res.Sessions),
		Date:   day,
	}, nil
}

// Upcoming returns the annotated not-yet-showing titles, cache-first. The
// bool reports whether the cache served it.
func (p *Programme) Upcoming(ctx context.Context) ([]internal.UpcomingMovie, bool, error) {
	sourceID := p.source.SourceID()
	if env, ok := p.cache.GetUpcoming(sourceID); ok {
		return env.Items, true, nil
	}

	today, err := p.Day(ctx, "", false)
	if err != nil {
		return nil, false, err
	}
	todayIDs := make(map[string]bool, len(today.Movies))
	for _, m := range today.Movies {
		todayIDs[m.ID] = true
	}

	future, err := p.source.Future(ctx, p.horizonDays)
	if err != nil {
		return nil, false, fmt.Errorf("fetch future listings: %w", err)
	}
	items := normalize.Upcoming(future, todayIDs)
	p.cache.SetUpcoming(sourceID, items, p.now())
	return items, false, nil
}

// WatchResult is one watch cycle's output: the fresh view plus what changed
// since the previous cycle.
type WatchResult struct {
	View   *DayView
	Report internal.ChangeReport
}

// Watch fetches today fresh, rotates the snapshot generations, and diffs
// the new snapshot against the one the previous cycle produced. A snapshot
// persistence failure degrades to a first-run diff rather than failing the
// cycle.
func (p *Programme) Watch(ctx context.Context) (*WatchResult, error) {
	view, err := p.Day(ctx, "", true)
	if err != nil {
		return nil, err
	}

	snap := SnapshotFromView(view.Movies, p.now())
	previous := p.snaps.Current()
	if err := p.snaps.Rotate(snap); err != nil {
		slog.Warn("watch: snapshot rotation failed, continuing", "error", err)
	}
	report := diff.Detect(previous, &snap)
	slog.Debug("watch cycle complete", "date", view.Date, "movies", len(view.Movies), "summary", report.Summary)

	return &WatchResult{View: view, Report: report}, nil
}

// SnapshotFromView projects the composite view down to the name and
// session-id pairs used for change detection.
func SnapshotFromView(movies []internal.MovieShowtimes, at time.Time) internal.Snapshot {
	snap := internal.Snapshot{
		Movies:    make([]internal.SnapshotMovie, 0, len(movies)),
		FetchedAt: at,
	}
	for _, m := range movies {
		ids := make([]string, 0, len(m.Sessions))
		for _, s := range m.Sessions {
			ids = append(ids, s.SessionID)
		}
		snap.Movies = append(snap.Movies, internal.SnapshotMovie{Name: m.Name, Sessions: ids})
	}
	return snap
}
