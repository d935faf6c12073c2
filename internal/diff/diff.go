// Package diff computes the structural change report between two programme
// snapshots.
package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/niksodev/mcz-watcher/internal"
)

// normName collapses cosmetic differences in movie names so they do not
// register as a different movie: trim, lowercase, and single internal
// spaces.
func normName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

type entry struct {
	name     string
	sessions map[string]bool
}

func index(snap *internal.Snapshot) map[string]entry {
	out := make(map[string]entry)
	if snap == nil {
		return out
	}
	for _, m := range snap.Movies {
		sessions := make(map[string]bool, len(m.Sessions))
		for _, s := range m.Sessions {
			sessions[s] = true
		}
		out[normName(m.Name)] = entry{name: m.Name, sessions: sessions}
	}
	return out
}

// Detect compares the previous snapshot with the current one. previous may
// be nil (first-ever run): every current movie is then reported as added.
// Output order follows snapshot order, so reports are deterministic.
func Detect(previous, current *internal.Snapshot) internal.ChangeReport {
	report := internal.ChangeReport{
		AddedMovies:     []string{},
		RemovedMovies:   []string{},
		AddedSessions:   []internal.SessionDelta{},
		RemovedSessions: []internal.SessionDelta{},
	}

	prev := index(previous)
	curr := index(current)

	seen := make(map[string]bool)
	if current != nil {
		for _, m := range current.Movies {
			key := normName(m.Name)
			if seen[key] {
				continue
			}
			seen[key] = true

			before, existed := prev[key]
			if !existed {
				report.AddedMovies = append(report.AddedMovies, m.Name)
				continue
			}
			now := curr[key]
			var added, removed []string
			for _, s := range m.Sessions {
				if !before.sessions[s] {
					added = append(added, s)
				}
			}
			for s := range before.sessions {
				if !now.sessions[s] {
					removed = append(removed, s)
				}
			}
			slices.Sort(removed)
			if len(added) > 0 {
				report.AddedSessions = append(report.AddedSessions, internal.SessionDelta{Movie: m.Name, Times: added})
			}
			if len(removed) > 0 {
				report.RemovedSessions = append(report.RemovedSessions, internal.SessionDelta{Movie: m.Name, Times: removed})
			}
		}
	}

	seen = make(map[string]bool)
	if previous != nil {
		for _, m := range previous.Movies {
			key := normName(m.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, stillHere := curr[key]; !stillHere {
				report.RemovedMovies = append(report.RemovedMovies, m.Name)
			}
		}
	}

	report.HasChanges = len(report.AddedMovies) > 0 ||
		len(report.RemovedMovies) > 0 ||
		len(report.AddedSessions) > 0 ||
		len(report.RemovedSessions) > 0
	report.Summary = summarize(report)
	return report
}

func summarize(r internal.ChangeReport) string {
	var parts []string
	if n := len(r.AddedMovies); n > 0 {
		parts = append(parts, fmt.Sprintf("%d new movie(s)", n))
	}
	if n := len(r.RemovedMovies); n > 0 {
		parts = append(parts, fmt.Sprintf("%d movie(s) removed", n))
	}
	if len(r.AddedSessions) > 0 {
		parts = append(parts, "sessions added")
	}
	if len(r.RemovedSessions) > 0 {
		parts = append(parts, "sessions removed")
	}
	if len(parts) == 0 {
		return "No changes"
	}
	return strings.Join(parts, ", ")
}
