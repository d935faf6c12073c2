package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niksodev/mcz-watcher/internal"
)

func snap(movies ...internal.SnapshotMovie) *internal.Snapshot {
	return &internal.Snapshot{Movies: movies}
}

func TestUnit_Detect_ReportsAllFourChangeKinds(t *testing.T) {
	previous := snap(
		internal.SnapshotMovie{Name: "Movie One", Sessions: []string{"s1", "s2"}},
		internal.SnapshotMovie{Name: "Movie Two", Sessions: []string{"s3"}},
	)
	current := snap(
		internal.SnapshotMovie{Name: "Movie One", Sessions: []string{"s2", "s4"}},
		internal.SnapshotMovie{Name: "Movie Three", Sessions: []string{"s5"}},
	)

	report := Detect(previous, current)
	assert.Equal(t, []string{"Movie Three"}, report.AddedMovies)
	assert.Equal(t, []string{"Movie Two"}, report.RemovedMovies)
	require.Len(t, report.AddedSessions, 1)
	assert.Equal(t, "Movie One", report.AddedSessions[0].Movie)
	assert.Equal(t, []string{"s4"}, report.AddedSessions[0].Times)
	require.Len(t, report.RemovedSessions, 1)
	assert.Equal(t, []string{"s1"}, report.RemovedSessions[0].Times)
	assert.True(t, report.HasChanges)
	assert.Equal(t, "1 new movie(s), 1 movie(s) removed, sessions added, sessions removed", report.Summary)
}

func TestUnit_Detect_IdenticalSnapshotsReportNothing(t *testing.T) {
	a := snap(internal.SnapshotMovie{Name: "Movie One", Sessions: []string{"s1", "s2"}})
	b := snap(internal.SnapshotMovie{Name: "Movie One", Sessions: []string{"s1", "s2"}})

	report := Detect(a, b)
	assert.False(t, report.HasChanges)
	assert.Empty(t, report.AddedMovies)
	assert.Empty(t, report.RemovedMovies)
	assert.Empty(t, report.AddedSessions)
	assert.Empty(t, report.RemovedSessions)
	assert.Equal(t, "No changes", report.Summary)
}

func TestUnit_Detect_NormalizesCosmeticNameDifferences(t *testing.T) {
	previous := snap(internal.SnapshotMovie{Name: "  Movie   One ", Sessions: []string{"s1"}})
	current := snap(internal.SnapshotMovie{Name: "movie one", Sessions: []string{"s1"}})

	report := Detect(previous, current)
	assert.False(t, report.HasChanges, "casing and spacing never register as a different movie")
}

func TestUnit_Detect_NilPreviousMeansEverythingAdded(t *testing.T) {
	current := snap(
		internal.SnapshotMovie{Name: "Movie One", Sessions: []string{"s1"}},
		internal.SnapshotMovie{Name: "Movie Two", Sessions: []string{"s2"}},
	)

	report := Detect(nil, current)
	assert.Equal(t, []string{"Movie One", "Movie Two"}, report.AddedMovies)
	assert.Empty(t, report.RemovedMovies)
	assert.Empty(t, report.AddedSessions, "sessions of a new movie are not double-reported")
	assert.True(t, report.HasChanges)
}

func TestUnit_Detect_EmptyCurrentReportsAllRemoved(t *testing.T) {
	previous := snap(internal.SnapshotMovie{Name: "Movie One", Sessions: []string{"s1"}})

	report := Detect(previous, snap())
	assert.Equal(t, []string{"Movie One"}, report.RemovedMovies)
	assert.True(t, report.HasChanges)
}

func TestUnit_Detect_OutputOrderFollowsSnapshotOrder(t *testing.T) {
	current := snap(
		internal.SnapshotMovie{Name: "Zebra", Sessions: []string{"z1"}},
		internal.SnapshotMovie{Name: "Alpha", Sessions: []string{"a1"}},
	)

	report := Detect(snap(), current)
	assert.Equal(t, []string{"Zebra", "Alpha"}, report.AddedMovies)
}
