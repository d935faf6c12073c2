package root

import (
	"bytes"
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niksodev/mcz-watcher/internal/ingresso"
	"github.com/niksodev/mcz-watcher/internal/services"
)

type scriptedSource struct {
	day    *ingresso.DayListings
	future []ingresso.DayListings
}

func (s *scriptedSource) SourceID() string { return "scripted" }

func (s *scriptedSource) Day(_ context.Context, _ string) (*ingresso.DayListings, error) {
	return s.day, nil
}

func (s *scriptedSource) Future(_ context.Context, _ int) ([]ingresso.DayListings, error) {
	return s.future, nil
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		day: &ingresso.DayListings{
			Date: "2026-02-23",
			Movies: []ingresso.Movie{{
				ID:    "m1",
				Title: "O Filme",
				SessionTypes: []ingresso.SessionGroup{{
					Sessions: []ingresso.Session{{ID: "s1", Time: "19:00"}},
				}},
			}},
		},
		future: []ingresso.DayListings{{
			Date:   "2026-02-26",
			Movies: []ingresso.Movie{{ID: "m9", Title: "Estreia"}},
		}},
	}
}

func TestUnit_Root_TodayRendersProgramme(t *testing.T) {
	t.Setenv("MCZ_WATCHER_DATA_DIR", t.TempDir())
	var out bytes.Buffer
	cmd := Root(WithSource(newScriptedSource()), WithOutput(&out))

	err := cmd.Run(context.Background(), []string{"mcz-watcher", "today"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Programme for 2026-02-23")
	assert.Contains(t, out.String(), "O Filme")
	assert.Contains(t, out.String(), "19:00")
}

func TestUnit_Root_TodayJSONOutput(t *testing.T) {
	t.Setenv("MCZ_WATCHER_DATA_DIR", t.TempDir())
	var out bytes.Buffer
	cmd := Root(WithSource(newScriptedSource()), WithOutput(&out))

	err := cmd.Run(context.Background(), []string{"mcz-watcher", "today", "--json"})
	require.NoError(t, err)

	var view services.DayView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "2026-02-23", view.Date)
	require.Len(t, view.Movies, 1)
	assert.Equal(t, "O Filme", view.Movies[0].Name)
}

func TestUnit_Root_UpcomingRendersList(t *testing.T) {
	t.Setenv("MCZ_WATCHER_DATA_DIR", t.TempDir())
	var out bytes.Buffer
	cmd := Root(WithSource(newScriptedSource()), WithOutput(&out))

	err := cmd.Run(context.Background(), []string{"mcz-watcher", "upcoming"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Estreia")
	assert.Contains(t, out.String(), "2026-02-26")
}

func TestUnit_Root_WatchReportsChangesAcrossRuns(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("MCZ_WATCHER_DATA_DIR", dataDir)
	source := newScriptedSource()

	var first bytes.Buffer
	err := Root(WithSource(source), WithOutput(&first)).
		Run(context.Background(), []string{"mcz-watcher", "watch"})
	require.NoError(t, err)
	assert.Contains(t, first.String(), "1 new movie(s)")

	var second bytes.Buffer
	err = Root(WithSource(source), WithOutput(&second)).
		Run(context.Background(), []string{"mcz-watcher", "watch"})
	require.NoError(t, err)
	assert.Contains(t, second.String(), "No changes")
}

func TestUnit_Root_WatchNotifyRequiresTelegramConfig(t *testing.T) {
	t.Setenv("MCZ_WATCHER_DATA_DIR", t.TempDir())
	var out bytes.Buffer
	cmd := Root(WithSource(newScriptedSource()), WithOutput(&out))

	err := cmd.Run(context.Background(), []string{"mcz-watcher", "watch", "--notify"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
}

func TestUnit_Root_PricesRequiresURLArgument(t *testing.T) {
	var out bytes.Buffer
	cmd := Root(WithOutput(&out))

	err := cmd.Run(context.Background(), []string{"mcz-watcher", "prices"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout URL")
}
