package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/niksodev/mcz-watcher/internal"
)

func ptr[T any](v T) *T { return &v }

func TestUnit_Programme_GroupsSessionsByFormat(t *testing.T) {
	movies := []internal.MovieShowtimes{{
		Name: "O Filme",
		Sessions: []internal.SessionView{
			{Time: "19:00", Format: "2D", FullPrice: ptr(26.0)},
			{Time: "21:30", Format: "3D", FullPrice: ptr(32.0)},
			{Time: "14:30", Format: "2D", FullPrice: ptr(26.0)},
		},
	}}

	out := Programme(movies, "2026-02-23")
	assert.Contains(t, out, "<b>O Filme</b>")
	assert.Contains(t, out, "2D: 14:30, 19:00", "times within a format are sorted")
	assert.Contains(t, out, "3D: 21:30")
	assert.Contains(t, out, "R$ 26,00")
	assert.Contains(t, out, "23 de fevereiro de 2026")
}

func TestUnit_Programme_EmptyDay(t *testing.T) {
	out := Programme(nil, "2026-02-23")
	assert.Contains(t, out, "Nenhuma sessão encontrada")
}

func TestUnit_Programme_FreeSessionsGetFreeTag(t *testing.T) {
	movies := []internal.MovieShowtimes{{
		Name:     "Sessão Gratuita",
		Sessions: []internal.SessionView{{Time: "15:00", Format: "2D", Free: true}},
	}}
	out := Programme(movies, "2026-02-23")
	assert.Contains(t, out, "Gratuito")
}

func TestUnit_Programme_EscapesHTMLInNames(t *testing.T) {
	movies := []internal.MovieShowtimes{{
		Name:     "Tom & Jerry <3",
		Sessions: []internal.SessionView{{Time: "15:00", Format: "2D"}},
	}}
	out := Programme(movies, "2026-02-23")
	assert.Contains(t, out, "Tom &amp; Jerry &lt;3")
	assert.NotContains(t, out, "Tom & Jerry <3")
}

func TestUnit_Changes_RendersAllSections(t *testing.T) {
	report := internal.ChangeReport{
		AddedMovies:     []string{"Novo"},
		RemovedMovies:   []string{"Antigo"},
		AddedSessions:   []internal.SessionDelta{{Movie: "Em Cartaz", Times: []string{"s9"}}},
		RemovedSessions: []internal.SessionDelta{{Movie: "Em Cartaz", Times: []string{"s1"}}},
		Summary:         "1 new movie(s), 1 movie(s) removed, sessions added, sessions removed",
		HasChanges:      true,
	}

	out := Changes(report)
	assert.Contains(t, out, "+ Novo")
	assert.Contains(t, out, "- Antigo")
	assert.Contains(t, out, "Sessões adicionadas")
	assert.Contains(t, out, "Sessões removidas")
	assert.Contains(t, out, report.Summary)
}

func TestUnit_Upcoming_RendersAnnotations(t *testing.T) {
	movies := []internal.UpcomingMovie{
		{
			Title:     "Chegando",
			FirstDate: "2026-03-05",
			Formats:   []string{"2D", "3D"},
			PriceFrom: ptr(24.0),
			InPreSale: true,
		},
		{Title: "Depois", FirstDate: "2026-03-12"},
	}

	out := Upcoming(movies)
	assert.Contains(t, out, "<b>Chegando</b> — 5 de março de 2026")
	assert.Contains(t, out, "2D, 3D")
	assert.Contains(t, out, "a partir de R$ 24,00")
	assert.Contains(t, out, "(pré-venda)")
	assert.Contains(t, out, "<b>Depois</b>")
}

func TestUnit_Upcoming_EmptyList(t *testing.T) {
	assert.Contains(t, Upcoming(nil), "Nenhum lançamento previsto")
}

func TestUnit_HumanDate_FallsBackOnUnparseableInput(t *testing.T) {
	assert.Equal(t, "soon", humanDate("soon"))
}
