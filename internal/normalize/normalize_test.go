package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niksodev/mcz-watcher/internal"
	"github.com/niksodev/mcz-watcher/internal/ingresso"
)

func ptr[T any](v T) *T { return &v }

func TestUnit_Movie_ExtractsStaticFields(t *testing.T) {
	raw := ingresso.Movie{
		ID:            "m1",
		Title:         "O Filme",
		OriginalTitle: "The Movie",
		URLKey:        "o-filme",
		Duration:      "126",
		ContentRating: "14 anos",
		RatingDetails: &ingresso.RatingDetails{Color: "#FF7700"},
		Genres:        []string{"Drama"},
		Distributor:   "Dist",
		Images: []ingresso.Image{
			{Type: "PosterHorizontal", URL: "https://img/horizontal.jpg"},
			{Type: "PosterPortrait", URL: "https://img/portrait.jpg"},
		},
		Trailers:     []ingresso.Trailer{{URL: "https://yt/t1"}, {URL: "https://yt/t2"}},
		CompleteTags: []ingresso.Tag{{Name: "Estreia"}},
		InPreSale:    true,
	}

	m := Movie(raw)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "O Filme", m.Title)
	assert.Equal(t, 126, m.Duration)
	assert.Equal(t, "#FF7700", m.RatingColor)
	assert.Equal(t, "https://img/portrait.jpg", m.Poster)
	assert.Equal(t, "https://img/horizontal.jpg", m.Backdrop)
	assert.Equal(t, "https://yt/t1", m.Trailer, "first trailer wins")
	assert.Equal(t, []string{"Estreia"}, m.Tags)
	assert.True(t, m.InPreSale)
}

func TestUnit_Movie_DefaultsOnMissingOptionalFields(t *testing.T) {
	m := Movie(ingresso.Movie{ID: "m1", Title: "Bare", Duration: "not-a-number"})
	assert.Equal(t, 0, m.Duration)
	assert.Equal(t, "", m.RatingColor)
	assert.Equal(t, "", m.Poster)
	assert.NotNil(t, m.Genres)
	assert.Empty(t, m.Genres)
}

func TestUnit_Sessions_ClassifiesAudioAndFormat(t *testing.T) {
	groups := []ingresso.SessionGroup{{
		Sessions: []ingresso.Session{
			{
				ID:   "s1",
				Time: "14:30",
				Types: []ingresso.TypeLabel{
					{Name: "Dublado", Alias: "DUB"},
					{Name: "3D", Alias: "3D"},
				},
			},
			{
				ID:    "s2",
				Time:  "19:00",
				Types: []ingresso.TypeLabel{{Name: "Legendado", Alias: "LEG"}},
			},
		},
	}}

	sessions := Sessions("m1", groups)
	require.Len(t, sessions, 2)
	assert.Equal(t, "DUB", sessions[0].Audio)
	assert.Equal(t, "3D", sessions[0].Format)
	assert.Equal(t, "LEG", sessions[1].Audio)
	assert.Equal(t, DefaultFormat, sessions[1].Format, "audio-only labels fall back to the default format")
}

func TestUnit_Sessions_DeduplicatesAcrossGroups(t *testing.T) {
	groups := []ingresso.SessionGroup{
		{Sessions: []ingresso.Session{{ID: "s1", Time: "14:30", Price: ptr(26.0)}}},
		{Sessions: []ingresso.Session{{ID: "s1", Time: "14:30"}, {ID: "s2", Time: "21:00"}}},
	}

	sessions := Sessions("m1", groups)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	require.NotNil(t, sessions[0].Price, "first occurrence wins")
	assert.Equal(t, 26.0, *sessions[0].Price)
}

func TestUnit_Day_SplitsMoviesAndSessions(t *testing.T) {
	fetchedAt := time.Date(2026, 2, 23, 10, 0, 0, 0, time.UTC)
	payload := &ingresso.DayListings{
		Date: "2026-02-23",
		Movies: []ingresso.Movie{
			{
				ID:    "m1",
				Title: "One",
				SessionTypes: []ingresso.SessionGroup{
					{Sessions: []ingresso.Session{{ID: "s1", Time: "14:30"}, {ID: "s2", Time: "19:00"}}},
				},
			},
			{
				// No id, dropped entirely.
				Title:        "Ghost",
				SessionTypes: []ingresso.SessionGroup{{Sessions: []ingresso.Session{{ID: "sx", Time: "12:00"}}}},
			},
			{
				ID:    "m2",
				Title: "Two",
				// Older payload revision groups by room.
				Rooms: []ingresso.SessionGroup{{Sessions: []ingresso.Session{{ID: "s3", Time: "21:00"}}}},
			},
		},
	}

	res := Day(payload, fetchedAt)
	assert.Equal(t, "2026-02-23", res.Date)
	assert.Equal(t, fetchedAt, res.FetchedAt)
	assert.Len(t, res.Movies, 2)
	require.Len(t, res.Sessions, 3)
	assert.Equal(t, "m1", res.Sessions[0].MovieID)
	assert.Equal(t, "m2", res.Sessions[2].MovieID, "rooms fallback still yields sessions")
}

func TestUnit_Day_NilPayloadYieldsEmptyResult(t *testing.T) {
	res := Day(nil, time.Now())
	assert.Empty(t, res.Movies)
	assert.Empty(t, res.Sessions)
}

func TestUnit_Upcoming_FirstAppearanceWinsWithAnnotations(t *testing.T) {
	future := []ingresso.DayListings{
		{
			Date:          "2026-02-26",
			DateFormatted: "26 de fevereiro",
			DayOfWeek:     "quinta-feira",
			Movies: []ingresso.Movie{
				{
					ID: "new1", Title: "Chegando",
					SessionTypes: []ingresso.SessionGroup{{
						Sessions: []ingresso.Session{
							{ID: "f1", Price: ptr(30.0), Types: []ingresso.TypeLabel{{Name: "3D", Alias: "3D"}}},
							{ID: "f2", Price: ptr(24.0), Types: []ingresso.TypeLabel{{Name: "2D", Alias: "2D"}, {Name: "Dublado", Alias: "DUB"}}},
						},
					}},
				},
				{ID: "today1", Title: "Já em cartaz"},
			},
		},
		{
			Date: "2026-02-27",
			Movies: []ingresso.Movie{
				{ID: "new1", Title: "Chegando"}, // second appearance, ignored
				{ID: "new2", Title: "Depois"},
			},
		},
	}

	out := Upcoming(future, map[string]bool{"today1": true})
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, "new1", first.ID)
	assert.Equal(t, "2026-02-26", first.FirstDate)
	assert.Equal(t, "26 de fevereiro", first.FirstDateLabel)
	assert.Equal(t, "quinta-feira", first.FirstDayOfWeek)
	require.NotNil(t, first.PriceFrom)
	assert.Equal(t, 24.0, *first.PriceFrom, "minimum price across the day's sessions")
	assert.Equal(t, []string{"3D", "2D"}, first.Formats, "audio labels are not formats")

	assert.Equal(t, "new2", out[1].ID)
	assert.Equal(t, "2026-02-27", out[1].FirstDate)
}

func TestUnit_Denormalize_RebuildsCompositeView(t *testing.T) {
	movies := map[string]internal.MovieStatic{
		"m1": {ID: "m1", Title: "One"},
		"m2": {ID: "m2", Title: "Two"},
	}
	sessions := []internal.Session{
		{ID: "s1", MovieID: "m1", Time: "14:30", Price: ptr(25.0), Format: "2D"},
		{ID: "s2", MovieID: "m2", Time: "15:00", Format: "3D"},
		{ID: "s3", MovieID: "m1", Time: "19:00", Price: ptr(26.5), Format: "2D"},
		{ID: "s4", MovieID: "unknown", Time: "20:00"},
	}

	out := Denormalize(movies, sessions)
	require.Len(t, out, 2, "sessions with unknown movie ids are skipped")
	assert.Equal(t, "One", out[0].Name, "order follows first session appearance")
	assert.Equal(t, "Two", out[1].Name)
	require.Len(t, out[0].Sessions, 2)

	s1 := out[0].Sessions[0]
	require.NotNil(t, s1.FullPrice)
	assert.Equal(t, 25.0, *s1.FullPrice)
	require.NotNil(t, s1.HalfPrice)
	assert.Equal(t, 12.5, *s1.HalfPrice)
	assert.False(t, s1.Free)

	s3 := out[0].Sessions[1]
	require.NotNil(t, s3.HalfPrice)
	assert.Equal(t, 13.25, *s3.HalfPrice, "half price rounds to cents")

	free := out[1].Sessions[0]
	assert.Nil(t, free.FullPrice)
	assert.Nil(t, free.HalfPrice)
	assert.True(t, free.Free, "nil price means free")
}

func TestUnit_Denormalize_MoviesWithoutSessionsAreOmitted(t *testing.T) {
	movies := map[string]internal.MovieStatic{
		"m1": {ID: "m1", Title: "One"},
		"m2": {ID: "m2", Title: "No sessions"},
	}
	out := Denormalize(movies, []internal.Session{{ID: "s1", MovieID: "m1", Time: "14:30"}})
	require.Len(t, out, 1)
	assert.Equal(t, "One", out[0].Name)
}
