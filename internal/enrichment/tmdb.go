package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tmdb "github.com/cyruzin/golang-tmdb"

	"github.com/niksodev/mcz-watcher/internal"
	"github.com/niksodev/mcz-watcher/internal/httputil"
)

const tmdbImageBase = "https://image.tmdb.org/t/p/w780"

type tmdbEnrichment struct {
	client *tmdb.Client
}

// TMDB returns an enricher that fills synopsis, info link, and missing
// backdrop from The Movie Database. Lookups go through a caching transport
// so repeated titles within a run cost one request.
func TMDB(apiKey string) (internal.MovieEnricher, error) {
	client, err := tmdb.Init(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	client.SetClientConfig(http.Client{
		Transport: &httputil.CacheTransport{},
	})
	return &tmdbEnrichment{client: client}, nil
}

// titleEqual compares titles ignoring case and whitespace runs.
func titleEqual(a, b string) bool {
	norm := func(s string) string {
		return strings.ToUpper(strings.Join(strings.Fields(s), " "))
	}
	return norm(a) == norm(b)
}

// pickBest prefers an exact (normalized) match on the local or original
// title; otherwise the first search result.
func pickBest(results []tmdb.MovieResult, movie internal.MovieStatic) *tmdb.MovieResult {
	if len(results) == 0 {
		return nil
	}
	for i := range results {
		if titleEqual(results[i].Title, movie.Title) ||
			(movie.OriginalTitle != "" && titleEqual(results[i].OriginalTitle, movie.OriginalTitle)) {
			return &results[i]
		}
	}
	return &results[0]
}

func (e *tmdbEnrichment) Enrich(ctx context.Context, movie internal.MovieStatic) (internal.MovieStatic, error) {
	if movie.Title == "" || movie.Synopsis != "" {
		return movie, nil
	}
	searchResults, err := e.client.GetSearchMovies(movie.Title, map[string]string{
		"language": "pt-BR",
	})
	if err != nil {
		return movie, fmt.Errorf("failed to search for movie %q: %w", movie.Title, err)
	}
	best := pickBest(searchResults.Results, movie)
	if best == nil {
		return movie, nil
	}
	movie.Synopsis = best.Overview
	movie.InfoURL = fmt.Sprintf("https://www.themoviedb.org/movie/%d", best.ID)
	if movie.Backdrop == "" && best.BackdropPath != "" {
		movie.Backdrop = tmdbImageBase + best.BackdropPath
	}
	return movie, nil
}
