package enrichment

import (
	"context"
	"log/slog"

	"github.com/niksodev/mcz-watcher/internal"
)

// Enrich runs every provider over each static record, best effort. A
// provider error leaves that record as-is and moves on; ingestion never
// waits on or fails because of enrichment.
func Enrich(ctx context.Context, movies map[string]internal.MovieStatic, providers ...internal.MovieEnricher) {
	if len(providers) == 0 {
		return
	}
	for id, movie := range movies {
		for _, provider := range providers {
			enriched, err := provider.Enrich(ctx, movie)
			if err != nil {
				slog.Debug("enrichment failed", "movie_id", id, "title", movie.Title, "error", err)
				continue
			}
			movie = enriched
		}
		movies[id] = movie
	}
}
