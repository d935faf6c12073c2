package internal

import "context"

// MovieEnricher makes a best-effort attempt to fill in catalog fields
// (synopsis, info link) that the upstream listings omit. Enrichment runs
// before the static record is merged into the cache, so first-write-wins
// still applies to the enriched record.
type MovieEnricher interface {
	Enrich(ctx context.Context, movie MovieStatic) (MovieStatic, error)
}
