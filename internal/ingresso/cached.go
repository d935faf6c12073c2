package ingresso

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SourceMiddleware wraps a Source with additional behavior.
type SourceMiddleware func(Source) Source

// Cached returns middleware that memoizes a Source's results in an LRU with
// a TTL. This is a short in-process shield for interactive commands that
// hit the same date repeatedly; day-level durable caching belongs to the
// normalized store.
//
//	source := ingresso.Cached(64, 5*time.Minute)(ingresso.NewClient())
//
// maxEntries is the LRU size; ttl zero means no expiration.
func Cached(maxEntries int, ttl time.Duration) SourceMiddleware {
	return func(inner Source) Source {
		if inner == nil {
			return nil
		}
		if maxEntries <= 0 {
			maxEntries = 64
		}
		return &cachingSource{
			inner:  inner,
			days:   expirable.NewLRU[string, *DayListings](maxEntries, nil, ttl),
			future: expirable.NewLRU[string, []DayListings](maxEntries, nil, ttl),
		}
	}
}

type cachingSource struct {
	inner  Source
	days   *expirable.LRU[string, *DayListings]
	future *expirable.LRU[string, []DayListings]
}

func (c *cachingSource) SourceID() string {
	return c.inner.SourceID()
}

func (c *cachingSource) Day(ctx context.Context, date string) (*DayListings, error) {
	if payload, ok := c.days.Get(date); ok {
		return payload, nil
	}
	payload, err := c.inner.Day(ctx, date)
	if err != nil {
		return nil, err
	}
	c.days.Add(date, payload)
	// An empty requested date resolves upstream; remember the resolved day
	// too so explicit requests for it also hit.
	if date == "" && payload.Date != "" {
		c.days.Add(payload.Date, payload)
	}
	return payload, nil
}

func (c *cachingSource) Future(ctx context.Context, horizonDays int) ([]DayListings, error) {
	key := strconv.Itoa(horizonDays)
	if listings, ok := c.future.Get(key); ok {
		return listings, nil
	}
	listings, err := c.inner.Future(ctx, horizonDays)
	if err != nil {
		return nil, err
	}
	c.future.Add(key, listings)
	return listings, nil
}
