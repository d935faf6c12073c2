// Package ingresso is the upstream client for the Ingresso.com content API,
// which serves the venue's showtime listings.
package ingresso

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	json "github.com/goccy/go-json"

	"github.com/niksodev/mcz-watcher/internal/browser"
	"github.com/niksodev/mcz-watcher/internal/httputil"
)

// Source provides one venue's listings. SourceID identifies the venue
// stably across runs; the cache keys dynamic records by it.
type Source interface {
	SourceID() string
	// Day fetches the listings for one date (YYYY-MM-DD). An empty date
	// resolves to the venue's current day via the dates endpoint.
	Day(ctx context.Context, date string) (*DayListings, error)
	// Future fetches the listings for upcoming dates after today, at most
	// horizonDays of them, in chronological order.
	Future(ctx context.Context, horizonDays int) ([]DayListings, error)
}

const (
	defaultBaseURL   = "https://api-content.ingresso.com"
	defaultCityID    = 53   // Maceió
	defaultTheaterID = 1162 // Cinesystem Maceió
	defaultTimezone  = "America/Maceio"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var errHTTPRequestFailed = errors.New("http request failed")

type client struct {
	baseURL         string
	cityID          int
	theaterID       int
	loc             *time.Location
	httpClient      *http.Client
	headlessBrowser browser.Interface
	sourceID        string
	now             func() time.Time
}

// Option applies configuration to the client.
type Option func(*client)

// WithBaseURL sets the API base URL (e.g. httptest.Server.URL in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithClient sets the HTTP client. When set, the client uses direct HTTP
// instead of the headless browser.
func WithClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
			c.headlessBrowser = nil
		}
	}
}

// WithBrowser routes all fetches through a headless browser page on the
// venue's origin. Use when the API rejects plain HTTP clients.
func WithBrowser(b browser.Interface) Option {
	return func(c *client) {
		if b != nil {
			c.headlessBrowser = b
			c.httpClient = nil
		}
	}
}

// WithTheater points the client at another city/theater pair.
func WithTheater(cityID, theaterID int) Option {
	return func(c *client) {
		c.cityID = cityID
		c.theaterID = theaterID
	}
}

// WithLocation sets the venue timezone used when falling back to "today".
func WithLocation(loc *time.Location) Option {
	return func(c *client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewClient builds a Source for one venue. The source id is derived
// deterministically from the base URL and theater coordinates, so the same
// venue maps to the same cache keys across runs.
func NewClient(opts ...Option) Source {
	c := &client{
		baseURL:   defaultBaseURL,
		cityID:    defaultCityID,
		theaterID: defaultTheaterID,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loc == nil {
		loc, err := time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		c.loc = loc
	}
	if c.httpClient == nil && c.headlessBrowser == nil {
		c.httpClient = &http.Client{Transport: &httputil.CacheTransport{}}
	}
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.baseURL))
	c.sourceID = uuid.NewSHA1(ns, fmt.Appendf(nil, "city/%d/theater/%d", c.cityID, c.theaterID)).String()
	return c
}

func (c *client) SourceID() string {
	return c.sourceID
}

func (c *client) datesURL() string {
	return fmt.Sprintf("%s/v0/sessions/city/%d/theater/%d/dates/partnership/home", c.baseURL, c.cityID, c.theaterID)
}

func (c *client) sessionsURL(date string) string {
	return fmt.Sprintf("%s/v0/sessions/city/%d/theater/%d/partnership/home/groupBy/sessionType?date=%s",
		c.baseURL, c.cityID, c.theaterID, date)
}

func (c *client) localToday() string {
	return c.now().In(c.loc).Format(time.DateOnly)
}

func (c *client) Day(ctx context.Context, date string) (*DayListings, error) {
	target := date
	if target == "" {
		target = c.resolveTargetDate(ctx)
	}
	var raw json.RawMessage
	if err := c.fetchJSON(ctx, c.sessionsURL(target), &raw); err != nil {
		return nil, fmt.Errorf("fetch sessions for %s: %w", target, err)
	}
	payload, err := decodeDay(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sessions for %s: %w", target, err)
	}
	if payload.Date == "" {
		payload.Date = target
	}
	return payload, nil
}

func (c *client) Future(ctx context.Context, horizonDays int) ([]DayListings, error) {
	dates, err := c.availableDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch available dates: %w", err)
	}
	today := c.localToday()
	var out []DayListings
	for _, entry := range dates {
		if entry.Date == "" || entry.Date <= today {
			continue
		}
		if horizonDays > 0 && len(out) >= horizonDays {
			break
		}
		day, err := c.Day(ctx, entry.Date)
		if err != nil {
			// One bad date never fails the whole horizon.
			slog.Warn("ingresso: future date fetch failed", "date", entry.Date, "error", err)
			continue
		}
		out = append(out, *day)
	}
	return out, nil
}

// resolveTargetDate asks the dates endpoint for the venue's notion of
// today, preferring the entry flagged as such. Any failure falls back to
// the venue-local calendar date.
func (c *client) resolveTargetDate(ctx context.Context) string {
	dates, err := c.availableDates(ctx)
	if err != nil || len(dates) == 0 {
		slog.Warn("ingresso: dates endpoint unavailable, using venue-local today", "error", err)
		return c.localToday()
	}
	for _, entry := range dates {
		if (entry.IsToday || entry.Today) && entry.Date != "" {
			return entry.Date
		}
	}
	if dates[0].Date != "" {
		return dates[0].Date
	}
	return c.localToday()
}

func (c *client) availableDates(ctx context.Context) ([]DateEntry, error) {
	var raw json.RawMessage
	if err := c.fetchJSON(ctx, c.datesURL(), &raw); err != nil {
		return nil, err
	}
	// Served either as a bare array or wrapped in {"dates": [...]}.
	var entries []DateEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}
	var wrapped struct {
		Dates []DateEntry `json:"dates"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode dates: %w", err)
	}
	return wrapped.Dates, nil
}

// decodeDay accepts both payload shapes the endpoint serves: a one-element
// array of day listings, or a single object.
func decodeDay(raw []byte) (*DayListings, error) {
	var many []DayListings
	if err := json.Unmarshal(raw, &many); err == nil {
		if len(many) == 0 {
			return &DayListings{}, nil
		}
		return &many[0], nil
	}
	var one DayListings
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return &one, nil
}

func (c *client) fetchJSON(ctx context.Context, url string, dest any) error {
	if c.httpClient != nil {
		return c.fetchViaHTTP(ctx, url, dest)
	}
	return c.fetchViaHeadlessBrowser(ctx, url, dest)
}

func (c *client) fetchViaHTTP(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", errHTTPRequestFailed, resp.Status)
	}
	return json.Unmarshal(body, dest)
}

// fetchViaHeadlessBrowser loads the venue origin and fetches the API from
// inside the page, so the request looks like the site's own traffic.
func (c *client) fetchViaHeadlessBrowser(ctx context.Context, url string, dest any) error {
	homeURL := c.baseURL + "/"
	if err := c.headlessBrowser.WithPage(ctx, homeURL, c.headlessBrowser.FetchJSON(ctx, url, dest)); err != nil {
		return fmt.Errorf("fetch %s via browser: %w", url, err)
	}
	return nil
}
