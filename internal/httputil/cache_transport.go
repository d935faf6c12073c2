// Package httputil carries shared HTTP plumbing for the outbound clients
// (listings API, TMDB).
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxEntries = 512

// CacheTransport is an http.RoundTripper that caches successful GET
// responses in memory, keyed by method + URL, with LRU eviction. It keeps
// repeated lookups against the same upstream endpoints from hammering the
// API within one process run; durable caching is the normalized store's
// job, not this transport's.
type CacheTransport struct {
	Base http.RoundTripper

	// MaxEntries caps the cache size; zero means defaultMaxEntries.
	MaxEntries int

	initOnce sync.Once
	initErr  error
	cache    *lru.Cache[string, *cachedResponse]
}

type cachedResponse struct {
	Status  int
	Header  http.Header
	Body    []byte
	Expires time.Time // zero = no expiry beyond LRU eviction
}

func (t *CacheTransport) ensure() error {
	t.initOnce.Do(func() {
		maxEntries := t.MaxEntries
		if maxEntries <= 0 {
			maxEntries = defaultMaxEntries
		}
		t.cache, t.initErr = lru.New[string, *cachedResponse](maxEntries)
	})
	return t.initErr
}

// RoundTrip implements http.RoundTripper.
func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.ensure(); err != nil {
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	key := req.Method + " " + req.URL.String()

	if !wantsFresh(req) {
		if entry, ok := t.cache.Get(key); ok {
			if entry.Expires.IsZero() || time.Now().Before(entry.Expires) {
				return cachedToResponse(req, entry), nil
			}
			t.cache.Remove(key)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if req.Method != http.MethodGet || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}
	noStore, maxAge := responseCacheControl(resp.Header)
	if noStore {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	t.cache.Add(key, &cachedResponse{
		Status:  resp.StatusCode,
		Header:  resp.Header.Clone(),
		Body:    body,
		Expires: expiry(maxAge),
	})
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func cachedToResponse(req *http.Request, entry *cachedResponse) *http.Response {
	return &http.Response{
		Status:        http.StatusText(entry.Status),
		StatusCode:    entry.Status,
		Header:        entry.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

// wantsFresh reports whether the request's Cache-Control asks to bypass the
// cache (no-cache or max-age=0).
func wantsFresh(req *http.Request) bool {
	cc := req.Header.Get("Cache-Control")
	if cc == "" {
		return false
	}
	for part := range strings.SplitSeq(cc, ",") {
		part = strings.TrimSpace(part)
		if part == "no-cache" {
			return true
		}
		if after, ok := strings.CutPrefix(part, "max-age="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(after)); err == nil && n <= 0 {
				return true
			}
		}
	}
	return false
}

// responseCacheControl parses the response Cache-Control headers into a
// no-store flag and a max-age in seconds (0 = unset).
func responseCacheControl(header http.Header) (noStore bool, maxAge int) {
	for _, cc := range header["Cache-Control"] {
		for part := range strings.SplitSeq(cc, ",") {
			part = strings.TrimSpace(strings.ToLower(part))
			switch {
			case part == "no-store" || part == "no-cache":
				noStore = true
			case strings.HasPrefix(part, "max-age="):
				if n, err := strconv.Atoi(part[len("max-age="):]); err == nil && n > 0 {
					maxAge = n
				}
			case strings.HasPrefix(part, "s-maxage="):
				if n, err := strconv.Atoi(part[len("s-maxage="):]); err == nil && n > 0 {
					maxAge = n
				}
			}
		}
	}
	return noStore, maxAge
}

func expiry(maxAgeSeconds int) time.Time {
	if maxAgeSeconds <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(maxAgeSeconds) * time.Second)
}
