// Package browser manages a single shared headless-browser instance for the
// fetch paths that cannot use plain HTTP (the listings API occasionally
// rejects non-browser clients) and for checkout price inspection.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	rodproto "github.com/go-rod/rod/lib/proto"

	json "github.com/goccy/go-json"
)

// PageStableTimeout bounds waiting for page stability and in-page eval.
var PageStableTimeout = 30 * time.Second

// Interface runs callbacks against pages of a shared headless browser.
// Implementations serialize access: one WithPage at a time.
type Interface interface {
	WithPage(ctx context.Context, url string, fn func(*rod.Page) error) error
	// FetchJSON returns a callback that fetches url from within the page's
	// origin and unmarshals the body into dest. Repeated fetches of the same
	// url within one process are served from an internal cache.
	FetchJSON(ctx context.Context, url string, dest any) func(*rod.Page) error

	io.Closer
}

// headless lazily launches one chrome instance and hands it out through a
// capacity-1 channel so callers take turns.
type headless struct {
	initOnce sync.Once
	initErr  error
	ch       chan *rod.Browser
	bodies   map[string]string
	bodiesMu sync.Mutex
}

// Headless returns the shared headless-browser manager. The browser process
// is launched on first use and reused until Close.
func Headless() Interface {
	h := &headless{
		ch:     make(chan *rod.Browser, 1),
		bodies: make(map[string]string),
	}
	h.initOnce.Do(func() {
		u, err := launcher.New().Logger(&launcherLog{}).Leakless(false).Launch()
		if err != nil {
			h.initErr = fmt.Errorf("launch browser: %w", err)
			close(h.ch)
			return
		}
		b := rod.New().ControlURL(u)
		if err := b.Connect(); err != nil {
			h.initErr = fmt.Errorf("connect to browser: %w", err)
			close(h.ch)
			return
		}
		h.ch <- b
	})
	return h
}

func (h *headless) Close() error {
	b, ok := <-h.ch
	if !ok {
		return h.initErr
	}
	return b.Close()
}

// WithPage takes the shared browser, opens a page at url, waits for it to
// stabilize, runs fn, and returns the browser for the next caller.
func (h *headless) WithPage(ctx context.Context, url string, fn func(page *rod.Page) error) error {
	if h.initErr != nil {
		return h.initErr
	}
	b, ok := <-h.ch
	if !ok {
		return h.initErr
	}
	defer func() { h.ch <- b }()

	page, err := b.Page(rodproto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer page.MustClose()

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := rod.Try(func() {
		page.Timeout(PageStableTimeout).MustWaitStable()
	}); err != nil {
		return fmt.Errorf("wait for page stable: %w", err)
	}
	return fn(page)
}

func (h *headless) FetchJSON(ctx context.Context, urlStr string, dest any) func(*rod.Page) error {
	return func(page *rod.Page) error {
		h.bodiesMu.Lock()
		raw, hit := h.bodies[urlStr]
		h.bodiesMu.Unlock()
		if hit {
			return json.Unmarshal([]byte(raw), dest)
		}
		result, err := page.Context(ctx).Timeout(PageStableTimeout).Eval(fetchJSONScript, urlStr)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", urlStr, err)
		}
		raw = result.Value.Str()
		h.bodiesMu.Lock()
		h.bodies[urlStr] = raw
		h.bodiesMu.Unlock()
		return json.Unmarshal([]byte(raw), dest)
	}
}

// fetchJSONScript fetches url inside the page origin and returns the body
// as a JSON string, so the request carries the site's own cookies and UA.
const fetchJSONScript = `(url) => {
	return fetch(url).then(r => {
		if (!r.ok) throw new Error('HTTP ' + r.status);
		return r.json();
	}).then(obj => JSON.stringify(obj));
}`

// launcherLog forwards launcher output (download progress etc.) to slog at
// debug level, line by line.
type launcherLog struct {
	buf []byte
}

func (w *launcherLog) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
		if line != "" {
			slog.Debug("rod launcher", "message", line)
		}
	}
	return len(p), nil
}
