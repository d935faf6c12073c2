// Package prices extracts ticket prices from checkout pages. The listings
// API omits prices for some session types; the checkout page always shows
// them, so this opens the session's deep-link in a headless browser and
// scans the rendered page for BRL amounts. Strictly best-effort: the cache
// core never depends on it.
package prices

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-rod/rod"

	json "github.com/goccy/go-json"

	"github.com/niksodev/mcz-watcher/internal"
	"github.com/niksodev/mcz-watcher/internal/browser"
)

// Inspector reads prices from checkout pages through a shared browser.
type Inspector struct {
	browser browser.Interface
}

func NewInspector(b browser.Interface) *Inspector {
	return &Inspector{browser: b}
}

// collectPriceTextScript gathers the text of elements likely to carry a
// price. Checkout pages label the full ticket "Inteira" and the half
// ticket "Meia"; free sessions show neither.
const collectPriceTextScript = `() => {
	const selectors = ['[class*="price"]', '[class*="ticket"]', '[class*="valor"]', 'button', 'li'];
	const texts = [];
	for (const sel of selectors) {
		for (const el of document.querySelectorAll(sel)) {
			const t = (el.textContent || '').trim();
			if (t && t.length < 200 && /R\$/.test(t)) texts.push(t);
		}
	}
	return JSON.stringify(texts);
}`

// SessionPrice opens the session's checkout deep-link and returns the full
// and half prices it finds. A page with no price at all is reported as
// free, matching how the venue presents promotional sessions.
func (i *Inspector) SessionPrice(ctx context.Context, checkoutURL string) (internal.TicketPrice, error) {
	if checkoutURL == "" {
		return internal.TicketPrice{}, fmt.Errorf("no checkout url")
	}
	var texts []string
	err := i.browser.WithPage(ctx, checkoutURL, func(page *rod.Page) error {
		result, err := page.Context(ctx).Timeout(browser.PageStableTimeout).Eval(collectPriceTextScript)
		if err != nil {
			return fmt.Errorf("collect price text: %w", err)
		}
		var raw []string
		if err := json.Unmarshal([]byte(result.Value.Str()), &raw); err != nil {
			return fmt.Errorf("decode price text: %w", err)
		}
		texts = raw
		return nil
	})
	if err != nil {
		return internal.TicketPrice{}, err
	}
	return PriceFromTexts(texts), nil
}

// PriceFromTexts derives the ticket price from candidate page texts. The
// full price is the amount nearest an "Inteira" label, the half price the
// amount nearest a "Meia" label; without labels, the highest amount is
// taken as full and its half derived.
func PriceFromTexts(texts []string) internal.TicketPrice {
	var full, half *float64
	var maxSeen *float64
	for _, t := range texts {
		amount := ParseBRL(t)
		if amount == nil {
			continue
		}
		lower := strings.ToLower(t)
		switch {
		case strings.Contains(lower, "inteira"):
			if full == nil {
				full = amount
			}
		case strings.Contains(lower, "meia"):
			if half == nil {
				half = amount
			}
		}
		if maxSeen == nil || *amount > *maxSeen {
			maxSeen = amount
		}
	}
	if full == nil {
		full = maxSeen
	}
	if full == nil {
		return internal.TicketPrice{Free: true}
	}
	if half == nil {
		h := math.Round(*full/2*100) / 100
		half = &h
	}
	return internal.TicketPrice{Full: full, Half: half}
}

var brlPat = regexp.MustCompile(`R\$\s*(\d{1,4})[,.](\d{2})`)

// ParseBRL extracts the first BRL amount from a string, e.g. "Inteira
// R$ 26,00" -> 26.00. Returns nil when no amount is present.
func ParseBRL(s string) *float64 {
	m := brlPat.FindStringSubmatch(s)
	if len(m) < 3 {
		return nil
	}
	whole, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	cents, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	v := float64(whole) + float64(cents)/100
	return &v
}
