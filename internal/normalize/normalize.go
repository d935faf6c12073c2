// Package normalize splits raw Ingresso.com payloads into slow-changing
// catalog records and fast-changing per-day session records, and
// reconstructs the denormalized per-movie view consumers expect. All
// functions are pure: no I/O, no state, and no failures on malformed
// optional fields.
package normalize

import (
	"math"
	"time"

	"github.com/niksodev/mcz-watcher/internal"
	"github.com/niksodev/mcz-watcher/internal/ingresso"
)

// DefaultFormat is assumed when a session carries no non-audio type label.
const DefaultFormat = "2D"

// audioLabels are the type-label names that classify audio rather than
// presentation format.
var audioLabels = map[string]bool{
	"Dublado":   true,
	"Legendado": true,
}

// Movie extracts the static catalog record from a raw movie. Extraction is
// total: missing or malformed optional fields map to zero values, never an
// error.
func Movie(raw ingresso.Movie) internal.MovieStatic {
	m := internal.MovieStatic{
		ID:            raw.ID,
		Title:         raw.Title,
		OriginalTitle: raw.OriginalTitle,
		URLKey:        raw.URLKey,
		Duration:      raw.DurationMinutes(),
		ContentRating: raw.ContentRating,
		Distributor:   raw.Distributor,
		Genres:        raw.Genres,
		IsReissue:     raw.IsReexhibition,
		InPreSale:     raw.InPreSale,
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	if raw.RatingDetails != nil {
		m.RatingColor = raw.RatingDetails.Color
	}
	m.Poster = imageURL(raw.Images, "PosterPortrait")
	m.Backdrop = imageURL(raw.Images, "PosterHorizontal")
	if len(raw.Trailers) > 0 {
		m.Trailer = raw.Trailers[0].URL
	}
	m.Tags = tagNames(raw.CompleteTags, raw.Tags)
	return m
}

func imageURL(images []ingresso.Image, imageType string) string {
	for _, img := range images {
		if img.Type == imageType {
			return img.URL
		}
	}
	return ""
}

// tagNames prefers the complete tag list, falling back to the short one.
func tagNames(complete, short []ingresso.Tag) []string {
	src := complete
	if len(src) == 0 {
		src = short
	}
	names := make([]string, 0, len(src))
	for _, t := range src {
		names = append(names, t.Name)
	}
	return names
}

// Sessions flattens a movie's nested session-type groups into a flat list.
// Each session resolves its own audio and format classification from its
// type labels; duplicate session ids across groups collapse to one record
// (first wins).
func Sessions(movieID string, groups []ingresso.SessionGroup) []internal.Session {
	var out []internal.Session
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, s := range group.Sessions {
			if s.ID == "" || seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			format, audio := classify(s.Types)
			out = append(out, internal.Session{
				ID:          s.ID,
				MovieID:     movieID,
				Time:        s.Time,
				Price:       s.Price,
				Room:        s.Room,
				Format:      format,
				Audio:       audio,
				CheckoutURL: s.SiteURL,
			})
		}
	}
	return out
}

// classify resolves the format and audio tags from a session's type labels.
// The first audio label wins as audio; the first non-audio label's alias
// wins as format, defaulting to DefaultFormat.
func classify(types []ingresso.TypeLabel) (format, audio string) {
	format = DefaultFormat
	formatSet := false
	for _, t := range types {
		if audioLabels[t.Name] {
			if audio == "" {
				audio = t.Alias
			}
			continue
		}
		if !formatSet && t.Alias != "" {
			format = t.Alias
			formatSet = true
		}
	}
	return format, audio
}

// DayResult is the normalized split of one day's payload.
type DayResult struct {
	Movies    map[string]internal.MovieStatic
	Sessions  []internal.Session
	Date      string
	FetchedAt time.Time
}

// Day splits one day's listings into static records and dynamic sessions.
// Movies without a usable id are dropped; everything else degrades to
// defaults field by field.
func Day(payload *ingresso.DayListings, fetchedAt time.Time) *DayResult {
	res := &DayResult{
		Movies:    make(map[string]internal.MovieStatic),
		Sessions:  []internal.Session{},
		FetchedAt: fetchedAt,
	}
	if payload == nil {
		return res
	}
	res.Date = payload.Date
	for _, raw := range payload.Movies {
		if raw.ID == "" {
			continue
		}
		if _, ok := res.Movies[raw.ID]; !ok {
			res.Movies[raw.ID] = Movie(raw)
		}
		groups := raw.SessionTypes
		if len(groups) == 0 {
			groups = raw.Rooms
		}
		res.Sessions = append(res.Sessions, Sessions(raw.ID, groups)...)
	}
	return res
}

// Upcoming walks chronologically ordered future day groups and yields each
// movie not already showing today exactly once, at its first appearance,
// annotated with that first date, the minimum price seen across its
// sessions in that group, and the distinct formats offered.
func Upcoming(future []ingresso.DayListings, todayIDs map[string]bool) []internal.UpcomingMovie {
	var out []internal.UpcomingMovie
	seen := make(map[string]bool)
	for _, day := range future {
		for _, raw := range day.Movies {
			if raw.ID == "" || todayIDs[raw.ID] || seen[raw.ID] {
				continue
			}
			seen[raw.ID] = true

			groups := raw.SessionTypes
			if len(groups) == 0 {
				groups = raw.Rooms
			}
			var formats []string
			formatSeen := make(map[string]bool)
			var minPrice *float64
			for _, group := range groups {
				for _, s := range group.Sessions {
					for _, t := range s.Types {
						if !audioLabels[t.Name] && t.Alias != "" && !formatSeen[t.Alias] {
							formatSeen[t.Alias] = true
							formats = append(formats, t.Alias)
						}
					}
					if s.Price != nil && (minPrice == nil || *s.Price < *minPrice) {
						p := *s.Price
						minPrice = &p
					}
				}
			}

			siteURL := raw.SiteURLByTheater
			if siteURL == "" {
				siteURL = raw.SiteURL
			}
			genres := raw.Genres
			if genres == nil {
				genres = []string{}
			}
			out = append(out, internal.UpcomingMovie{
				ID:             raw.ID,
				Title:          raw.Title,
				ContentRating:  raw.ContentRating,
				Genres:         genres,
				Poster:         imageURL(raw.Images, "PosterPortrait"),
				InPreSale:      raw.InPreSale,
				Formats:        formats,
				PriceFrom:      minPrice,
				FirstDate:      day.Date,
				FirstDateLabel: day.DateFormatted,
				FirstDayOfWeek: day.DayOfWeek,
				SiteURL:        siteURL,
			})
		}
	}
	return out
}

// Denormalize reconstructs the consumer-facing composite view: one entry
// per movie id that has at least one session, in order of first session
// appearance. Sessions referencing an id absent from the static map are
// silently skipped. Movies with no sessions do not appear (lossy by
// design).
func Denormalize(movies map[string]internal.MovieStatic, sessions []internal.Session) []internal.MovieShowtimes {
	index := make(map[string]int)
	var out []internal.MovieShowtimes
	for _, s := range sessions {
		i, ok := index[s.MovieID]
		if !ok {
			movie, known := movies[s.MovieID]
			if !known {
				continue
			}
			i = len(out)
			index[s.MovieID] = i
			out = append(out, internal.MovieShowtimes{
				MovieStatic: movie,
				Name:        movie.Title,
				Sessions:    []internal.SessionView{},
			})
		}
		out[i].Sessions = append(out[i].Sessions, internal.SessionView{
			Time:      s.Time,
			SessionID: s.ID,
			FullPrice: s.Price,
			HalfPrice: halfPrice(s.Price),
			Free:      s.Price == nil,
			Room:      s.Room,
			Format:    s.Format,
			Audio:     s.Audio,
		})
	}
	return out
}

// halfPrice is the full price divided by two, rounded to 2 decimals.
func halfPrice(full *float64) *float64 {
	if full == nil {
		return nil
	}
	h := math.Round(*full/2*100) / 100
	return &h
}
