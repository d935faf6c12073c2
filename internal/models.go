package internal

import "time"

// MovieStatic is the slow-changing catalog record for one title. A record is
// written to the cache once, the first time the title is seen, and is never
// overwritten by a later merge: catalog metadata is assumed time-invariant.
type MovieStatic struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	URLKey        string   `json:"url_key,omitempty"`
	Duration      int      `json:"duration,omitempty"` // minutes, 0 = unknown
	ContentRating string   `json:"content_rating,omitempty"`
	RatingColor   string   `json:"rating_color,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Distributor   string   `json:"distributor,omitempty"`
	Poster        string   `json:"poster,omitempty"`
	Backdrop      string   `json:"backdrop,omitempty"`
	Trailer       string   `json:"trailer,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"` // filled by enrichment, when available
	InfoURL       string   `json:"info_url,omitempty"` // filled by enrichment, when available
	IsReissue     bool     `json:"is_reissue,omitempty"`
	InPreSale     bool     `json:"in_presale,omitempty"`
}

// Session is one scheduled screening, valid for a single calendar day at a
// single source. A nil Price means the screening is free.
type Session struct {
	ID          string   `json:"id"`
	MovieID     string   `json:"movie_id"`
	Time        string   `json:"time"`
	Price       *float64 `json:"price"`
	Room        string   `json:"room,omitempty"`
	Format      string   `json:"format"`
	Audio       string   `json:"audio,omitempty"`
	CheckoutURL string   `json:"checkout_url,omitempty"`
}

// UpcomingMovie is a title not yet showing today, annotated with what its
// future sessions reveal: first show date, lowest observed price, formats.
type UpcomingMovie struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	ContentRating  string   `json:"content_rating,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Poster         string   `json:"poster,omitempty"`
	InPreSale      bool     `json:"in_presale,omitempty"`
	Formats        []string `json:"formats,omitempty"`
	PriceFrom      *float64 `json:"price_from"`
	FirstDate      string   `json:"first_date"`
	FirstDateLabel string   `json:"first_date_label,omitempty"`
	FirstDayOfWeek string   `json:"first_day_of_week,omitempty"`
	SiteURL        string   `json:"site_url,omitempty"`
}

// SessionView is a session as presented to consumers: price split into full
// and half, with the free flag made explicit.
type SessionView struct {
	Time      string   `json:"time"`
	SessionID string   `json:"session_id"`
	FullPrice *float64 `json:"full_price"`
	HalfPrice *float64 `json:"half_price"`
	Free      bool     `json:"free"`
	Room      string   `json:"room,omitempty"`
	Format    string   `json:"format"`
	Audio     string   `json:"audio,omitempty"`
}

// MovieShowtimes is the denormalized composite view: one catalog record with
// its sessions embedded. Name duplicates Title for consumers of the legacy
// shape.
type MovieShowtimes struct {
	MovieStatic
	Name     string        `json:"name"`
	Sessions []SessionView `json:"sessions"`
}

// Snapshot is the simplified projection retained for change detection: movie
// names with their session identifier sets, plus when it was taken.
type Snapshot struct {
	Movies    []SnapshotMovie `json:"movies"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type SnapshotMovie struct {
	Name     string   `json:"name"`
	Sessions []string `json:"sessions"`
}

// SessionDelta lists session identifiers added to or removed from one movie.
type SessionDelta struct {
	Movie string   `json:"movie"`
	Times []string `json:"times"`
}

// ChangeReport is the structural diff between two snapshots. HasChanges is
// true exactly when any of the four lists is non-empty.
type ChangeReport struct {
	AddedMovies     []string       `json:"added_movies"`
	RemovedMovies   []string       `json:"removed_movies"`
	AddedSessions   []SessionDelta `json:"added_sessions"`
	RemovedSessions []SessionDelta `json:"removed_sessions"`
	Summary         string         `json:"summary"`
	HasChanges      bool           `json:"has_changes"`
}

// TicketPrice is a best-effort price reading from a checkout page.
type TicketPrice struct {
	Full *float64 `json:"full"`
	Half *float64 `json:"half"`
	Free bool     `json:"free"`
}
