package ingresso

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// DayListings is the payload of the sessions endpoint for one calendar day:
// every movie playing that day with its sessions grouped by session type.
// The endpoint sometimes wraps it in a one-element array; see decodeDay.
type DayListings struct {
	Date          string  `json:"date"`
	DateFormatted string  `json:"dateFormatted"`
	DayOfWeek     string  `json:"dayOfWeek"`
	Movies        []Movie `json:"movies"`
}

// Movie is one raw catalog entry. Nearly every field is optional upstream;
// normalization substitutes defaults rather than failing.
type Movie struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	OriginalTitle    string         `json:"originalTitle"`
	URLKey           string         `json:"urlKey"`
	Duration         json.Number    `json:"duration"` // served as a string, e.g. "126"
	ContentRating    string         `json:"contentRating"`
	RatingDetails    *RatingDetails `json:"ratingDetails"`
	Genres           []string       `json:"genres"`
	Distributor      string         `json:"distributor"`
	Images           []Image        `json:"images"`
	Trailers         []Trailer      `json:"trailers"`
	Tags             []Tag          `json:"tags"`
	CompleteTags     []Tag          `json:"completeTags"`
	IsReexhibition   bool           `json:"isReexhibition"`
	InPreSale        bool           `json:"inPreSale"`
	SessionTypes     []SessionGroup `json:"sessionTypes"`
	Rooms            []SessionGroup `json:"rooms"` // older payload revisions group by room
	SiteURL          string         `json:"siteURL"`
	SiteURLByTheater string         `json:"siteURLByTheater"`
}

// DurationMinutes parses the duration field, returning 0 when absent or
// malformed.
func (m Movie) DurationMinutes() int {
	n, err := strconv.Atoi(m.Duration.String())
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type RatingDetails struct {
	Color string `json:"color"`
}

type Image struct {
	URL  string `json:"url"`
	Type string `json:"type"` // e.g. PosterPortrait, PosterHorizontal
}

type Trailer struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Tag appears upstream either as a bare string or as an object with a name.
type Tag struct {
	Name string `json:"name"`
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Name = s
		return nil
	}
	type plain Tag
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	t.Name = p.Name
	return nil
}

// SessionGroup is one session-type (or room) bucket of sessions.
type SessionGroup struct {
	CinemaID json.Number `json:"cinemaId"`
	Sessions []Session   `json:"sessions"`
}

// Session is one raw screening entry. Price is absent for free sessions.
type Session struct {
	ID      string      `json:"id"`
	Time    string      `json:"time"`
	Price   *float64    `json:"price"`
	Room    string      `json:"room"`
	Types   []TypeLabel `json:"types"`
	SiteURL string      `json:"siteURL"`
}

// TypeLabel classifies a session; audio labels (Dublado/Legendado) and
// presentation formats share the same list.
type TypeLabel struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// DateEntry is one entry of the available-dates endpoint.
type DateEntry struct {
	Date    string `json:"date"`
	IsToday bool   `json:"isToday"`
	Today   bool   `json:"today"` // older field name for the same flag
}
