// Package notify renders the programme and change reports for Telegram and
// delivers them through the Bot API.
package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/niksodev/mcz-watcher/internal"
)

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

var monthNames = []string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// humanDate renders a YYYY-MM-DD day key as e.g. "23 de fevereiro de 2026".
// Unparseable input is returned as-is.
func humanDate(day string) string {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return day
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

// Programme renders the day's composite view as Telegram HTML: sessions
// grouped by format, each group with its times and a price tag.
func Programme(movies []internal.MovieShowtimes, day string) string {
	var b strings.Builder
	b.WriteString("🎬 <b>Cinesystem Maceió – Programação</b>\n")
	b.WriteString("📅 " + escapeHTML(humanDate(day)) + "\n\n")

	if len(movies) == 0 {
		b.WriteString("Nenhuma sessão encontrada para esta data.")
		return b.String()
	}

	for _, movie := range movies {
		b.WriteString("<b>" + escapeHTML(movie.Name) + "</b>\n")
		for _, group := range groupByFormat(movie.Sessions) {
			times := make([]string, 0, len(group.sessions))
			for _, s := range group.sessions {
				times = append(times, s.Time)
			}
			sort.Strings(times)
			b.WriteString("  " + escapeHTML(group.format) + ": " + strings.Join(times, ", "))
			b.WriteString(priceTag(group.sessions))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

type formatGroup struct {
	format   string
	sessions []internal.SessionView
}

// groupByFormat buckets sessions by presentation format, preserving the
// order in which formats first appear.
func groupByFormat(sessions []internal.SessionView) []formatGroup {
	index := make(map[string]int)
	var out []formatGroup
	for _, s := range sessions {
		format := s.Format
		if format == "" {
			format = "2D"
		}
		i, ok := index[format]
		if !ok {
			i = len(out)
			index[format] = i
			out = append(out, formatGroup{format: format})
		}
		out[i].sessions = append(out[i].sessions, s)
	}
	return out
}

// priceTag renders the group's price: the first priced session's full
// price, or a free marker when every session is free.
func priceTag(sessions []internal.SessionView) string {
	for _, s := range sessions {
		if s.FullPrice != nil {
			return fmt.Sprintf(" — R$ %s", brl(*s.FullPrice))
		}
	}
	for _, s := range sessions {
		if s.Free {
			return " — Gratuito ✨"
		}
	}
	return ""
}

func brl(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

// Changes renders a change report as Telegram HTML. Callers should skip
// sending when the report has no changes.
func Changes(report internal.ChangeReport) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Mudanças na programação</b>\n")
	b.WriteString(escapeHTML(report.Summary) + "\n")

	if len(report.AddedMovies) > 0 {
		b.WriteString("\n<b>Em cartaz agora</b>\n")
		for _, name := range report.AddedMovies {
			b.WriteString("  + " + escapeHTML(name) + "\n")
		}
	}
	if len(report.RemovedMovies) > 0 {
		b.WriteString("\n<b>Saíram de cartaz</b>\n")
		for _, name := range report.RemovedMovies {
			b.WriteString("  - " + escapeHTML(name) + "\n")
		}
	}
	if len(report.AddedSessions) > 0 {
		b.WriteString("\n<b>Sessões adicionadas</b>\n")
		for _, delta := range report.AddedSessions {
			b.WriteString("  " + escapeHTML(delta.Movie) + ": " + escapeHTML(strings.Join(delta.Times, ", ")) + "\n")
		}
	}
	if len(report.RemovedSessions) > 0 {
		b.WriteString("\n<b>Sessões removidas</b>\n")
		for _, delta := range report.RemovedSessions {
			b.WriteString("  " + escapeHTML(delta.Movie) + ": " + escapeHTML(strings.Join(delta.Times, ", ")) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Upcoming renders the upcoming-releases list as Telegram HTML.
func Upcoming(movies []internal.UpcomingMovie) string {
	var b strings.Builder
	b.WriteString("🍿 <b>Próximos lançamentos</b>\n\n")
	if len(movies) == 0 {
		b.WriteString("Nenhum lançamento previsto.")
		return b.String()
	}
	for _, m := range movies {
		b.WriteString("<b>" + escapeHTML(m.Title) + "</b> — " + escapeHTML(humanDate(m.FirstDate)))
		if m.InPreSale {
			b.WriteString(" (pré-venda)")
		}
		b.WriteByte('\n')
		if len(m.Formats) > 0 {
			b.WriteString("  " + escapeHTML(strings.Join(m.Formats, ", ")))
			if m.PriceFrom != nil {
				b.WriteString(" — a partir de R$ " + brl(*m.PriceFrom))
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
