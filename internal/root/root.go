// Package root assembles the CLI command tree and wires configuration into
// the source, cache, snapshot store, and services.
package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/niksodev/mcz-watcher/internal"
	"github.com/niksodev/mcz-watcher/internal/browser"
	"github.com/niksodev/mcz-watcher/internal/cache"
	"github.com/niksodev/mcz-watcher/internal/config"
	"github.com/niksodev/mcz-watcher/internal/enrichment"
	"github.com/niksodev/mcz-watcher/internal/ingresso"
	"github.com/niksodev/mcz-watcher/internal/notify"
	"github.com/niksodev/mcz-watcher/internal/prices"
	"github.com/niksodev/mcz-watcher/internal/services"
	"github.com/niksodev/mcz-watcher/internal/snapshot"
)

// RootOption configures the root command (e.g. for tests).
type RootOption func(*rootConfig)

type rootConfig struct {
	source ingresso.Source
	out    io.Writer
}

// WithSource injects the listings source. Use in tests to point the CLI at a
// golden HTTP server instead of the live API.
func WithSource(source ingresso.Source) RootOption {
	return func(c *rootConfig) {
		c.source = source
	}
}

// WithOutput redirects command output (tests).
func WithOutput(w io.Writer) RootOption {
	return func(c *rootConfig) {
		c.out = w
	}
}

// env bundles everything a command action needs, built once per invocation
// from the resolved configuration.
type env struct {
	cfg       *config.Config
	loc       *time.Location
	source    ingresso.Source
	programme *services.Programme
	browser   browser.Interface
	out       io.Writer
}

func (e *env) Close() {
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			slog.Warn("failed to close browser", "error", err)
		}
	}
}

func Root(opts ...RootOption) *cli.Command {
	rc := &rootConfig{out: os.Stdout}
	for _, opt := range opts {
		opt(rc)
	}

	return &cli.Command{
		Name:  "mcz-watcher",
		Usage: "Cinesystem Maceió showtimes: daily programme, upcoming releases, change watching",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML config file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			todayCommand(rc),
			upcomingCommand(rc),
			watchCommand(rc),
			pricesCommand(rc),
			listenCommand(rc),
		},
	}
}

func todayCommand(rc *rootConfig) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "print the programme for today (or --date)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "day to list, YYYY-MM-DD (default: today at the venue)",
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "bypass the cache and fetch fresh listings",
			},
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := buildEnv(cmd, rc)
			if err != nil {
				return err
			}
			defer e.Close()

			view, err := e.programme.Day(ctx, cmd.String("date"), cmd.Bool("refresh"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(e.out, view)
			}
			renderDay(e.out, view)
			return nil
		},
	}
}

func upcomingCommand(rc *rootConfig) *cli.Command {
	return &cli.Command{
		Name:  "upcoming",
		Usage: "print titles arriving soon, annotated with first date and prices",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := buildEnv(cmd, rc)
			if err != nil {
				return err
			}
			defer e.Close()

			movies, fromCache, err := e.programme.Upcoming(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(e.out, movies)
			}
			renderUpcoming(e.out, movies, fromCache)
			return nil
		},
	}
}

func watchCommand(rc *rootConfig) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "fetch today fresh, rotate snapshots, and report changes since the last run",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "notify",
				Usage: "send the programme (and changes, if any) to the configured Telegram chat",
			},
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := buildEnv(cmd, rc)
			if err != nil {
				return err
			}
			defer e.Close()

			result, err := e.programme.Watch(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				if err := writeJSON(e.out, result); err != nil {
					return err
				}
			} else {
				renderDay(e.out, result.View)
				fmt.Fprintln(e.out)
				renderReport(e.out, result.Report)
			}

			if !cmd.Bool("notify") {
				return nil
			}
			if e.cfg.Telegram.BotToken == "" || e.cfg.Telegram.ChatID == 0 {
				return errors.New("--notify requires telegram.bot_token and telegram.chat_id")
			}
			tg, err := notify.NewTelegram(e.cfg.Telegram.BotToken, e.cfg.Telegram.ChatID)
			if err != nil {
				return err
			}
			if err := tg.Send(notify.Programme(result.View.Movies, result.View.Date)); err != nil {
				return err
			}
			if result.Report.HasChanges {
				if err := tg.Send(notify.Changes(result.Report)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func pricesCommand(rc *rootConfig) *cli.Command {
	return &cli.Command{
		Name:      "prices",
		Usage:     "inspect a session checkout page for full/half ticket prices",
		ArgsUsage: "<checkout-url>",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			url := cmd.Args().First()
			if url == "" {
				return errors.New("prices requires a checkout URL argument")
			}
			b := browser.Headless()
			defer func() {
				if err := b.Close(); err != nil {
					slog.Warn("failed to close browser", "error", err)
				}
			}()

			price, err := prices.NewInspector(b).SessionPrice(ctx, url)
			if err != nil {
				return err
			}
			out := outputFor(rc)
			if cmd.Bool("json") {
				return writeJSON(out, price)
			}
			renderPrice(out, price)
			return nil
		},
	}
}

func listenCommand(rc *rootConfig) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "run the interactive Telegram bot until interrupted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := buildEnv(cmd, rc)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.cfg.Telegram.BotToken == "" {
				return errors.New("listen requires telegram.bot_token")
			}
			bot, err := notify.NewBot(e.cfg.Telegram.BotToken, e.programme, e.loc)
			if err != nil {
				return err
			}
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func buildEnv(cmd *cli.Command, rc *rootConfig) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, loc: loc, out: outputFor(rc)}

	source := rc.source
	if source == nil {
		clientOpts := []ingresso.Option{
			ingresso.WithBaseURL(cfg.Ingresso.BaseURL),
			ingresso.WithTheater(cfg.Ingresso.CityID, cfg.Ingresso.TheaterID),
			ingresso.WithLocation(loc),
			ingresso.WithClient(&http.Client{Timeout: 30 * time.Second}),
		}
		if cfg.Browser.Headless {
			b := browser.Headless()
			e.browser = b
			clientOpts = append(clientOpts, ingresso.WithBrowser(b))
		}
		source = ingresso.NewClient(clientOpts...)
		if cfg.Cache.MaxEntries > 0 && cfg.Cache.TTL > 0 {
			source = ingresso.Cached(cfg.Cache.MaxEntries, cfg.Cache.TTL)(source)
		}
	}
	e.source = source

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		e.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store := cache.NewStore(filepath.Join(cfg.DataDir, "cache.json"), loc)
	store.Load()
	snaps := snapshot.NewStore(cfg.DataDir)

	progOpts := []services.ProgrammeOption{services.WithHorizon(cfg.Upcoming.HorizonDays)}
	if cfg.TMDB.APIKey != "" {
		tmdbClient, err := enrichment.TMDB(cfg.TMDB.APIKey)
		if err != nil {
			slog.Info("TMDB enrichment not configured", "reason", "client init failed", "error", err)
		} else {
			progOpts = append(progOpts, services.WithEnrichers(tmdbClient))
			slog.Info("TMDB enrichment configured")
		}
	}
	e.programme = services.NewProgramme(source, store, snaps, progOpts...)
	return e, nil
}

func outputFor(rc *rootConfig) io.Writer {
	if rc.out != nil {
		return rc.out
	}
	return os.Stdout
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "emit JSON instead of text",
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderDay(w io.Writer, view *services.DayView) {
	fmt.Fprintf(w, "Programme for %s", view.Date)
	if view.FromCache {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	if len(view.Movies) == 0 {
		fmt.Fprintln(w, "  no sessions")
		return
	}
	for _, movie := range view.Movies {
		fmt.Fprintf(w, "  %s\n", movie.Name)
		for _, s := range movie.Sessions {
			line := fmt.Sprintf("    %s  %s", s.Time, s.Format)
			if s.Audio != "" {
				line += " " + s.Audio
			}
			switch {
			case s.Free:
				line += "  free"
			case s.FullPrice != nil:
				line += fmt.Sprintf("  R$ %.2f", *s.FullPrice)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func renderUpcoming(w io.Writer, movies []internal.UpcomingMovie, fromCache bool) {
	fmt.Fprint(w, "Upcoming releases")
	if fromCache {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	if len(movies) == 0 {
		fmt.Fprintln(w, "  none within the horizon")
		return
	}
	for _, m := range movies {
		line := fmt.Sprintf("  %s  from %s", m.Title, m.FirstDate)
		if len(m.Formats) > 0 {
			formats := append([]string(nil), m.Formats...)
			sort.Strings(formats)
			line += "  [" + strings.Join(formats, ", ") + "]"
		}
		if m.PriceFrom != nil {
			line += fmt.Sprintf("  from R$ %.2f", *m.PriceFrom)
		}
		if m.InPreSale {
			line += "  (pre-sale)"
		}
		fmt.Fprintln(w, line)
	}
}

func renderReport(w io.Writer, report internal.ChangeReport) {
	fmt.Fprintln(w, report.Summary)
	for _, name := range report.AddedMovies {
		fmt.Fprintf(w, "  + %s\n", name)
	}
	for _, name := range report.RemovedMovies {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	for _, delta := range report.AddedSessions {
		fmt.Fprintf(w, "  + %s: %s\n", delta.Movie, strings.Join(delta.Times, ", "))
	}
	for _, delta := range report.RemovedSessions {
		fmt.Fprintf(w, "  - %s: %s\n", delta.Movie, strings.Join(delta.Times, ", "))
	}
}

func renderPrice(w io.Writer, price internal.TicketPrice) {
	switch {
	case price.Free:
		fmt.Fprintln(w, "free session")
	case price.Full == nil:
		fmt.Fprintln(w, "no price found")
	default:
		fmt.Fprintf(w, "full R$ %.2f", *price.Full)
		if price.Half != nil {
			fmt.Fprintf(w, "  half R$ %.2f", *price.Half)
		}
		fmt.Fprintln(w)
	}
}
