package notify

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/niksodev/mcz-watcher/internal/services"
)

// Bot is the reactive Telegram listener: it long-polls for commands and
// answers from the programme service, cache-first.
type Bot struct {
	api       *tgbotapi.BotAPI
	programme *services.Programme
	loc       *time.Location
}

func NewBot(token string, programme *services.Programme, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, programme: programme, loc: loc}, nil
}

const welcome = `🎬 <b>Bem-vindo ao Cinesystem Bot!</b>

Aqui você encontra a programação dos filmes em cartaz no Cinesystem Maceió.

/today — filmes de hoje
/tomorrow — filmes de amanhã
/upcoming — próximos lançamentos
/refresh — buscar dados novos (ignora cache)`

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	slog.Info("bot: polling for updates", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var text string
	switch msg.Command() {
	case "start":
		text = welcome
	case "today":
		text = b.programmeFor(ctx, 0, false)
	case "tomorrow":
		text = b.programmeFor(ctx, 1, false)
	case "refresh":
		text = b.programmeFor(ctx, 0, true)
	case "upcoming":
		movies, fromCache, err := b.programme.Upcoming(ctx)
		if err != nil {
			slog.Warn("bot: upcoming failed", "error", err)
			text = "❌ Erro ao buscar lançamentos. Tente novamente mais tarde."
			break
		}
		text = Upcoming(movies)
		if fromCache {
			text += "\n\n<i>Dados fornecidos pelo cache</i>"
		}
	default:
		text = "❓ Comando não reconhecido. Envie /start para ver as opções."
	}
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) programmeFor(ctx context.Context, daysOffset int, refresh bool) string {
	date := time.Now().In(b.loc).AddDate(0, 0, daysOffset).Format(time.DateOnly)
	view, err := b.programme.Day(ctx, date, refresh)
	if err != nil {
		slog.Warn("bot: day lookup failed", "date", date, "error", err)
		return "❌ Erro ao buscar a programação. Tente novamente mais tarde."
	}
	text := Programme(view.Movies, view.Date)
	if view.FromCache {
		text += "\n\n<i>Dados fornecidos pelo cache</i>"
	}
	return text
}

func (b *Bot) reply(chatID int64, html string) {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("bot: send failed", "chat_id", chatID, "error", err)
	}
}
