package telegram

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-bot-platform/internal/application"
	"telegram-bot-platform/internal/config"
	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/adapter"
	"telegram-bot-platform/internal/infra/metrics"
	red "telegram-bot-platform/internal/infra/redis"
)

var _ adapter.TelegramBotAdapter = (*RealBotAdapter)(nil)

// RealBotAdapter polls Telegram updates with tgbotapi and delegates to the
// BotFacade. It is also the outbound transport used by the broadcast engine.
type RealBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealBotAdapter(cfg *config.BotConfig, facade *application.BotFacade, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	compLog := logger.With().Str("component", "TelegramBot").Logger()

	return &RealBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		rateLimiter:   rateLimiter,
		log:           &compLog,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}, nil
}

func (r *RealBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealBotAdapter) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	switch {
	case up.CallbackQuery != nil:
		metrics.IncBotUpdate("callback")
		return r.handleCallback(ctx, up.CallbackQuery)
	case up.Message != nil && up.Message.IsCommand():
		metrics.IncBotUpdate("command")
		return r.handleCommand(ctx, up.Message)
	case up.Message != nil:
		metrics.IncBotUpdate("message")
		return r.handleMessage(ctx, up.Message)
	}
	return nil
}

func (r *RealBotAdapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	if from == nil {
		return nil
	}
	chatID := msg.Chat.ID
	command := msg.Command()

	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.ChatCommandKey(chatID, command), 10, time.Minute)
		if err != nil {
			r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("rate limiter unavailable; allowing")
		} else if !allowed {
			return r.SendMessage(ctx, chatID, "Too many requests. Please slow down.")
		}
	}

	switch command {
	case "start":
		text, err := r.facade.HandleStart(ctx, chatID, from.UserName, from.FirstName, from.LastName)
		if err != nil {
			return r.sendErrorReply(ctx, chatID, err)
		}
		return r.SendButtons(ctx, chatID, text, mainMenuRows())
	case "help":
		if _, _, err := r.facade.HandleInboundEvent(ctx, chatID, from.UserName, from.FirstName, from.LastName, model.InteractionCommand, "/help"); err != nil {
			return r.sendErrorReply(ctx, chatID, err)
		}
		return r.SendMessage(ctx, chatID, r.facade.HandleHelp(ctx))
	case "stats":
		if _, _, err := r.facade.HandleInboundEvent(ctx, chatID, from.UserName, from.FirstName, from.LastName, model.InteractionCommand, "/stats"); err != nil {
			return r.sendErrorReply(ctx, chatID, err)
		}
		text, err := r.facade.HandleStats(ctx, chatID)
		if err != nil {
			return r.sendErrorReply(ctx, chatID, err)
		}
		return r.SendButtons(ctx, chatID, text, backRow())
	case "broadcast":
		if _, ok := r.adminIDsMap[chatID]; !ok {
			return r.SendMessage(ctx, chatID, "This command is restricted to administrators.")
		}
		if _, _, err := r.facade.HandleInboundEvent(ctx, chatID, from.UserName, from.FirstName, from.LastName, model.InteractionCommand, "/broadcast"); err != nil {
			return r.sendErrorReply(ctx, chatID, err)
		}
		text, err := r.facade.HandleBroadcast(ctx, chatID, msg.CommandArguments())
		if err != nil {
			if errors.Is(err, domain.ErrBroadcastInFlight) {
				return r.SendMessage(ctx, chatID, "A broadcast is already running.")
			}
			return r.sendErrorReply(ctx, chatID, err)
		}
		return r.SendMessage(ctx, chatID, text)
	default:
		return r.SendMessage(ctx, chatID, "Unknown command. Try /help.")
	}
}

func (r *RealBotAdapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	if from == nil {
		return nil
	}
	payload := truncateUTF8(msg.Text, 100)
	if _, _, err := r.facade.HandleInboundEvent(ctx, msg.Chat.ID, from.UserName, from.FirstName, from.LastName, model.InteractionMessage, payload); err != nil {
		return r.sendErrorReply(ctx, msg.Chat.ID, err)
	}
	return r.SendMessage(ctx, msg.Chat.ID, "I only understand commands for now. Try /help.")
}

type cbHandler func(ctx context.Context, chatID int64) (text string, rows [][]adapter.InlineButton, err error)

func (r *RealBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"menu:stats": func(ctx context.Context, id int64) (string, [][]adapter.InlineButton, error) {
			text, err := r.facade.HandleStats(ctx, id)
			return text, backRow(), err
		},
		"menu:help": func(ctx context.Context, id int64) (string, [][]adapter.InlineButton, error) {
			return r.facade.HandleHelp(ctx), backRow(), nil
		},
		"menu:endpoints": func(ctx context.Context, id int64) (string, [][]adapter.InlineButton, error) {
			return r.facade.HandleEndpoints(ctx), backRow(), nil
		},
		"menu:back": func(ctx context.Context, id int64) (string, [][]adapter.InlineButton, error) {
			return "Main menu - choose an option:", mainMenuRows(), nil
		},
	}
}

func (r *RealBotAdapter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	// Acknowledge to stop the client spinner.
	if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		r.log.Warn().Err(err).Msg("callback ack failed")
	}
	if cb.Message == nil || cb.From == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID

	if _, _, err := r.facade.HandleInboundEvent(ctx, chatID, cb.From.UserName, cb.From.FirstName, cb.From.LastName, model.InteractionCallback, cb.Data); err != nil {
		return r.sendErrorReply(ctx, chatID, err)
	}

	handler, ok := r.cbRoutes()[cb.Data]
	if !ok {
		return r.SendMessage(ctx, chatID, "Unknown action.")
	}
	text, rows, err := handler(ctx, chatID)
	if err != nil {
		return r.sendErrorReply(ctx, chatID, err)
	}
	return r.SendButtons(ctx, chatID, text, rows)
}

func (r *RealBotAdapter) sendErrorReply(ctx context.Context, chatID int64, err error) error {
	r.log.Error().Err(err).Int64("chat_id", chatID).Msg("bot handler error")
	return r.SendMessage(ctx, chatID, "Sorry, something went wrong. Please try again later.")
}

// SendMessage implements the transport port: one best-effort delivery.
func (r *RealBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			switch {
			case btn.URL != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			case btn.Data != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			default:
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Text))
			}
		}
		kbRows = append(kbRows, kbRow)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(kbRows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	}
	_, err := r.bot.Send(msg)
	return err
}

func mainMenuRows() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "My Stats", Data: "menu:stats"}},
		{{Text: "API Endpoints", Data: "menu:endpoints"}},
		{{Text: "Help", Data: "menu:help"}},
	}
}

// truncateUTF8 caps s at max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func backRow() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "Back to Menu", Data: "menu:back"}},
	}
}
