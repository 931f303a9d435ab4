// Package bot provides the Telegram bot: outbound replies and, in polling
// mode, inbound updates.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"betlog-bot/internal/config"
	"betlog-bot/internal/handler"
)

// Bot wraps the telebot instance with the dispatcher.
type Bot struct {
	bot        *tele.Bot
	cfg        *config.Config
	dispatcher *handler.Dispatcher
}

// New creates the telebot client. In polling mode a long poller is attached;
// in webhook mode updates arrive through the HTTP server instead.
func New(cfg *config.Config) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token: cfg.Bot.Token,
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}
	if cfg.Bot.Mode == config.ModePolling {
		pref.Poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{bot: teleBot, cfg: cfg}, nil
}

// Send delivers text to a chat. It implements handler.Notifier.
func (b *Bot) Send(_ context.Context, chatID int64, text string) error {
	if _, err := b.bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// Attach wires the dispatcher for polling mode and registers middleware.
func (b *Bot) Attach(d *handler.Dispatcher) {
	b.dispatcher = d

	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())

	// Commands without a dedicated handler fall through to OnText.
	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleText(c tele.Context) error {
	msg, ok := handler.FromTelegram(c.Message())
	if !ok {
		return nil
	}
	_, err := b.dispatcher.Dispatch(context.Background(), msg)
	return err
}

// RegisterWebhook points Telegram at publicURL+path. It is a no-op when
// publicURL is empty.
func (b *Bot) RegisterWebhook() error {
	srv := b.cfg.Server
	if srv.PublicURL == "" {
		return nil
	}

	endpoint := strings.TrimRight(srv.PublicURL, "/") + srv.WebhookPath
	err := b.bot.SetWebhook(&tele.Webhook{
		Endpoint:       &tele.WebhookEndpoint{PublicURL: endpoint},
		AllowedUpdates: []string{"message"},
		SecretToken:    srv.SecretToken,
	})
	if err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}

	log.Info().Str("endpoint", endpoint).Msg("Webhook registered")
	return nil
}

// Start starts long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot long polling...")
	b.bot.Start()
}

// Stop stops long polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
