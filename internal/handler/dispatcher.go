// Package handler routes incoming Telegram messages to the ledger.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"betlog-bot/internal/command"
	"betlog-bot/internal/config"
	"betlog-bot/internal/metrics"
	"betlog-bot/internal/model"
	"betlog-bot/internal/pkg/lock"
	"betlog-bot/internal/service"
)

// Message is an incoming chat message.
type Message struct {
	SenderID string
	ChatID   int64
	Text     string
}

// FromTelegram converts a Telegram message. It returns false for messages
// without a sender or chat (channel posts, service messages).
func FromTelegram(m *tele.Message) (Message, bool) {
	if m == nil || m.Sender == nil || m.Chat == nil {
		return Message{}, false
	}
	return Message{
		SenderID: strconv.FormatInt(m.Sender.ID, 10),
		ChatID:   m.Chat.ID,
		Text:     m.Text,
	}, true
}

// Notifier delivers a text reply to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Outcome tells the transport what happened to a message.
type Outcome int

const (
	OutcomeHandled Outcome = iota
	OutcomeIgnored
	OutcomeUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Dispatcher authorizes a message, runs its command and sends the reply.
// It holds no per-conversation state.
type Dispatcher struct {
	cfg      *config.Config
	ledger   *service.LedgerService
	notifier Notifier
	metrics  *metrics.Metrics
	chats    *lock.KeyedLock
}

// chatLockTimeout bounds how long a command waits behind another one from
// the same chat.
const chatLockTimeout = 10 * time.Second

// NewDispatcher creates a new Dispatcher. m may be nil.
func NewDispatcher(cfg *config.Config, ledger *service.LedgerService, notifier Notifier, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		ledger:   ledger,
		notifier: notifier,
		metrics:  m,
		chats:    lock.NewKeyedLock(),
	}
}

// Dispatch handles one message end to end. Returned errors are storage
// failures; validation problems are answered in the chat instead.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (Outcome, error) {
	if !d.cfg.IsAuthorized(msg.SenderID) {
		log.Warn().
			Str("user_id", msg.SenderID).
			Int64("chat_id", msg.ChatID).
			Msg("Rejected message from unauthorized sender")
		d.metrics.Command("any", OutcomeUnauthorized.String())
		return OutcomeUnauthorized, nil
	}

	cmd := command.Detect(msg.Text)
	if cmd.Kind == command.KindUnknown {
		d.metrics.Command(cmd.Kind.String(), OutcomeIgnored.String())
		return OutcomeIgnored, nil
	}

	chatKey := strconv.FormatInt(msg.ChatID, 10)
	if err := d.chats.LockContext(ctx, chatKey, chatLockTimeout); err != nil {
		return OutcomeHandled, fmt.Errorf("failed to acquire chat %d: %w", msg.ChatID, err)
	}
	defer d.chats.Unlock(chatKey)

	var (
		reply string
		err   error
	)
	switch cmd.Kind {
	case command.KindStart:
		reply = welcomeText
	case command.KindAdd:
		reply, err = d.handleAdd(ctx, msg.SenderID, cmd)
	case command.KindOpen:
		reply, err = d.handleOpen(ctx, msg.SenderID)
	case command.KindResult:
		reply, err = d.handleResult(ctx, msg.SenderID, cmd)
	case command.KindStats:
		reply, err = d.handleStats(ctx, msg.SenderID)
	default:
		d.metrics.Command(cmd.Kind.String(), OutcomeIgnored.String())
		return OutcomeIgnored, nil
	}

	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", msg.SenderID).
			Str("command", cmd.Kind.String()).
			Msg("Command failed")
		d.metrics.Command(cmd.Kind.String(), "error")
		return OutcomeHandled, err
	}

	d.metrics.Command(cmd.Kind.String(), OutcomeHandled.String())
	d.send(ctx, msg.ChatID, reply)
	return OutcomeHandled, nil
}

// send is fire-and-forget: a failed delivery is logged and never undoes a committed write.
// Replies longer than one Telegram message go out in several parts.
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageRunes) {
		if err := d.notifier.Send(ctx, chatID, part); err != nil {
			log.Error().
				Err(err).
				Int64("chat_id", chatID).
				Msg("Failed to send reply")
			d.metrics.NotifyFailure()
			return
		}
	}
}

func (d *Dispatcher) handleAdd(ctx context.Context, userID string, cmd command.Command) (string, error) {
	req, err := command.ParseAdd(cmd.Payload)
	if err != nil {
		return addFormatError, nil
	}

	bet := &model.NewBet{
		UserID:   userID,
		Match:    req.Match,
		Market:   req.Market,
		Pick:     req.Pick,
		Odds:     req.Odds,
		StakePct: req.StakePct,
		Note:     req.Note,
	}
	id, err := d.ledger.AddBet(ctx, bet)
	if err != nil {
		return "", err
	}
	d.metrics.BetRecorded()

	return formatAddConfirmation(id, bet), nil
}

func (d *Dispatcher) handleOpen(ctx context.Context, userID string) (string, error) {
	bets, err := d.ledger.OpenBets(ctx, userID)
	if err != nil {
		return "", err
	}
	return formatOpenBets(bets), nil
}

func (d *Dispatcher) handleResult(ctx context.Context, userID string, cmd command.Command) (string, error) {
	req, err := command.ParseResult(cmd.Text)
	switch {
	case errors.Is(err, command.ErrUsage):
		return resultUsage, nil
	case errors.Is(err, command.ErrInvalidStatus):
		return resultInvalidStatus, nil
	case err != nil:
		return "", err
	}

	ok, err := d.ledger.Settle(ctx, userID, req.BetID, req.Status)
	if err != nil {
		return "", err
	}
	if !ok {
		return formatNotFound(req.BetID), nil
	}
	d.metrics.Settlement(req.Status.String())

	return formatSettled(req.BetID, req.Status), nil
}

func (d *Dispatcher) handleStats(ctx context.Context, userID string) (string, error) {
	stats, err := d.ledger.Stats(ctx, userID)
	if err != nil {
		return "", err
	}
	return formatStats(stats), nil
}
