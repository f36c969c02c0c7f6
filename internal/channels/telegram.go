package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/config/channel"
)

const telegramMaxMsgLen = 4000

// TelegramChannel implements the Telegram bot via long polling. The agent
// speaks in the last chat that wrote to it.
type TelegramChannel struct {
	Base
	cfg    *channel.TelegramConfig
	router *Router

	bot      *tgbotapi.BotAPI
	lastChat atomic.Int64
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *channel.TelegramConfig, router *Router) *TelegramChannel {
	return &TelegramChannel{
		Base: NewBase(string(bus.ChannelTelegram), cfg.AllowFrom,
			WithLogAll(cfg.LogAll), WithRateLimit(cfg.MessagesPerSecond)),
		cfg:    cfg,
		router: router,
	}
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return errors.New("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	ep := t.router.OpenTwoWay(t.Name())
	defer ep.Close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)
	defer bot.StopReceivingUpdates()

	go func() {
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, ep.Out, update)
			case <-ctx.Done():
				return
			}
		}
	}()

	return t.Relay(ctx, ep.In, t.send)
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, out *bus.Sender, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	username := msg.From.FirstName
	if msg.From.UserName != "" {
		senderID += "|" + msg.From.UserName
		username = msg.From.UserName
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}
	if t.HandleMessage(ctx, out, senderID, username, content) {
		t.lastChat.Store(msg.Chat.ID)
	}
}

func (t *TelegramChannel) send(_ context.Context, text string) error {
	chatID := t.lastChat.Load()
	if chatID == 0 {
		slog.Debug("telegram: no chat yet, dropping message")
		return nil
	}
	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram: send message: %w", err)
		}
	}
	return nil
}
