package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/config/channel"
	"github.com/projectlily/lily/internal/schema"
)

const discordMaxMsgLen = 2000

// DiscordChannel connects the agent to one Discord text channel. Everything
// users write where the bot can read it goes to the agent; what the agent says
// goes to the configured channel, or to the last channel that spoke when none
// is configured.
type DiscordChannel struct {
	Base
	cfg    *channel.DiscordConfig
	router *Router

	session *discordgo.Session

	mu         sync.Mutex
	lastActive string
}

func NewDiscordChannel(cfg *channel.DiscordConfig, router *Router) *DiscordChannel {
	return &DiscordChannel{
		Base: NewBase(string(bus.ChannelDiscord), cfg.AllowFrom,
			WithLogAll(cfg.LogAll), WithRateLimit(cfg.MessagesPerSecond)),
		cfg:    cfg,
		router: router,
	}
}

// Start logs in, registers the discord channel with the router and relays
// until ctx is cancelled or the agent closes the channel.
func (d *DiscordChannel) Start(ctx context.Context) error {
	if d.cfg.Token == "" {
		return errors.New("discord: token not configured")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	d.session = session

	ep := d.router.OpenTwoWay(d.Name())
	defer ep.Close()

	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord: connected", "username", r.User.Username)
		d.Notify(ctx, ep.Out, schema.SeverityInfo,
			fmt.Sprintf("You have connected to Discord as `%s`", r.User.Username))
	})
	session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		d.handleMessage(ctx, ep.Out, m)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	defer session.Close()

	return d.Relay(ctx, ep.In, d.send)
}

func (d *DiscordChannel) handleMessage(ctx context.Context, out *bus.Sender, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	d.mu.Lock()
	d.lastActive = m.ChannelID
	d.mu.Unlock()

	d.HandleMessage(ctx, out, m.Author.ID+"|"+m.Author.Username, m.Author.Username, m.Content)
}

func (d *DiscordChannel) target() string {
	if d.cfg.ChannelID != "" {
		return d.cfg.ChannelID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActive
}

func (d *DiscordChannel) send(ctx context.Context, text string) error {
	channelID := d.target()
	if channelID == "" {
		slog.Debug("discord: no channel to speak in yet, dropping message")
		return nil
	}
	for _, chunk := range splitMessage(text, discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: send message: %w", err)
		}
	}
	return nil
}
