package channels

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/projectlily/lily/internal/config/channel"
	"github.com/projectlily/lily/internal/schema"
)

// Manager owns all enabled integrations and runs them against one Router.
type Manager struct {
	router       *Router
	integrations []schema.Integration
}

// ManagerOptions carries what the integrations need besides their config.
type ManagerOptions struct {
	AgentName string
	// TranscriptPath is where the transcript sink writes.
	TranscriptPath string
	// OnExit runs when the console user leaves.
	OnExit func()
	// Extra integrations built elsewhere, such as reminders and the heartbeat.
	Extra []schema.Integration
}

// NewManager builds every integration enabled in cfg.
func NewManager(cfg *channel.ChannelsConfig, router *Router, opts ManagerOptions) *Manager {
	m := &Manager{router: router}

	if cfg.CLI.Enabled {
		m.add(NewCLIChannel(&cfg.CLI, router, opts.AgentName, opts.OnExit))
	}
	if cfg.Discord.Enabled {
		m.add(NewDiscordChannel(&cfg.Discord, router))
	}
	if cfg.Slack.Enabled {
		m.add(NewSlackChannel(&cfg.Slack, router))
	}
	if cfg.Telegram.Enabled {
		m.add(NewTelegramChannel(&cfg.Telegram, router))
	}
	if cfg.WhatsApp.Enabled {
		m.add(NewWhatsAppChannel(&cfg.WhatsApp, router))
	}
	if cfg.Transcript.Enabled {
		path := opts.TranscriptPath
		if path == "" {
			path = cfg.Transcript.Path
		}
		m.add(NewTranscriptSink(path, router))
	}
	for _, in := range opts.Extra {
		if in != nil {
			m.add(in)
		}
	}
	return m
}

func (m *Manager) add(in schema.Integration) {
	m.integrations = append(m.integrations, in)
	slog.Info("channel enabled", "name", in.Name())
}

// Router returns the router every integration is attached to.
func (m *Manager) Router() *Router { return m.router }

// EnabledChannels returns the names of all enabled integrations.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.integrations))
	for _, in := range m.integrations {
		names = append(names, in.Name())
	}
	return names
}

// StartAll runs every integration concurrently and blocks until all of them
// have returned. Integration errors are logged and never propagated; the
// agent keeps running without the failed integration.
func (m *Manager) StartAll(ctx context.Context) error {
	var g errgroup.Group
	for _, in := range m.integrations {
		g.Go(func() error {
			slog.Info("starting channel", "name", in.Name())
			started := time.Now()
			if err := in.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("channel exited with error", "name", in.Name(), "err", err)
				return nil
			}
			slog.Info("channel stopped", "name", in.Name(), "uptime", time.Since(started).Round(time.Second))
			return nil
		})
	}
	return g.Wait()
}
