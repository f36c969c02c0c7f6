package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"

	"github.com/projectlily/lily/internal/config/memory"
)

// ConfigPath returns the default configuration file path: ~/.lily/config.json.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lily/config.json"
	}
	return filepath.Join(home, ".lily", "config.json")
}

// DataDir returns the lily data directory: ~/.lily.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lily"
	}
	return filepath.Join(home, ".lily")
}

// Load reads the config file at path over DefaultConfig and then applies
// environment overrides. A missing file yields the defaults.
// If path is empty, ConfigPath() is used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to path as indented JSON.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate reports every setting that would stop the agent from starting.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Provider.APIBase) == "" {
		errs = append(errs, errors.New("provider.apiBase is required"))
	} else if u, err := url.Parse(c.Provider.APIBase); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("provider.apiBase %q is not an absolute URL", c.Provider.APIBase))
	}

	comp := c.Agent.Completion
	if comp.MaxTokens <= 0 {
		errs = append(errs, errors.New("agent.completion.maxTokens must be positive"))
	}
	if comp.ContextLength <= comp.MaxTokens {
		errs = append(errs, fmt.Errorf("agent.completion.contextLength %d must exceed maxTokens %d",
			comp.ContextLength, comp.MaxTokens))
	}
	if c.Agent.TickIntervalMs < 0 {
		errs = append(errs, errors.New("agent.tickIntervalMs must not be negative"))
	}
	if c.Memory.StartupBudget < 0 {
		errs = append(errs, errors.New("memory.startupBudget must not be negative"))
	}

	if r := c.Memory.Recall; r.Enabled {
		switch r.Embedder {
		case memory.EmbedderOllama, memory.EmbedderOpenAI:
		default:
			errs = append(errs, fmt.Errorf("memory.recall.embedder %q is not one of ollama, openai", r.Embedder))
		}
		if r.Dimensions <= 0 {
			errs = append(errs, errors.New("memory.recall.dimensions must be positive"))
		}
	}

	ch := c.Channels
	if ch.Discord.Enabled {
		if ch.Discord.Token == "" {
			errs = append(errs, errors.New("channels.discord.token is required (or DISCORD_TOKEN)"))
		}
		if ch.Discord.ChannelID != "" {
			if _, err := strconv.ParseUint(ch.Discord.ChannelID, 10, 64); err != nil {
				errs = append(errs, fmt.Errorf("channels.discord.channelId %q is not a numeric id", ch.Discord.ChannelID))
			}
		}
	}
	if ch.Slack.Enabled && (ch.Slack.BotToken == "" || ch.Slack.AppToken == "") {
		errs = append(errs, errors.New("channels.slack needs both botToken and appToken"))
	}
	if ch.Telegram.Enabled && ch.Telegram.Token == "" {
		errs = append(errs, errors.New("channels.telegram.token is required (or TELEGRAM_TOKEN)"))
	}
	if ch.WhatsApp.Enabled && ch.WhatsApp.BridgeURL == "" {
		errs = append(errs, errors.New("channels.whatsapp.bridgeUrl is required"))
	}
	if ch.Heartbeat.Enabled && ch.Heartbeat.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("channels.heartbeat.intervalSeconds must be positive"))
	}

	return errors.Join(errs...)
}
