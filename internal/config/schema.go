// Package config defines the configuration schema for lily.
//
// JSON keys use camelCase. The file may contain comments and trailing commas.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/projectlily/lily/internal/config/agent"
	"github.com/projectlily/lily/internal/config/channel"
	"github.com/projectlily/lily/internal/config/memory"
	"github.com/projectlily/lily/internal/config/provider"
)

// Config is the root configuration object, loaded from ~/.lily/config.json.
type Config struct {
	Agent    agent.AgentConfig       `json:"agent"`
	Provider provider.ProviderConfig `json:"provider"`
	Memory   memory.MemoryConfig     `json:"memory"`
	Channels channel.ChannelsConfig  `json:"channels"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agent:    agent.DefaultAgentConfig(),
		Provider: provider.DefaultProviderConfig(),
		Memory:   memory.DefaultMemoryConfig(),
		Channels: channel.DefaultChannelsConfig(),
	}
}

// WorkspacePath returns the expanded absolute path to the agent workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agent.Workspace
	if ws == "" {
		ws = "~/.lily/workspace"
	}
	return expandHome(ws)
}

// PersonaPath returns the agent file location.
func (c *Config) PersonaPath() string {
	if c.Agent.PersonaPath != "" {
		return expandHome(c.Agent.PersonaPath)
	}
	return filepath.Join(DataDir(), "agent.yaml")
}

// DatabasePath returns the SQLite file holding the chat log and memories.
func (c *Config) DatabasePath() string {
	if c.Memory.DBPath != "" {
		return expandHome(c.Memory.DBPath)
	}
	return filepath.Join(DataDir(), "lily.db")
}

// TranscriptPath returns the JSONL transcript file for day.
func (c *Config) TranscriptPath(day time.Time) string {
	if c.Channels.Transcript.Path != "" {
		return expandHome(c.Channels.Transcript.Path)
	}
	return filepath.Join(DataDir(), "transcripts", day.Format("2006-01-02")+".jsonl")
}

// CronStorePath returns the reminder job file.
func (c *Config) CronStorePath() string {
	if c.Channels.Cron.StorePath != "" {
		return expandHome(c.Channels.Cron.StorePath)
	}
	return filepath.Join(DataDir(), "cron", "jobs.json")
}

// TickInterval is the pause between loop ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Agent.TickIntervalMs) * time.Millisecond
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
