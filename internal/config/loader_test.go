package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Provider.APIBase != def.Provider.APIBase {
		t.Errorf("expected default apiBase %q, got %q", def.Provider.APIBase, cfg.Provider.APIBase)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"provider": map[string]any{
			"name":    "vllm",
			"apiBase": "http://gpu-box:8000",
		},
		"agent": map[string]any{
			"completion": map[string]any{"maxTokens": 64},
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.Name != "vllm" {
		t.Errorf("expected provider %q, got %q", "vllm", cfg.Provider.Name)
	}
	if cfg.Provider.APIBase != "http://gpu-box:8000" {
		t.Errorf("expected apiBase %q, got %q", "http://gpu-box:8000", cfg.Provider.APIBase)
	}
	if cfg.Agent.Completion.MaxTokens != 64 {
		t.Errorf("expected maxTokens 64, got %d", cfg.Agent.Completion.MaxTokens)
	}
}

func TestLoad_Comments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  // local llama.cpp
  "provider": {"apiBase": "http://127.0.0.1:9090",},
  /* the console is always handy */
  "channels": {"cli": {"enabled": true}},
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.APIBase != "http://127.0.0.1:9090" {
		t.Errorf("apiBase = %q", cfg.Provider.APIBase)
	}
	if !cfg.Channels.CLI.Enabled {
		t.Error("expected cli enabled")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LILY_LLM_URL", "http://env-host:8081")
	t.Setenv("LILY_DB_PATH", "/tmp/lily-env.db")
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_CHANNEL", "1234567890")

	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"provider": map[string]any{"apiBase": "http://file-host:8080"},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.APIBase != "http://env-host:8081" {
		t.Errorf("environment should win over the file, got %q", cfg.Provider.APIBase)
	}
	if cfg.DatabasePath() != "/tmp/lily-env.db" {
		t.Errorf("db path = %q", cfg.DatabasePath())
	}
	if cfg.Channels.Discord.Token != "tok" || cfg.Channels.Discord.ChannelID != "1234567890" {
		t.Errorf("discord = %+v", cfg.Channels.Discord)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := DefaultConfig()
	original.Provider.Model = "mistral-7b"
	original.Agent.Completion.MaxTokens = 96

	if err := Save(&original, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider.Model != original.Provider.Model {
		t.Errorf("model mismatch: got %q, want %q", loaded.Provider.Model, original.Provider.Model)
	}
	if loaded.Agent.Completion.MaxTokens != original.Agent.Completion.MaxTokens {
		t.Errorf("maxTokens mismatch: got %d, want %d", loaded.Agent.Completion.MaxTokens, original.Agent.Completion.MaxTokens)
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"agent": map[string]any{
			"completion": map[string]any{"temperature": 0.2},
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Agent.Completion.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Agent.Completion.Temperature)
	}
	// Unset fields should retain their defaults.
	if cfg.Agent.Completion.ContextLength != def.Agent.Completion.ContextLength {
		t.Errorf("expected default contextLength %d, got %d", def.Agent.Completion.ContextLength, cfg.Agent.Completion.ContextLength)
	}
	if cfg.Agent.Completion.AssistantMessagePrefix != def.Agent.Completion.AssistantMessagePrefix {
		t.Errorf("expected default assistant prefix, got %q", cfg.Agent.Completion.AssistantMessagePrefix)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing url", func(c *Config) { c.Provider.APIBase = "" }, "provider.apiBase is required"},
		{"relative url", func(c *Config) { c.Provider.APIBase = "localhost" }, "not an absolute URL"},
		{"context too small", func(c *Config) { c.Agent.Completion.ContextLength = 128 }, "must exceed maxTokens"},
		{"discord without token", func(c *Config) { c.Channels.Discord.Enabled = true }, "channels.discord.token"},
		{"discord bad channel", func(c *Config) {
			c.Channels.Discord.Enabled = true
			c.Channels.Discord.Token = "t"
			c.Channels.Discord.ChannelID = "general"
		}, "not a numeric id"},
		{"slack half configured", func(c *Config) {
			c.Channels.Slack.Enabled = true
			c.Channels.Slack.BotToken = "xoxb"
		}, "botToken and appToken"},
		{"unknown embedder", func(c *Config) { c.Memory.Recall.Embedder = "word2vec" }, "not one of ollama, openai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestPaths_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.DatabasePath(); filepath.Base(got) != "lily.db" {
		t.Errorf("db path = %q", got)
	}
	if got := cfg.PersonaPath(); filepath.Base(got) != "agent.yaml" {
		t.Errorf("persona path = %q", got)
	}
	if got := cfg.CronStorePath(); !strings.HasSuffix(got, filepath.Join("cron", "jobs.json")) {
		t.Errorf("cron path = %q", got)
	}
}
