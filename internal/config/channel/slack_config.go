package channel

// SlackDMConfig controls direct-message behaviour in Slack.
type SlackDMConfig struct {
	Enabled   bool     `json:"enabled"`
	Policy    string   `json:"policy"` // "open" or "allowlist"
	AllowFrom []string `json:"allowFrom"`
}

func DefaultSlackDMConfig() SlackDMConfig {
	return SlackDMConfig{Enabled: true, Policy: "open", AllowFrom: []string{}}
}

// SlackConfig configures the Slack integration (Socket Mode).
type SlackConfig struct {
	Enabled        bool          `json:"enabled"`
	BotToken       string        `json:"botToken" env:"SLACK_BOT_TOKEN"`
	AppToken       string        `json:"appToken" env:"SLACK_APP_TOKEN"`
	ReactEmoji     string        `json:"reactEmoji"`
	GroupPolicy    string        `json:"groupPolicy"` // "open", "mention" or "allowlist"
	GroupAllowFrom []string      `json:"groupAllowFrom"`
	DM             SlackDMConfig `json:"dm"`
	LogAll         bool          `json:"logAll"`

	MessagesPerSecond float64 `json:"messagesPerSecond"`
}

func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		ReactEmoji:        "eyes",
		GroupPolicy:       "mention",
		GroupAllowFrom:    []string{},
		DM:                DefaultSlackDMConfig(),
		MessagesPerSecond: 1,
	}
}
