package channel

// DiscordConfig configures the Discord integration.
type DiscordConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token" env:"DISCORD_TOKEN"`
	ChannelID string   `json:"channelId" env:"DISCORD_CHANNEL"`
	AllowFrom []string `json:"allowFrom"`
	// LogAll relays every assistant thought instead of only what is said.
	LogAll bool `json:"logAll"`
	// MessagesPerSecond throttles outbound sends.
	MessagesPerSecond float64 `json:"messagesPerSecond"`
}

func DefaultDiscordConfig() DiscordConfig {
	return DiscordConfig{AllowFrom: []string{}, MessagesPerSecond: 1}
}
