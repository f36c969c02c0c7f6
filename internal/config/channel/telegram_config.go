package channel

// TelegramConfig configures the Telegram integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token" env:"TELEGRAM_TOKEN"`
	AllowFrom []string `json:"allowFrom"`
	LogAll    bool     `json:"logAll"`

	MessagesPerSecond float64 `json:"messagesPerSecond"`
}

func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}, MessagesPerSecond: 1}
}
