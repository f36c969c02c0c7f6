package channel

// ChannelsConfig enables and configures each integration.
type ChannelsConfig struct {
	CLI        CLIConfig        `json:"cli"`
	Discord    DiscordConfig    `json:"discord"`
	Slack      SlackConfig      `json:"slack"`
	Telegram   TelegramConfig   `json:"telegram"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Transcript TranscriptConfig `json:"transcript"`
	Heartbeat  HeartbeatConfig  `json:"heartbeat"`
	Cron       CronConfig       `json:"cron"`
}

func DefaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{
		CLI:        DefaultCLIConfig(),
		Discord:    DefaultDiscordConfig(),
		Slack:      DefaultSlackConfig(),
		Telegram:   DefaultTelegramConfig(),
		WhatsApp:   DefaultWhatsAppConfig(),
		Transcript: DefaultTranscriptConfig(),
		Heartbeat:  DefaultHeartbeatConfig(),
		Cron:       DefaultCronConfig(),
	}
}

// Enabled lists the names of the enabled integrations.
func (c ChannelsConfig) Enabled() []string {
	var names []string
	for _, e := range []struct {
		name string
		on   bool
	}{
		{"cli", c.CLI.Enabled},
		{"discord", c.Discord.Enabled},
		{"slack", c.Slack.Enabled},
		{"telegram", c.Telegram.Enabled},
		{"whatsapp", c.WhatsApp.Enabled},
		{"transcript", c.Transcript.Enabled},
		{"heartbeat", c.Heartbeat.Enabled},
		{"cron", c.Cron.Enabled},
	} {
		if e.on {
			names = append(names, e.name)
		}
	}
	return names
}
