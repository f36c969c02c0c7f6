package bus

// ChannelType names an integration's channel.
type ChannelType string

const (
	ChannelCLI        ChannelType = "cli"
	ChannelDiscord    ChannelType = "discord"
	ChannelSlack      ChannelType = "slack"
	ChannelTelegram   ChannelType = "telegram"
	ChannelWhatsApp   ChannelType = "whatsapp"
	ChannelTranscript ChannelType = "transcript"
	ChannelCron       ChannelType = "cron"
	ChannelHeartbeat  ChannelType = "heartbeat"
)

// ToAgent is the name of the pipe carrying messages into the agent.
func ToAgent(name string) string { return name + "_to_agent" }

// ToExternal is the name of the pipe carrying messages out of the agent.
func ToExternal(name string) string { return name + "_to_external" }
