package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectlily/lily/internal/shared/cmdutils"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Inspect chat integrations",
}

func init() {
	channelsCmd.AddCommand(channelsStatusCmd)
}

var channelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show integration status",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ch := cfg.Channels

		type row struct{ name, enabled, detail string }
		rows := []row{
			{"Console", cmdutils.YesNo(ch.CLI.Enabled), "user " + ch.CLI.Username},
			{
				"Discord",
				cmdutils.YesNo(ch.Discord.Enabled),
				func() string {
					if ch.Discord.ChannelID != "" {
						return cmdutils.TokenHint(ch.Discord.Token) + " #" + ch.Discord.ChannelID
					}
					return cmdutils.TokenHint(ch.Discord.Token)
				}(),
			},
			{
				"Slack",
				cmdutils.YesNo(ch.Slack.Enabled),
				func() string {
					if ch.Slack.AppToken != "" && ch.Slack.BotToken != "" {
						return "socket"
					}
					return "(not configured)"
				}(),
			},
			{"Telegram", cmdutils.YesNo(ch.Telegram.Enabled), cmdutils.TokenHint(ch.Telegram.Token)},
			{"WhatsApp", cmdutils.YesNo(ch.WhatsApp.Enabled), ch.WhatsApp.BridgeURL},
			{"Transcript", cmdutils.YesNo(ch.Transcript.Enabled), cfg.TranscriptPath(time.Now())},
			{
				"Heartbeat",
				cmdutils.YesNo(ch.Heartbeat.Enabled),
				"every " + (time.Duration(ch.Heartbeat.IntervalSeconds) * time.Second).String(),
			},
			{"Reminders", cmdutils.YesNo(ch.Cron.Enabled), cfg.CronStorePath()},
		}

		fmt.Printf("%-12s %-8s %s\n", "Channel", "Enabled", "Configuration")
		fmt.Println(cmdutils.Rule(60))
		for _, r := range rows {
			fmt.Printf("%-12s %-8s %s\n", r.name, r.enabled, r.detail)
		}
		if n := len(ch.Discord.AllowFrom) + len(ch.Telegram.AllowFrom) + len(ch.WhatsApp.AllowFrom); n > 0 {
			fmt.Printf("\n%d allow-list entries configured\n", n)
		}
		return nil
	},
}
