package channel

// CronConfig configures the reminder scheduler.
type CronConfig struct {
	Enabled bool `json:"enabled"`
	// StorePath defaults to <data dir>/cron/jobs.json when empty.
	StorePath string `json:"storePath,omitempty"`
}

func DefaultCronConfig() CronConfig {
	return CronConfig{Enabled: true}
}
