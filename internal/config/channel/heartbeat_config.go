package channel

// HeartbeatConfig configures the periodic clock message.
type HeartbeatConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"intervalSeconds"`
}

func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{IntervalSeconds: 30 * 60}
}
