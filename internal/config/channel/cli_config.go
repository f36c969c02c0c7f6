package channel

// CLIConfig configures the interactive console.
type CLIConfig struct {
	Enabled  bool   `json:"enabled"`
	Username string `json:"username"`
	Prompt   string `json:"prompt"`
	// Verbose prints every assistant thought, not only what is said.
	Verbose     bool   `json:"verbose"`
	HistoryFile string `json:"historyFile,omitempty"`
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{Username: "user", Prompt: "You: "}
}
