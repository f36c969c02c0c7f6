package memory

// MemoryConfig locates the database and tunes recall.
type MemoryConfig struct {
	// DBPath defaults to <data dir>/lily.db when empty.
	DBPath string `json:"dbPath,omitempty" env:"LILY_DB_PATH"`
	// StartupBudget bounds the tokens of history loaded at start.
	StartupBudget int          `json:"startupBudget"`
	Recall        RecallConfig `json:"recall"`
}

// RecallConfig configures the embedding backend behind save_memory and
// recall_memory.
type RecallConfig struct {
	Enabled bool `json:"enabled"`
	// Embedder is "ollama" or "openai".
	Embedder    string  `json:"embedder"`
	APIBase     string  `json:"apiBase" env:"LILY_EMBED_URL"`
	APIKey      string  `json:"apiKey,omitempty" env:"LILY_EMBED_API_KEY"`
	Model       string  `json:"model"`
	Dimensions  int     `json:"dimensions"`
	K           int     `json:"k"`
	MaxDistance float64 `json:"maxDistance"`
}

const (
	EmbedderOllama = "ollama"
	EmbedderOpenAI = "openai"
)

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		StartupBudget: 4096,
		Recall: RecallConfig{
			Enabled:    true,
			Embedder:   EmbedderOllama,
			APIBase:    "http://localhost:11434",
			Model:      "all-minilm",
			Dimensions: 384,
			K:          3,
		},
	}
}
