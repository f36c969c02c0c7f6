package channel

// TranscriptConfig configures the JSONL transcript sink.
type TranscriptConfig struct {
	Enabled bool `json:"enabled"`
	// Path defaults to <data dir>/transcripts/<date>.jsonl when empty.
	Path string `json:"path,omitempty"`
}

func DefaultTranscriptConfig() TranscriptConfig {
	return TranscriptConfig{}
}
