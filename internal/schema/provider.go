package schema

import (
	"context"
	"time"
)

// GenerationSettings are the sampling parameters for one completion request.
type GenerationSettings struct {
	Model            string
	Temperature      float64
	TopP             float64
	MinP             float64
	TopK             int
	Seed             *int64
	Stop             []string
	MaxTokens        int
	RepeatPenalty    float64
	RepeatLastN      int
	FrequencyPenalty float64
	PresencePenalty  float64
	LogitBias        map[int]float64
	// Grammar is a GBNF rule set constraining the output. Empty means unconstrained.
	Grammar string
}

// Completion is the normalised result of a completion request.
type Completion struct {
	Text            string
	PromptTokens    int
	GeneratedTokens int
	Duration        time.Duration
}

// LanguageModel is the contract every completion backend satisfies.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string, settings GenerationSettings) (Completion, error)
	Tokenize(ctx context.Context, text string) ([]int, error)
}
