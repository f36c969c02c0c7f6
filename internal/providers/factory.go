package providers

import "github.com/projectlily/lily/internal/schema"

// Params are the raw values needed to construct any schema.LanguageModel.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	ProviderName string // registry name, e.g. "llamacpp", "vllm"
	APIBase      string
	APIKey       string
	Model        string
	ExtraHeaders map[string]string
}

// New creates the client for p.
//
//   - llama.cpp wire → LlamaCpp (native /completion with grammar and tokenizer)
//   - otherwise      → OpenAICompletions
func New(p Params) schema.LanguageModel {
	spec := Resolve(p.ProviderName, p.APIBase)
	base := p.APIBase
	if base == "" {
		base = spec.DefaultAPIBase
	}
	if spec.Wire == WireLlamaCpp {
		return NewLlamaCpp(base)
	}
	return NewOpenAICompletions(p.APIKey, base, p.Model, p.ExtraHeaders)
}
