package providers

import "strings"

// Wire is the HTTP dialect a backend speaks.
type Wire string

const (
	WireLlamaCpp Wire = "llamacpp"
	WireOpenAI   Wire = "openai"
)

// ProviderSpec describes one known completion backend.
type ProviderSpec struct {
	Name                string // config value, e.g. "vllm"
	DisplayName         string // shown in `lily status`
	Wire                Wire
	DefaultAPIBase      string
	DetectByBaseKeyword string // match substring in api_base URL
	NeedsAPIKey         bool
	SupportsGrammar     bool
}

// Label returns the display name, defaulting to Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Order = detection priority.
var PROVIDERS = []ProviderSpec{
	{
		Name:            "llamacpp",
		DisplayName:     "llama.cpp",
		Wire:            WireLlamaCpp,
		DefaultAPIBase:  DefaultLlamaCppURL,
		SupportsGrammar: true,
	},
	{
		Name:                "vllm",
		DisplayName:         "vLLM",
		Wire:                WireOpenAI,
		DefaultAPIBase:      "http://localhost:8000/v1",
		DetectByBaseKeyword: ":8000",
		SupportsGrammar:     true,
	},
	{
		Name:                "lmstudio",
		DisplayName:         "LM Studio",
		Wire:                WireOpenAI,
		DefaultAPIBase:      "http://localhost:1234/v1",
		DetectByBaseKeyword: ":1234",
	},
	{
		Name:                "ollama",
		DisplayName:         "Ollama",
		Wire:                WireOpenAI,
		DefaultAPIBase:      "http://localhost:11434/v1",
		DetectByBaseKeyword: ":11434",
	},
	{
		Name:                "openrouter",
		DisplayName:         "OpenRouter",
		Wire:                WireOpenAI,
		DefaultAPIBase:      "https://openrouter.ai/api/v1",
		DetectByBaseKeyword: "openrouter",
		NeedsAPIKey:         true,
	},
	{
		Name:                "openai",
		DisplayName:         "OpenAI",
		Wire:                WireOpenAI,
		DefaultAPIBase:      "https://api.openai.com/v1",
		DetectByBaseKeyword: "api.openai.com",
		NeedsAPIKey:         true,
	},
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// FindByBase detects the backend from its URL.
func FindByBase(apiBase string) *ProviderSpec {
	lower := strings.ToLower(apiBase)
	for i := range PROVIDERS {
		kw := PROVIDERS[i].DetectByBaseKeyword
		if kw != "" && strings.Contains(lower, kw) {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// Resolve picks the ProviderSpec for a configured name and base URL. An explicit name
// wins; otherwise the URL decides; llama.cpp is the fallback.
func Resolve(name, apiBase string) ProviderSpec {
	if s := FindByName(name); s != nil {
		return *s
	}
	if name == "" && apiBase != "" {
		if s := FindByBase(apiBase); s != nil {
			return *s
		}
	}
	return PROVIDERS[0]
}
