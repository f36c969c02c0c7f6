package provider

// Known provider names. Any other name is resolved from APIBase.
const (
	ProviderLlamaCpp   = "llamacpp"
	ProviderVLLM       = "vllm"
	ProviderLMStudio   = "lmstudio"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// ProviderConfig points the agent at its language model server.
type ProviderConfig struct {
	Name         string            `json:"name" env:"LILY_LLM_PROVIDER"`
	APIBase      string            `json:"apiBase" env:"LILY_LLM_URL"`
	APIKey       string            `json:"apiKey" env:"LILY_LLM_API_KEY"`
	Model        string            `json:"model,omitempty" env:"LILY_LLM_MODEL"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
	// ValidateOnStart checks the server before the loop starts.
	ValidateOnStart bool `json:"validateOnStart"`
}

func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Name:            ProviderLlamaCpp,
		APIBase:         "http://localhost:8080",
		ValidateOnStart: true,
	}
}
