package agent

import "github.com/projectlily/lily/internal/schema"

// AgentConfig holds the loop settings that are not part of the persona.
type AgentConfig struct {
	// PersonaPath defaults to <data dir>/agent.yaml when empty.
	PersonaPath string `json:"personaPath,omitempty" env:"LILY_AGENT"`
	// Workspace holds the persisted memory context.
	Workspace      string `json:"workspace"`
	TickIntervalMs int    `json:"tickIntervalMs"`
	// Commands restricts the command set; empty enables every command.
	Commands   []string         `json:"commands,omitempty"`
	Completion CompletionConfig `json:"completion"`
}

func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Workspace:  "~/.lily/workspace",
		Completion: DefaultCompletionConfig(),
	}
}

// CompletionConfig holds sampling parameters and the role framing of the
// prompt. A persona file may override any of them.
type CompletionConfig struct {
	Model            string          `json:"model,omitempty" yaml:"model,omitempty"`
	ContextLength    int             `json:"contextLength" yaml:"context_length"`
	Temperature      float64         `json:"temperature" yaml:"temperature"`
	TopP             float64         `json:"topP" yaml:"top_p"`
	MinP             float64         `json:"minP" yaml:"min_p"`
	TopK             int             `json:"topK" yaml:"top_k"`
	Seed             *int64          `json:"seed,omitempty" yaml:"seed,omitempty"`
	StopTokens       []string        `json:"stopTokens" yaml:"stop_tokens"`
	MaxTokens        int             `json:"maxTokens" yaml:"max_tokens"`
	RepeatPenalty    float64         `json:"repeatPenalty" yaml:"repeat_penalty"`
	RepeatLastN      int             `json:"repeatLastN" yaml:"repeat_last_n"`
	FrequencyPenalty float64         `json:"frequencyPenalty" yaml:"frequency_penalty"`
	PresencePenalty  float64         `json:"presencePenalty" yaml:"presence_penalty"`
	LogitBias        map[int]float64 `json:"logitBias,omitempty" yaml:"logit_bias,omitempty"`

	SystemMessagePrefix    string `json:"systemMessagePrefix" yaml:"system_message_prefix"`
	SystemMessageSuffix    string `json:"systemMessageSuffix" yaml:"system_message_suffix"`
	UserMessagePrefix      string `json:"userMessagePrefix" yaml:"user_message_prefix"`
	UserMessageSuffix      string `json:"userMessageSuffix" yaml:"user_message_suffix"`
	AssistantMessagePrefix string `json:"assistantMessagePrefix" yaml:"assistant_message_prefix"`
	AssistantMessageSuffix string `json:"assistantMessageSuffix" yaml:"assistant_message_suffix"`
}

func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		ContextLength:          2048,
		Temperature:            0.7,
		TopP:                   1.0,
		MinP:                   0.05,
		TopK:                   40,
		StopTokens:             []string{"\n"},
		MaxTokens:              128,
		RepeatPenalty:          1.1,
		RepeatLastN:            64,
		SystemMessagePrefix:    "### system\n",
		SystemMessageSuffix:    "\n",
		UserMessagePrefix:      "### user\n",
		UserMessageSuffix:      "\n",
		AssistantMessagePrefix: "### assistant\n",
		AssistantMessageSuffix: "\n",
	}
}

// Generation converts c into per-request sampling settings.
func (c CompletionConfig) Generation() schema.GenerationSettings {
	var bias map[int]float64
	if len(c.LogitBias) > 0 {
		bias = make(map[int]float64, len(c.LogitBias))
		for k, v := range c.LogitBias {
			bias[k] = v
		}
	}
	return schema.GenerationSettings{
		Model:            c.Model,
		Temperature:      c.Temperature,
		TopP:             c.TopP,
		MinP:             c.MinP,
		TopK:             c.TopK,
		Seed:             c.Seed,
		Stop:             append([]string(nil), c.StopTokens...),
		MaxTokens:        c.MaxTokens,
		RepeatPenalty:    c.RepeatPenalty,
		RepeatLastN:      c.RepeatLastN,
		FrequencyPenalty: c.FrequencyPenalty,
		PresencePenalty:  c.PresencePenalty,
		LogitBias:        bias,
	}
}
