package agent

import (
	"strings"

	"github.com/projectlily/lily/internal/schema"
)

// Format is the role framing wrapped around every message in a prompt.
type Format struct {
	SystemPrefix    string `json:"systemPrefix" yaml:"system_prefix"`
	SystemSuffix    string `json:"systemSuffix" yaml:"system_suffix"`
	UserPrefix      string `json:"userPrefix" yaml:"user_prefix"`
	UserSuffix      string `json:"userSuffix" yaml:"user_suffix"`
	AssistantPrefix string `json:"assistantPrefix" yaml:"assistant_prefix"`
	AssistantSuffix string `json:"assistantSuffix" yaml:"assistant_suffix"`
}

func DefaultFormat() Format {
	return Format{
		SystemPrefix:    "### system\n",
		SystemSuffix:    "\n",
		UserPrefix:      "### user\n",
		UserSuffix:      "\n",
		AssistantPrefix: "### assistant\n",
		AssistantSuffix: "\n",
	}
}

// Wrap renders msg with its role's prefix and suffix.
func (f Format) Wrap(msg schema.Message) string {
	prefix, suffix := f.frame(msg.Role())
	return prefix + msg.Content() + suffix
}

// PromptSuffix opens an assistant turn for action; the model completes it.
func (f Format) PromptSuffix(action schema.Action) string {
	return f.AssistantPrefix + action.Prompt()
}

func (f Format) frame(r schema.Role) (string, string) {
	switch r {
	case schema.RoleUser:
		return f.UserPrefix, f.UserSuffix
	case schema.RoleAssistant:
		return f.AssistantPrefix, f.AssistantSuffix
	default:
		return f.SystemPrefix, f.SystemSuffix
	}
}

func (f Format) render(b *strings.Builder, msgs schema.Messages) {
	for _, m := range msgs {
		b.WriteString(f.Wrap(m))
	}
}
