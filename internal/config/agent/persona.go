package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/projectlily/lily/internal/schema"
)

// Persona is the agent file: who the agent is plus optional completion
// overrides.
type Persona struct {
	Name          string           `yaml:"name"`
	Creator       string           `yaml:"creator"`
	Persona       string           `yaml:"persona"`
	Directive     string           `yaml:"directive"`
	MemoryContext string           `yaml:"memory_context,omitempty"`
	Completion    CompletionConfig `yaml:"llm_options"`
}

func DefaultPersona() Persona {
	return Persona{
		Name:       "Lily",
		Creator:    "the operator",
		Persona:    "You are curious, warm and a little playful. You think before you speak and keep your replies short.",
		Directive:  "Hold friendly conversations with the people who talk to you and remember what matters to them.",
		Completion: DefaultCompletionConfig(),
	}
}

// Settings returns the identity part of the persona.
func (p Persona) Settings() schema.AgentSettings {
	return schema.NewAgentSettings(p.Name, p.Creator, p.Persona, p.Directive, p.MemoryContext)
}

// Validate reports a persona that cannot drive the loop.
func (p Persona) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("persona: name is required"))
	}
	if strings.TrimSpace(p.Directive) == "" {
		errs = append(errs, errors.New("persona: directive is required"))
	}
	if p.Completion.MaxTokens <= 0 {
		errs = append(errs, errors.New("persona: max_tokens must be positive"))
	}
	if p.Completion.ContextLength <= p.Completion.MaxTokens {
		errs = append(errs, fmt.Errorf("persona: context_length %d must exceed max_tokens %d",
			p.Completion.ContextLength, p.Completion.MaxTokens))
	}
	return errors.Join(errs...)
}

// LoadPersona reads the YAML agent file at path. Completion keys missing from
// the file keep the values of base.
func LoadPersona(path string, base CompletionConfig) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent file %s: %w", path, err)
	}
	p := Persona{Completion: base}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse agent file %s: %w", path, err)
	}
	return &p, nil
}

// SavePersona writes p to path as YAML, creating parent directories.
func SavePersona(p *Persona, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create agent dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal agent file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write agent file %s: %w", path, err)
	}
	return nil
}
