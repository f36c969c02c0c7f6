package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPersona_OverlaysCompletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	body := `name: Lily
creator: Ada
persona: Calm and curious.
directive: Keep the conversation going.
llm_options:
  temperature: 0.3
  context_length: 4096
  logit_bias:
    42: -1.5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPersona(path, DefaultCompletionConfig())
	if err != nil {
		t.Fatalf("LoadPersona: %v", err)
	}
	if p.Name != "Lily" || p.Creator != "Ada" {
		t.Errorf("identity = %q/%q", p.Name, p.Creator)
	}
	if p.Completion.Temperature != 0.3 || p.Completion.ContextLength != 4096 {
		t.Errorf("overrides not applied: %+v", p.Completion)
	}
	if p.Completion.MaxTokens != 128 {
		t.Errorf("expected default max_tokens 128, got %d", p.Completion.MaxTokens)
	}
	if p.Completion.UserMessagePrefix != "### user\n" {
		t.Errorf("expected default user prefix, got %q", p.Completion.UserMessagePrefix)
	}

	gen := p.Completion.Generation()
	if gen.LogitBias[42] != -1.5 {
		t.Errorf("logit bias = %v", gen.LogitBias)
	}
	if len(gen.Stop) != 1 || gen.Stop[0] != "\n" {
		t.Errorf("stop = %q", gen.Stop)
	}
}

func TestLoadPersona_Missing(t *testing.T) {
	_, err := LoadPersona(filepath.Join(t.TempDir(), "nope.yaml"), DefaultCompletionConfig())
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestSavePersona_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agent.yaml")
	want := DefaultPersona()
	want.MemoryContext = "Planning a trip to Kyoto."

	if err := SavePersona(&want, path); err != nil {
		t.Fatalf("SavePersona: %v", err)
	}
	got, err := LoadPersona(path, CompletionConfig{})
	if err != nil {
		t.Fatalf("LoadPersona: %v", err)
	}
	if got.Settings() != want.Settings() {
		t.Errorf("settings = %+v, want %+v", got.Settings(), want.Settings())
	}
	if got.Completion.ContextLength != want.Completion.ContextLength {
		t.Errorf("context length = %d", got.Completion.ContextLength)
	}
}

func TestPersonaValidate(t *testing.T) {
	p := DefaultPersona()
	if err := p.Validate(); err != nil {
		t.Fatalf("default persona should validate: %v", err)
	}

	p.Name = " "
	p.Completion.ContextLength = 100
	err := p.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"name is required", "must exceed max_tokens"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
