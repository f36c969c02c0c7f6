package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/projectlily/lily/internal/schema"
)

func TestOpenAICompletions_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"text_completion","created":1,"model":"local",
			"choices":[{"text":"Hello","index":0,"finish_reason":"stop","logprobs":null}],
			"usage":{"prompt_tokens":9,"completion_tokens":1,"total_tokens":10}}`))
	}))
	defer srv.Close()

	p := NewOpenAICompletions("sk-test", srv.URL+"/v1", "local", nil)
	c, err := p.Complete(context.Background(), "PROMPT", schema.GenerationSettings{
		MaxTokens: 64,
		TopK:      40,
		Stop:      []string{"\n"},
		Grammar:   schema.Command.Grammar(),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Text != "Hello" || c.PromptTokens != 9 || c.GeneratedTokens != 1 {
		t.Errorf("unexpected completion %+v", c)
	}
	if got["prompt"] != "PROMPT" || got["model"] != "local" {
		t.Errorf("unexpected body %v", got)
	}
	if got["grammar"] != schema.Command.Grammar() {
		t.Errorf("grammar not forwarded: %v", got["grammar"])
	}
	if got["top_k"] != float64(40) {
		t.Errorf("top_k not forwarded: %v", got["top_k"])
	}
}

func TestOpenAICompletions_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompletions("", srv.URL+"/v1", "m", nil).Complete(context.Background(), "p", schema.GenerationSettings{})
	if !errors.Is(err, ErrUnexpectedState) {
		t.Errorf("expected ErrUnexpectedState, got %v", err)
	}
}

func TestApproxTokenCount(t *testing.T) {
	tests := map[string]int{"": 0, "a": 1, "abc": 1, "abcd": 2, "héllo wörld": 4}
	for in, want := range tests {
		if got := ApproxTokenCount(in); got != want {
			t.Errorf("ApproxTokenCount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name, base string
		want       string
	}{
		{"", "", "llamacpp"},
		{"vllm", "", "vllm"},
		{"", "http://gpu-box:8000/v1", "vllm"},
		{"", "https://openrouter.ai/api/v1", "openrouter"},
		{"llamacpp", "http://localhost:11434/v1", "llamacpp"},
		{"unknown", "", "llamacpp"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.name, tt.base).Name; got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.name, tt.base, got, tt.want)
		}
	}
}

func TestNew_SelectsClient(t *testing.T) {
	if _, ok := New(Params{}).(*LlamaCpp); !ok {
		t.Error("default provider should be llama.cpp")
	}
	if _, ok := New(Params{ProviderName: "openai", APIKey: "k"}).(*OpenAICompletions); !ok {
		t.Error("openai provider should use the completions client")
	}
}
