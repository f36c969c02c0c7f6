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

func llamaServer(t *testing.T, h http.HandlerFunc) *LlamaCpp {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewLlamaCpp(srv.URL + "/")
}

func TestLlamaCpp_CompleteRequestBody(t *testing.T) {
	var got map[string]any
	l := llamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completion" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":"Hello","tokens_evaluated":12,"tokens_predicted":2}`))
	})

	seed := int64(7)
	settings := schema.GenerationSettings{
		Temperature:   0.7,
		TopP:          1,
		MinP:          0.05,
		TopK:          40,
		Stop:          []string{"\n"},
		MaxTokens:     128,
		RepeatPenalty: 1.1,
		RepeatLastN:   64,
		LogitBias:     map[int]float64{42: -1, 7: 2.5},
		Seed:          &seed,
		Grammar:       schema.Say.Grammar(),
	}
	c, err := l.Complete(context.Background(), "PROMPT", settings)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Text != "Hello" || c.PromptTokens != 12 || c.GeneratedTokens != 2 {
		t.Errorf("unexpected completion %+v", c)
	}

	checks := map[string]any{
		"prompt":         "PROMPT",
		"temperature":    0.7,
		"top_k":          float64(40),
		"min_p":          0.05,
		"n_predict":      float64(128),
		"repeat_penalty": 1.1,
		"repeat_last_n":  float64(64),
		"seed":           float64(7),
		"grammar":        schema.Say.Grammar(),
		"cache_prompt":   true,
		"stream":         false,
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("field %s = %v, want %v", k, got[k], want)
		}
	}
	bias, _ := json.Marshal(got["logit_bias"])
	if string(bias) != "[[7,2.5],[42,-1]]" {
		t.Errorf("logit_bias = %s", bias)
	}
	stop, _ := json.Marshal(got["stop"])
	if string(stop) != `["\n"]` {
		t.Errorf("stop = %s", stop)
	}
}

func TestLlamaCpp_Tokenize(t *testing.T) {
	l := llamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/tokenize" || body["content"] != "hi there" {
			t.Errorf("unexpected tokenize request %s %v", r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`{"tokens":[1,2,3]}`))
	})

	toks, err := l.Tokenize(context.Background(), "hi there")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 3 {
		t.Errorf("expected 3 tokens, got %v", toks)
	}
}

func TestLlamaCpp_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"loading", http.StatusServiceUnavailable, `{"error":"Loading model"}`, ErrModelNotLoaded},
		{"server error", http.StatusInternalServerError, `oops`, ErrUnexpectedState},
		{"malformed", http.StatusOK, `{not json`, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := llamaServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := l.Complete(context.Background(), "p", schema.GenerationSettings{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLlamaCpp_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewLlamaCpp(url).Validate(context.Background())
	if !errors.Is(err, ErrServerUnreachable) {
		t.Errorf("expected ErrServerUnreachable, got %v", err)
	}
}

func TestLlamaCpp_Validate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"models", `{"object":"list","data":[{"id":"model.gguf"}]}`, nil},
		{"empty data", `{"object":"list","data":[]}`, ErrEmptyModelList},
		{"empty object", `{}`, ErrEmptyModelList},
		{"empty array", `[]`, ErrEmptyModelList},
		{"garbage", `<html>`, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := llamaServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			err := l.Validate(context.Background())
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLlamaCpp_ContextCancelled(t *testing.T) {
	l := llamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Complete(ctx, "p", schema.GenerationSettings{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
