package providers

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/projectlily/lily/internal/schema"
)

// DefaultLlamaCppURL is where llama.cpp's server listens out of the box.
const DefaultLlamaCppURL = "http://localhost:8080"

// LlamaCpp talks to a llama.cpp HTTP server.
type LlamaCpp struct {
	baseURL    string
	httpClient *http.Client
}

func NewLlamaCpp(baseURL string) *LlamaCpp {
	if baseURL == "" {
		baseURL = DefaultLlamaCppURL
	}
	return &LlamaCpp{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (l *LlamaCpp) BaseURL() string { return l.baseURL }

type llamaCompletionRequest struct {
	Prompt           string       `json:"prompt"`
	Temperature      float64      `json:"temperature"`
	TopK             int          `json:"top_k"`
	TopP             float64      `json:"top_p"`
	MinP             float64      `json:"min_p"`
	NPredict         int          `json:"n_predict"`
	Stop             []string     `json:"stop"`
	RepeatPenalty    float64      `json:"repeat_penalty"`
	RepeatLastN      int          `json:"repeat_last_n"`
	PresencePenalty  float64      `json:"presence_penalty"`
	FrequencyPenalty float64      `json:"frequency_penalty"`
	LogitBias        [][2]float64 `json:"logit_bias"`
	Seed             *int64       `json:"seed,omitempty"`
	Grammar          string       `json:"grammar,omitempty"`
	CachePrompt      bool         `json:"cache_prompt"`
	Stream           bool         `json:"stream"`
}

type llamaCompletionResponse struct {
	Content         string `json:"content"`
	TokensEvaluated int    `json:"tokens_evaluated"`
	TokensPredicted int    `json:"tokens_predicted"`
}

// Complete implements schema.LanguageModel.
func (l *LlamaCpp) Complete(ctx context.Context, prompt string, s schema.GenerationSettings) (schema.Completion, error) {
	body := llamaCompletionRequest{
		Prompt:           prompt,
		Temperature:      s.Temperature,
		TopK:             s.TopK,
		TopP:             s.TopP,
		MinP:             s.MinP,
		NPredict:         s.MaxTokens,
		Stop:             s.Stop,
		RepeatPenalty:    s.RepeatPenalty,
		RepeatLastN:      s.RepeatLastN,
		PresencePenalty:  s.PresencePenalty,
		FrequencyPenalty: s.FrequencyPenalty,
		LogitBias:        logitBiasPairs(s.LogitBias),
		Seed:             s.Seed,
		Grammar:          s.Grammar,
		CachePrompt:      true,
	}
	if body.Stop == nil {
		body.Stop = []string{}
	}

	start := time.Now()
	var out llamaCompletionResponse
	if err := l.post(ctx, "/completion", body, &out); err != nil {
		return schema.Completion{}, err
	}
	elapsed := time.Since(start)

	slog.Debug("llama.cpp completion",
		"prompt_tokens", out.TokensEvaluated,
		"generated_tokens", out.TokensPredicted,
		"duration", elapsed)

	return schema.Completion{
		Text:            out.Content,
		PromptTokens:    out.TokensEvaluated,
		GeneratedTokens: out.TokensPredicted,
		Duration:        elapsed,
	}, nil
}

// Tokenize implements schema.LanguageModel.
func (l *LlamaCpp) Tokenize(ctx context.Context, text string) ([]int, error) {
	var out struct {
		Tokens []int `json:"tokens"`
	}
	if err := l.post(ctx, "/tokenize", map[string]string{"content": text}, &out); err != nil {
		return nil, err
	}
	if out.Tokens == nil {
		return []int{}, nil
	}
	return out.Tokens, nil
}

// Validate checks that the server is up and has at least one model.
func (l *LlamaCpp) Validate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	raw, err := l.do(req)
	if err != nil {
		return err
	}

	var models any
	if err := json.Unmarshal(raw, &models); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedResponse, friendlyHTTPError(200, raw))
	}
	if modelListEmpty(models) {
		return ErrEmptyModelList
	}
	return nil
}

func modelListEmpty(v any) bool {
	switch m := v.(type) {
	case []any:
		return len(m) == 0
	case map[string]any:
		if data, ok := m["data"]; ok {
			list, _ := data.([]any)
			return len(list) == 0
		}
		if models, ok := m["models"]; ok {
			list, _ := models.([]any)
			return len(list) == 0
		}
		return len(m) == 0
	default:
		return true
	}
}

func (l *LlamaCpp) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := l.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedResponse, friendlyHTTPError(200, raw))
	}
	return nil
}

func (l *LlamaCpp) do(req *http.Request) ([]byte, error) {
	resp, err := l.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrServerUnreachable, err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, friendlyHTTPError(resp.StatusCode, raw))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedState, resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw))
	}
	return raw, nil
}

func logitBiasPairs(bias map[int]float64) [][2]float64 {
	pairs := make([][2]float64, 0, len(bias))
	for tok, b := range bias {
		pairs = append(pairs, [2]float64{float64(tok), b})
	}
	slices.SortFunc(pairs, func(a, b [2]float64) int { return cmp.Compare(a[0], b[0]) })
	return pairs
}
