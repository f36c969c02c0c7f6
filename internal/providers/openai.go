package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/projectlily/lily/internal/schema"
)

const defaultRequestTimeout = 10 * time.Minute

// OpenAICompletions drives any server exposing the legacy /v1/completions
// endpoint (vLLM, llama.cpp's OpenAI shim, LM Studio, hosted APIs).
type OpenAICompletions struct {
	apiBase      string
	defaultModel string
	client       *openai.Client
}

func NewOpenAICompletions(apiKey, apiBase, defaultModel string, extraHeaders map[string]string) *OpenAICompletions {
	apiBase = strings.TrimRight(apiBase, "/")
	opts := []option.RequestOption{
		option.WithBaseURL(apiBase + "/"),
		option.WithHTTPClient(&http.Client{Timeout: defaultRequestTimeout}),
		option.WithMaxRetries(1),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	for k, v := range extraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompletions{apiBase: apiBase, defaultModel: defaultModel, client: &client}
}

func (p *OpenAICompletions) DefaultModel() string { return p.defaultModel }

// Complete implements schema.LanguageModel. Sampling knobs the OpenAI schema
// lacks (top_k, min_p, repeat_penalty, grammar) are sent as extra JSON fields;
// servers that do not know them ignore them.
func (p *OpenAICompletions) Complete(ctx context.Context, prompt string, s schema.GenerationSettings) (schema.Completion, error) {
	model := s.Model
	if model == "" {
		model = p.defaultModel
	}

	params := openai.CompletionNewParams{
		Model:            openai.CompletionNewParamsModel(model),
		Prompt:           openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens:        openai.Int(int64(s.MaxTokens)),
		Temperature:      openai.Float(s.Temperature),
		TopP:             openai.Float(s.TopP),
		FrequencyPenalty: openai.Float(s.FrequencyPenalty),
		PresencePenalty:  openai.Float(s.PresencePenalty),
	}
	if len(s.Stop) > 0 {
		params.Stop = openai.CompletionNewParamsStopUnion{OfStringArray: s.Stop}
	}
	if s.Seed != nil {
		params.Seed = openai.Int(*s.Seed)
	}
	if len(s.LogitBias) > 0 {
		params.LogitBias = make(map[string]int64, len(s.LogitBias))
		for tok, b := range s.LogitBias {
			params.LogitBias[strconv.Itoa(tok)] = int64(math.Round(b))
		}
	}

	reqOpts := []option.RequestOption{
		option.WithJSONSet("top_k", s.TopK),
		option.WithJSONSet("min_p", s.MinP),
		option.WithJSONSet("repeat_penalty", s.RepeatPenalty),
		option.WithJSONSet("repeat_last_n", s.RepeatLastN),
	}
	if s.Grammar != "" {
		reqOpts = append(reqOpts, option.WithJSONSet("grammar", s.Grammar))
	}

	start := time.Now()
	resp, err := p.client.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return schema.Completion{}, ctxErr
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusServiceUnavailable {
				return schema.Completion{}, fmt.Errorf("%w: %s", ErrModelNotLoaded, strings.TrimSpace(apiErr.Message))
			}
			return schema.Completion{}, fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedState, apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return schema.Completion{}, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return schema.Completion{}, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	elapsed := time.Since(start)

	slog.Debug("completion",
		"model", model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"generated_tokens", resp.Usage.CompletionTokens,
		"duration", elapsed)

	return schema.Completion{
		Text:            resp.Choices[0].Text,
		PromptTokens:    int(resp.Usage.PromptTokens),
		GeneratedTokens: int(resp.Usage.CompletionTokens),
		Duration:        elapsed,
	}, nil
}

// Tokenize approximates the server's tokenizer, which the OpenAI API does not
// expose. The count errs high so budgeted prompts still fit.
func (p *OpenAICompletions) Tokenize(_ context.Context, text string) ([]int, error) {
	return make([]int, ApproxTokenCount(text)), nil
}

// Validate lists the server's models.
func (p *OpenAICompletions) Validate(ctx context.Context) error {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusServiceUnavailable {
				return ErrModelNotLoaded
			}
			return fmt.Errorf("%w: HTTP %d", ErrUnexpectedState, apiErr.StatusCode)
		}
		return fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	if page == nil || len(page.Data) == 0 {
		return ErrEmptyModelList
	}
	return nil
}

// ApproxTokenCount estimates tokens at roughly three characters each.
func ApproxTokenCount(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 2) / 3
}
