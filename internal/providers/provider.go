// Package providers implements schema.LanguageModel against local and hosted
// completion servers.
package providers

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrServerUnreachable means the HTTP request never got a response.
	ErrServerUnreachable = errors.New("failed to access server")
	// ErrEmptyModelList means the server answered but reports no models.
	ErrEmptyModelList = errors.New("model list is empty")
	// ErrMalformedResponse means the body was not the JSON we expected.
	ErrMalformedResponse = errors.New("failed to parse JSON response")
	// ErrModelNotLoaded is reported while the server is still loading weights.
	ErrModelNotLoaded = errors.New("model is not loaded")
	// ErrUnexpectedState covers any other non-2xx answer.
	ErrUnexpectedState = errors.New("server returned an unexpected state")
)

// Validator is implemented by clients that can check their server before the
// agent starts.
type Validator interface {
	Validate(ctx context.Context) error
}

func friendlyHTTPError(code int, body []byte) string {
	if code == 429 {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
