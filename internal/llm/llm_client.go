// Package llm talks to hosted language models. The pipeline only needs a
// single-turn request carrying PDF documents and a text prompt.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when no provider credentials are configured.
var ErrMissingAPIKey = errors.New("API key not found. Set ANTHROPIC_API_KEY or create anthropic_api_key.txt")

// ErrEmptyResponse is returned when a completion carries no text.
var ErrEmptyResponse = errors.New("no text content in response")

// Client generates one completion.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Document is a file attached to the user turn.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

type Request struct {
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	Documents   []Document
	Prompt      string
	// CachePrompt marks the prompt block as a prompt-cache breakpoint in
	// addition to the last document.
	CachePrompt bool
}

type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("API request failed with status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return retryableStatus(e.StatusCode)
}

func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}
