package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const anthropicVersion = "2023-06-01"

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RateLimit is the sustained request rate in requests per second; zero
	// disables limiting.
	RateLimit  float64
	MaxRetries int
}

// AnthropicClient implements Client for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:     apiKey,
		BaseURL:    "https://api.anthropic.com/v1",
		Timeout:    10 * time.Minute,
		RateLimit:  2,
		MaxRetries: 3,
	}
}

func NewAnthropicClient(config AnthropicConfig) *AnthropicClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Minute
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	return &AnthropicClient{
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: config.Timeout},
		limiter:     limiter,
		maxRetries:  config.MaxRetries,
		baseBackoff: time.Second,
	}
}

type cacheControl struct {
	Type string `json:"type"`
}

type documentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	Source       *documentSource `json:"source,omitempty"`
	CacheControl *cacheControl   `json:"cache_control,omitempty"`
}

type anthropicMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func buildContent(req *Request) []contentBlock {
	blocks := make([]contentBlock, 0, len(req.Documents)+1)
	for i, doc := range req.Documents {
		mediaType := doc.MediaType
		if mediaType == "" {
			mediaType = "application/pdf"
		}
		block := contentBlock{
			Type: "document",
			Source: &documentSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(doc.Data),
			},
		}
		if i == len(req.Documents)-1 {
			block.CacheControl = &cacheControl{Type: "ephemeral"}
		}
		blocks = append(blocks, block)
	}
	prompt := contentBlock{Type: "text", Text: req.Prompt}
	if req.CachePrompt {
		prompt.CacheControl = &cacheControl{Type: "ephemeral"}
	}
	return append(blocks, prompt)
}

// Generate sends one user turn and returns the concatenated text blocks.
func (c *AnthropicClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: buildContent(req)}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	logCtx := slog.With("model", req.Model, "documents", len(req.Documents))
	backoff := c.baseBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logCtx.Warn("Anthropic request failed, will retry.", "attempt", attempt, "backoff", backoff.String(), "error", lastErr)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, retryAfter, err := c.send(ctx, body)
		if err == nil {
			logCtx.Debug("Anthropic request complete.", "inputTokens", resp.InputTokens, "outputTokens", resp.OutputTokens)
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		var respErr *responseError
		if errors.As(err, &respErr) {
			return nil, respErr.err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if retryAfter > backoff {
			backoff = retryAfter
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *AnthropicClient) send(ctx context.Context, body []byte) (*Response, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed anthropicResponse
	parseErr := json.Unmarshal(raw, &parsed)

	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if parseErr == nil && parsed.Error != nil {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		}
		return nil, retryAfter(httpResp.Header.Get("retry-after")), apiErr
	}
	if parseErr != nil {
		return nil, 0, &responseError{fmt.Errorf("failed to parse response: %w", parseErr)}
	}
	if parsed.Error != nil {
		return nil, 0, &APIError{StatusCode: httpResp.StatusCode, Type: parsed.Error.Type, Message: parsed.Error.Message}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, 0, &responseError{ErrEmptyResponse}
	}

	return &Response{
		Text:         strings.TrimSpace(text.String()),
		InputTokens:  parsed.Usage.InputTokens + parsed.Usage.CacheCreationInputTokens + parsed.Usage.CacheReadInputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		StopReason:   parsed.StopReason,
	}, 0, nil
}

// responseError wraps a failure in a response the API already answered
// with 200. Sending the same request again gives the same answer.
type responseError struct {
	err error
}

func (e *responseError) Error() string { return e.err.Error() }
func (e *responseError) Unwrap() error { return e.err }

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
