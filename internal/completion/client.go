// internal/completion/client.go
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpclient "rag-engine/internal/common/http"
	"rag-engine/internal/common/logger"
)

// SamplingParams carries the per-request generation knobs. Temperature comes
// from the mode's creativity level; the rest is deployment configuration.
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// Completer turns a composed prompt into a draft answer. Implementations
// make exactly one attempt per call; retry policy belongs to the engine.
type Completer interface {
	Complete(ctx context.Context, prompt string, params SamplingParams) (string, error)
}

// Options configures the HTTP completion backend.
type Options struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// HTTPCompleter is a JSON-over-HTTP adapter for the completion backend. The
// request is rebuilt on every call, so the engine can retry a failed attempt
// without a consumed body.
type HTTPCompleter struct {
	opts   Options
	client *httpclient.Client
	logger logger.Logger
}

func NewHTTPCompleter(opts Options, log logger.Logger) *HTTPCompleter {
	return &HTTPCompleter{
		opts:   opts,
		client: httpclient.NewClient(opts.Timeout),
		logger: log.WithFields(map[string]interface{}{"component": "completion"}),
	}
}

type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Complete posts the prompt and returns the generated text. Transport
// trouble, a non-OK status, a malformed body, and blank output are all
// errors here: a blank answer is a provider fault, not a valid completion.
func (c *HTTPCompleter) Complete(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	maxTokens := c.opts.MaxTokens
	if params.MaxTokens > 0 {
		maxTokens = params.MaxTokens
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.opts.Model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	headers := map[string]string{}
	if c.opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.opts.APIKey
	}

	resp, err := c.client.PostJSON(ctx, c.opts.BaseURL+"/v1/complete", headers, body)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion status %d", resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("completion returned empty text")
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"chars": len(parsed.Text),
	})
	return parsed.Text, nil
}
