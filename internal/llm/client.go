// Package llm wraps the local Ollama inference backend behind a narrow
// request/response interface. The engine owns prompt construction and
// response parsing; this package only moves strings with a hard timeout so
// the caller is never left waiting on the model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"deskhand/internal/logging"
)

// Client is the minimal interface the classifier uses to call the backend.
type Client interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// TimeoutError reports that the backend did not answer within the budget.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm backend timed out after %v", e.Timeout)
}

// OllamaClient talks to a local Ollama server's /api/generate endpoint.
type OllamaClient struct {
	host    string
	model   string
	timeout time.Duration
	http    *http.Client
}

// NewOllama builds a client for the given host (e.g. http://localhost:11434).
func NewOllama(host, model string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OllamaClient{
		host:    host,
		model:   model,
		timeout: timeout,
		http:    &http.Client{},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Infer sends the prompt and returns the raw model response. The model is
// asked for JSON output; parsing is the caller's concern.
func (c *OllamaClient) Infer(ctx context.Context, prompt string) (string, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "ollama infer")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			logging.Get(logging.CategoryLLM).Warnf("backend timed out after %v", c.timeout)
			return "", &TimeoutError{Timeout: c.timeout}
		}
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm backend returned %d: %s", resp.StatusCode, data)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Response, nil
}
