package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/httpclient"
	"github.com/threadscope/threadscope/internal/metrics"
)

// Default sampling options for analysis prompts.
const (
	defaultTemperature = 0.1
	defaultTopP        = 0.9
	defaultTopK        = 40
)

// Client wraps low-level HTTP communication with a local Ollama server.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
}

// NewClient constructs a new Ollama HTTP client instance.
// No rate manager is attached: the model server is local and the analysis
// engine paces requests through its own worker pool and delay.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	exec := httpclient.New(logger, nil, httpClient, 2, "ollama", func(status int, body []byte) error {
		var errResp ErrorResponse
		_ = json.Unmarshal(body, &errResp)

		logger.Warn("ollama.client_error",
			zap.Int("status", status),
			zap.String("error", errResp.Error))

		errMsg := errResp.Error
		if errMsg == "" {
			errMsg = string(body)
		}
		return fmt.Errorf("ollama returned %d: %s", status, errMsg)
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ListModels returns the models installed on the server.
// GET /api/tags
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	var resp TagsResponse
	if err := c.exec.DoJSON(ctx, req, "", &resp); err != nil {
		return nil, fmt.Errorf("list ollama models: %w", err)
	}
	return resp.Models, nil
}

// CheckModel verifies the server is reachable and the model is installed.
// The error names the available models so the operator knows what to pull.
func (c *Client) CheckModel(ctx context.Context, model string) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", c.baseURL, err)
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		if m.Name == model {
			c.logger.Info("ollama.model_available", zap.String("model", model))
			return nil
		}
		names = append(names, m.Name)
	}
	return fmt.Errorf("model %q not installed (available: %s); run: ollama pull %s",
		model, strings.Join(names, ", "), model)
}

// Generate runs a non-streaming completion and returns the trimmed response text.
// POST /api/generate
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	payload := GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: GenerateOptions{
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
			TopK:        defaultTopK,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	var resp GenerateResponse
	if err := c.exec.DoJSON(ctx, req, "", &resp); err != nil {
		metrics.IncError("ollama", "generate_failed")
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	metrics.ObserveDuration(metrics.OllamaRequestDuration, start, model)

	return strings.TrimSpace(resp.Response), nil
}
