// Package embedclient calls the embedding backend over HTTP, one item per
// request. Grounded on the teacher's internal/embedding/client.go, adapted
// to the single-item {"model","input"}/{"embeddings"} wire shape this
// backend uses instead of the teacher's batched OpenAI-style payload.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config is the subset of internal/config.Embedding the client needs.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client embeds single strings against a configured backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client. The transport is wrapped with otelhttp, the same
// instrumentation pattern the teacher applies to its own outbound HTTP
// clients.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed posts a single input string and returns its embedding vector. Any
// failure — transport error, non-2xx status, empty embeddings array,
// malformed body — returns an error carrying a human-readable diagnostic,
// including a preview of the first 200 characters of the response body
// where one was read.
func (c *Client) Embed(ctx context.Context, input string) ([]float32, error) {
	timeout := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("embedclient: encode request: %w", err)
	}

	url := c.cfg.BaseURL + "/api/embed"
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedclient: read response body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedclient: backend returned %s: %s", resp.Status, preview(respBody))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedclient: malformed response body %q: %w", preview(respBody), err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("embedclient: empty embeddings array in response %q", preview(respBody))
	}
	return parsed.Embeddings[0], nil
}

// Ping embeds a single short token to verify the backend is reachable and
// returns a sane response shape, without needing a real document on hand.
// Used by the indexer's doctor preflight.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Embed(ctx, "ping")
	if err != nil {
		return fmt.Errorf("embedclient: ping: %w", err)
	}
	return nil
}

func preview(body []byte) string {
	n := len(body)
	if n > 200 {
		n = 200
	}
	return string(body[:n])
}
