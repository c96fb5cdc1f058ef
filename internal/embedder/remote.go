package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// embedDeadline is the per-call timeout imposed on embedder calls:
// 30 seconds, abortable.
const embedDeadline = 30 * time.Second

// Remote calls an external embedding service over HTTP: POST
// {input, model, dimensions} -> {data:[{embedding}]}.
type Remote struct {
	endpoint string
	apiKey   string
	model    string
	dims     int
	client   *http.Client
}

// NewRemote constructs a Remote embedder. endpoint is the full URL to
// POST to; apiKey is sent as a bearer token when non-empty.
func NewRemote(endpoint, apiKey, model string, dims int) *Remote {
	return &Remote{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		dims:     dims,
		client:   &http.Client{Timeout: embedDeadline},
	}
}

func (r *Remote) Dims() int    { return r.dims }
func (r *Remote) Name() string { return "remote-" + r.model }

func (r *Remote) EmbedText(ctx context.Context, s string) ([]float32, error) {
	return r.embed(ctx, s)
}

func (r *Remote) EmbedDiff(ctx context.Context, s string) ([]float32, error) {
	return r.embed(ctx, PrepareDiff(s, maxDiffChars))
}

type remoteRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

type remoteResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (r *Remote) embed(ctx context.Context, s string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, embedDeadline)
	defer cancel()

	body, err := json.Marshal(remoteRequest{Input: s, Model: r.model, Dimensions: r.dims})
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedder: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedder: remote returned %d: %s", resp.StatusCode, respBody)
	}

	var parsed remoteResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedder: unmarshal response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder: remote returned empty embedding")
	}

	return parsed.Data[0].Embedding, nil
}
