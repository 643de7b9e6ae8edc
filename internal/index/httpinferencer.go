package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPInferencer drives the external "inference primitive" (spec §6:
// `run_audio_inference(batch) -> [B,D]`) over HTTP, for deployments where
// the embedding model runs behind a small prediction service rather than
// an in-process graph. Grounded on internal/translate/provider.go's
// http.Client construction (fixed timeout, JSON request/response body) —
// the same "plain HTTP service, JSON in, JSON out" shape this codebase
// already uses for its other external AI collaborator.
type HTTPInferencer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPInferencer builds an HTTPInferencer posting batches to endpoint.
func NewHTTPInferencer(endpoint string, timeout time.Duration) *HTTPInferencer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPInferencer{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type inferenceRequest struct {
	Shape [4]int    `json:"shape"`
	Data  []float32 `json:"data"`
}

type inferenceResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// RunAudioInference POSTs batch as JSON and decodes the [B,D] embedding
// matrix from the response body. Any transport or decode error propagates
// to the caller, where the orchestrator treats it as a per-chunk inference
// failure (spec §7: surviving embeddings from that chunk are discarded).
func (h *HTTPInferencer) RunAudioInference(batch Tensor) ([][]float32, error) {
	body, err := json.Marshal(inferenceRequest{Shape: batch.Shape, Data: batch.Data})
	if err != nil {
		return nil, fmt.Errorf("index: failed to encode inference request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("index: failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index: inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index: inference endpoint returned status %d", resp.StatusCode)
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("index: failed to decode inference response: %w", err)
	}
	if len(out.Embeddings) != batch.Shape[0] {
		return nil, fmt.Errorf("index: inference returned %d embeddings, want %d", len(out.Embeddings), batch.Shape[0])
	}
	return out.Embeddings, nil
}
