package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oracle-rag/oracle/internal/ocerrors"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultPoolSize = 8
)

// ollamaEmbedRequest mirrors Ollama's /api/embed request body.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaEmbedder calls Ollama's HTTP embedding endpoint, grounded on the
// teacher's internal/embed/ollama.go OllamaEmbedder (connection-pooled
// client, /api/embed request shape) with the thermal-progression timeout
// logic and multi-model fallback search dropped — this core registers one
// fixed model and fixed dimension per spec §4.6 rather than auto-detecting.
type OllamaEmbedder struct {
	client    *http.Client
	endpoint  string
	model     string
	dimension int
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder builds an Embedder backed by an Ollama server at
// endpoint, using model, fixed to Dimensions.
func NewOllamaEmbedder(endpoint, model string) *OllamaEmbedder {
	transport := &http.Transport{
		MaxIdleConns:        defaultPoolSize,
		MaxIdleConnsPerHost: defaultPoolSize,
		MaxConnsPerHost:     defaultPoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}
	return &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		endpoint:  endpoint,
		model:     model,
		dimension: Dimensions,
	}
}

// Embed returns a unit-normalized Dimensions-wide embedding of text. Blank
// input returns a zero vector, matching the teacher's empty-input handling.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return make([]float32, e.dimension), nil
	}

	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, ocerrors.Internal("marshal embed request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, ocerrors.Internal("build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ocerrors.Transient("call embedding model", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, ocerrors.ModelUnavailable(fmt.Sprintf("embedding model returned status %d: %s", resp.StatusCode, body), nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, ocerrors.Parse("decode embed response", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, ocerrors.ModelUnavailable("embedding model returned no vectors", nil)
	}

	return normalize(result.Embeddings[0]), nil
}

// Close releases pooled connections.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
