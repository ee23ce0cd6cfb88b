package rerank

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

const defaultRemoteTimeout = 30 * time.Second

// RemoteMode calls a single batch endpoint on a hosted reranker, grounded on
// the teacher's internal/search/mlx_reranker.go MLXReranker (pooled HTTP
// client, single POST with {query, documents}, decode {results:[{index,
// score}]}).
type RemoteMode struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
}

var _ Mode = (*RemoteMode)(nil)

// NewRemoteMode builds a remote reranker mode. Per spec §4.9, this mode is
// only selected when a credential is present; the caller is responsible for
// omitting RemoteMode from the chain when apiKey is empty.
func NewRemoteMode(endpoint, apiKey, model string) *RemoteMode {
	return &RemoteMode{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
	}
}

type remoteRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type remoteResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func (m *RemoteMode) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Scored, error) {
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	body, err := json.Marshal(remoteRequest{Query: query, Documents: docs, Model: m.model})
	if err != nil {
		return nil, ocerrors.Internal("marshal rerank request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRemoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, ocerrors.Internal("build rerank request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, ocerrors.Transient("call remote reranker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, ocerrors.ModelUnavailable(fmt.Sprintf("remote reranker returned status %d: %s", resp.StatusCode, respBody), nil)
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, ocerrors.Parse("decode rerank response", err)
	}

	scored := make([]Scored, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		scored = append(scored, Scored{ID: candidates[r.Index].ID, Score: r.Score})
	}
	return scored, nil
}
