package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// RemoteProvider POSTs batches of text to a configured HTTP endpoint and
// parses a [][]float32 response, mirroring the teacher's
// vertex_embeddings.go request/response shape without being tied to
// Vertex AI specifically.
type RemoteProvider struct {
	endpoint   string
	httpClient *http.Client
	dim        int
}

// NewRemote builds a RemoteProvider against endpoint. When tokenSource is
// non-nil, requests carry a bearer token (Vertex-AI-style auth); otherwise
// a plain http.Client is used.
func NewRemote(endpoint string, dim int, tokenSource oauth2.TokenSource) *RemoteProvider {
	client := &http.Client{Timeout: 30 * time.Second}
	if tokenSource != nil {
		client = oauth2.NewClient(context.Background(), tokenSource)
		client.Timeout = 30 * time.Second
	}
	return &RemoteProvider{endpoint: endpoint, httpClient: client, dim: dim}
}

func (p *RemoteProvider) Dimension() int { return p.dim }

func (p *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, geerrors.Network(fmt.Errorf("remote embedding provider returned no vectors"))
	}
	return out[0], nil
}

type remoteEmbedRequest struct {
	Texts []string `json:"texts"`
}

type remoteEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(remoteEmbedRequest{Texts: texts})
	if err != nil {
		return nil, geerrors.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, geerrors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, geerrors.Network(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, geerrors.Network(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, geerrors.Network(fmt.Errorf("embedding endpoint returned status %d: %s", resp.StatusCode, respBody))
	}

	var parsed remoteEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, geerrors.Internal(fmt.Errorf("failed to parse embedding response: %w", err))
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, geerrors.Internal(fmt.Errorf("embedding response count mismatch: got %d, want %d", len(parsed.Embeddings), len(texts)))
	}

	out := make([][]float32, len(parsed.Embeddings))
	for i, v := range parsed.Embeddings {
		out[i] = pad(v, p.dim)
	}
	return out, nil
}
