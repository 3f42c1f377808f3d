package embedding

import (
	"context"

	"github.com/jamiequint/groundeffect/internal/logger"
)

// HybridProvider prefers a remote provider when configured, falling back
// to a local one on error, and returning ErrNoVectorProvider when neither
// is configured — the degraded-mode contract spec.md §4.5 / §9 calls for.
type HybridProvider struct {
	remote *RemoteProvider
	local  *LocalProvider
	dim    int
}

// NewHybrid builds a HybridProvider. Either remote or local may be nil.
func NewHybrid(remote *RemoteProvider, local *LocalProvider, dim int) *HybridProvider {
	return &HybridProvider{remote: remote, local: local, dim: dim}
}

func (p *HybridProvider) Dimension() int { return p.dim }

func (p *HybridProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.remote != nil {
		v, err := p.remote.Embed(ctx, text)
		if err == nil {
			return v, nil
		}
		logger.Warn("remote embedding failed, falling back to local", "error", err)
	}
	if p.local != nil {
		return p.local.Embed(ctx, text)
	}
	return nil, ErrNoVectorProvider
}

func (p *HybridProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.remote != nil {
		v, err := p.remote.EmbedBatch(ctx, texts)
		if err == nil {
			return v, nil
		}
		logger.Warn("remote embedding batch failed, falling back to local", "error", err)
	}
	if p.local != nil {
		return p.local.EmbedBatch(ctx, texts)
	}
	return nil, ErrNoVectorProvider
}
