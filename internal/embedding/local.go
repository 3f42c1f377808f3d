package embedding

import (
	"context"
	"math"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// ModelFunc is the contract for the out-of-scope embedding model loader
// (spec.md §1: "a library call; only its contract is relevant"). Injected
// at construction so this package never depends on a concrete model
// runtime.
type ModelFunc func(ctx context.Context, text string) ([]float32, error)

// LocalProvider wraps an injected ModelFunc, applying the pad/truncate and
// L2-normalize steps itself so the fixed-dimension, unit-length contract
// (spec.md §3.2) holds regardless of what the injected model returns.
type LocalProvider struct {
	model ModelFunc
	dim   int
}

// NewLocal builds a LocalProvider around model, producing dim-length
// vectors.
func NewLocal(model ModelFunc, dim int) *LocalProvider {
	return &LocalProvider{model: model, dim: dim}
}

func (p *LocalProvider) Dimension() int { return p.dim }

func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := p.model(ctx, text)
	if err != nil {
		return nil, geerrors.Internal(err)
	}
	return normalize(pad(v, p.dim)), nil
}

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// normalize returns an L2-normalized copy of v (v itself is left unchanged;
// an all-zero v is returned as is), matching original_source's
// mean-pool-then-normalize pipeline (the forward pass itself is the
// out-of-scope model loader; this package only guarantees the contract
// it hands off to).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
