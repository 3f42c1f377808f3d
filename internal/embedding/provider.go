// Package embedding provides pluggable text-embedding backends: a thin
// wrapper around an injected local model function, a remote HTTP client,
// and a hybrid that prefers remote and degrades to local.
package embedding

import (
	"context"
	"errors"
)

// Provider computes fixed-width vector embeddings for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ErrNoVectorProvider is returned by the hybrid provider when neither a
// remote endpoint nor a local model function is configured. The search
// engine treats this as "the vector branch returned nothing", not as a
// query failure (spec.md §4.5).
var ErrNoVectorProvider = errors.New("embedding: no vector provider configured")

// pad truncates or zero-pads v to exactly dim entries, holding the
// contract's fixed-dimension invariant regardless of what an injected
// model or remote endpoint actually returns.
func pad(v []float32, dim int) []float32 {
	if len(v) == dim {
		return v
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}
