package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocalProviderPadsAndNormalizes(t *testing.T) {
	model := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{3, 4}, nil // len 5 magnitude -> normalize to unit
	}
	p := NewLocal(model, 4)

	v, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != 4 {
		t.Fatalf("expected padded length 4, got %d", len(v))
	}

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sumSq)-1.0) > 1e-5 {
		t.Fatalf("expected unit-length vector, got magnitude %f", math.Sqrt(sumSq))
	}
}

func TestLocalProviderPropagatesModelError(t *testing.T) {
	wantErr := errors.New("model exploded")
	p := NewLocal(func(ctx context.Context, text string) ([]float32, error) {
		return nil, wantErr
	}, 8)

	_, err := p.Embed(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoteProviderEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := remoteEmbedResponse{Embeddings: make([][]float32, len(req.Texts))}
		for i := range req.Texts {
			resp.Embeddings[i] = []float32{1, 2, 3}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, 5, nil)
	out, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(out) != 2 || len(out[0]) != 5 {
		t.Fatalf("unexpected result shape: %+v", out)
	}
}

func TestRemoteProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, 5, nil)
	_, err := p.Embed(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestHybridFallsBackToLocalOnRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, 4, nil)
	local := NewLocal(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}, 4)

	h := NewHybrid(remote, local, 4)
	v, err := h.Embed(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != 4 {
		t.Fatalf("unexpected vector length: %d", len(v))
	}
}

func TestHybridReturnsErrNoVectorProviderWhenUnconfigured(t *testing.T) {
	h := NewHybrid(nil, nil, 4)
	_, err := h.Embed(context.Background(), "hi")
	if !errors.Is(err, ErrNoVectorProvider) {
		t.Fatalf("expected ErrNoVectorProvider, got %v", err)
	}
}
