package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingsServer answers /v1/embeddings with one vector per input whose
// first component is the input's length.
func fakeEmbeddingsServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		requests.Add(1)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		// Reverse order to check that results are placed by index.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Embedding: []float32{float32(len(req.Input[j])), 0}, Index: j}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIBackend_Encode(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddingsServer(t, &requests)

	b, err := NewOpenAIBackend(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		BatchSize:   2,
		Concurrency: 2,
	})
	require.NoError(t, err)

	vecs, err := b.Encode(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, int32(3), requests.Load())
	for _, v := range vecs {
		// Normalized: (len, 0) becomes (1, 0).
		assert.InDelta(t, 1.0, v[0], 1e-6)
	}
}

func TestOpenAIBackend_apiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	_, err = b.Encode(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestNewOpenAIBackend_requiresKey(t *testing.T) {
	_, err := NewOpenAIBackend(OpenAIConfig{})
	assert.Error(t, err)
}
