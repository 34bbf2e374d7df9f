package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/evidence-x/pkg/llm"
)

func newTestProvider(url string) *Provider {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.APIKey = "hf_test"
	cfg.MaxRetries = 0
	return NewProviderWithConfig(cfg)
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)

	p, err := NewProvider(map[string]any{"api_key": "hf_x"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}

func TestDecodeEmbeddings(t *testing.T) {
	flat, err := decodeEmbeddings([]byte(`[[1,2],[3,4]]`))
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, flat)

	pooled, err := decodeEmbeddings([]byte(`[[[1,2],[3,4]]]`))
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 3}}, pooled)

	_, err = decodeEmbeddings([]byte(`{"error":"loading"}`))
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[[1,0],[0,1]]`))
	}))
	defer server.Close()

	vecs, err := newTestProvider(server.URL).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestGenerate_GreedyAtZeroTemperature(t *testing.T) {
	var got generationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"generated_text":"  verified  "}]`))
	}))
	defer server.Close()

	resp, err := newTestProvider(server.URL).Generate(context.Background(), "q", "audit",
		llm.WithTemperature(0), llm.WithMaxTokens(300))
	require.NoError(t, err)
	assert.Equal(t, "verified", resp.Content)
	assert.False(t, got.Parameters.DoSample)
	assert.Nil(t, got.Parameters.Temperature)
	assert.Equal(t, 300, got.Parameters.MaxNewTokens)
	assert.Contains(t, got.Inputs, "[INST] audit [/INST]")
}

func TestGenerate_SamplesAboveZero(t *testing.T) {
	params := buildParams([]llm.GenerateOption{llm.WithTemperature(0.1)})
	assert.True(t, params.DoSample)
	require.NotNil(t, params.Temperature)
	assert.Equal(t, 0.1, *params.Temperature)
}

func TestGenerate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Generate(context.Background(), "q", "")
	assert.Error(t, err)
}
