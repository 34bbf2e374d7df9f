package langchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/evidence-x/pkg/llm"
)

func fakeOpenAI(t *testing.T, captured *map[string]any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[1,0],"index":0},{"object":"embedding","embedding":[0,1],"index":1}],"model":"emb"}`))
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			if captured != nil {
				require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
			}
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"chat","choices":[{"index":0,"message":{"role":"assistant","content":"grounded answer"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(map[string]any{"backend": "openai"})
	assert.Error(t, err, "openai backend requires api_key")

	_, err = NewProvider(map[string]any{"backend": "bedrock", "api_key": "k"})
	assert.Error(t, err)

	p, err := NewProvider(map[string]any{"backend": "ollama", "chat_model": "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}

func TestProvider_OpenAIBackend(t *testing.T) {
	var got map[string]any
	server := fakeOpenAI(t, &got)
	defer server.Close()

	p, err := NewProvider(map[string]any{
		"backend":     "openai",
		"base_url":    server.URL,
		"api_key":     "Bearer sk-test",
		"embed_model": "emb",
		"chat_model":  "chat",
	})
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)

	resp, err := p.Generate(context.Background(), "question", "system", llm.WithTemperature(0.1), llm.WithMaxTokens(1500))
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", resp.Content)
	assert.InDelta(t, 0.1, got["temperature"], 1e-9)
	assert.Len(t, got["messages"], 2)
}

func TestCallOptions(t *testing.T) {
	assert.Empty(t, callOptions(nil))
	assert.Len(t, callOptions([]llm.GenerateOption{llm.WithTemperature(0), llm.WithMaxTokens(300)}), 2)
}

func TestToMessageContent(t *testing.T) {
	out := toMessageContent([]llm.Message{
		{Role: llm.RoleSystem, Content: "s"},
		{Role: llm.RoleUser, Content: "u"},
		{Role: llm.RoleAssistant, Content: "a"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "system", string(out[0].Role))
	assert.Equal(t, "human", string(out[1].Role))
	assert.Equal(t, "ai", string(out[2].Role))
}

func TestTokenUsage(t *testing.T) {
	assert.Nil(t, tokenUsage(nil))
	u := tokenUsage(map[string]any{"PromptTokens": 7, "CompletionTokens": 3, "TotalTokens": 10})
	require.NotNil(t, u)
	assert.Equal(t, 10, u.TotalTokens)
}
