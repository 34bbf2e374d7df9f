package options

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/evidence-x/pkg/infra/app"
)

func execute(t *testing.T, opts *ServerOptions, args ...string) error {
	t.Helper()
	a := app.NewApp(
		app.WithName("evidence-options-test"),
		app.WithOptions(opts),
		app.WithDotenv(filepath.Join(t.TempDir(), "missing.env")),
		app.WithNoVersion(),
	)
	a.Command().SetArgs(append([]string{}, args...))
	return a.Command().Execute()
}

func TestServerOptions_Defaults(t *testing.T) {
	opts := NewServerOptions()
	require.NoError(t, opts.Complete())
	require.NoError(t, opts.Validate())

	assert.Equal(t, ":8000", opts.HTTPOptions.Addr)
	assert.Equal(t, 5, opts.EvidenceOptions.TopK)
	assert.Equal(t, 20, opts.EvidenceOptions.MinChunkLength)
	assert.InDelta(t, 0.1, opts.EvidenceOptions.GenerateTemperature, 1e-9)
	assert.Equal(t, 1500, opts.EvidenceOptions.GenerateMaxTokens)
	assert.Equal(t, 300, opts.EvidenceOptions.VerifyMaxTokens)
	assert.False(t, opts.CacheOptions.UseRedis())
}

func TestServerOptions_FlagSections(t *testing.T) {
	fss := NewServerOptions().Flags()
	assert.Equal(t, []string{"http", "log", "tracing", "cache", "embedding", "chat", "evidence", "middleware"}, fss.Order)

	for section, flag := range map[string]string{
		"http":       "http.addr",
		"log":        "log.level",
		"tracing":    "tracing.enabled",
		"cache":      "cache.redis.host",
		"embedding":  "embedding.model",
		"chat":       "chat.api-key",
		"evidence":   "evidence.top-k",
		"middleware": "middleware.swagger.enabled",
	} {
		assert.NotNil(t, fss.FlagSets[section].Lookup(flag), flag)
	}
}

func TestServerOptions_LoadFromConfigEnvAndFlags(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "evidence.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
http:
  addr: ":9100"
embedding:
  provider: ollama
  model: nomic-embed-text
chat:
  provider: ollama
  model: llama3
evidence:
  top-k: 3
  embed-timeout: 10s
middleware:
  swagger:
    enabled: true
`), 0o600))
	t.Setenv("EVIDENCE_OPTIONS_TEST_CHAT_API_KEY", "sk-from-env")

	opts := NewServerOptions()
	require.NoError(t, execute(t, opts, "-c", cfg, "--evidence.top-k=7"))

	assert.Equal(t, ":9100", opts.HTTPOptions.Addr)
	assert.Equal(t, "ollama", opts.EmbeddingOptions.Provider)
	assert.Equal(t, "nomic-embed-text", opts.EmbeddingOptions.Model)
	assert.Equal(t, "llama3", opts.ChatOptions.Model)
	assert.Equal(t, "sk-from-env", opts.ChatOptions.APIKey)
	assert.Equal(t, 7, opts.EvidenceOptions.TopK)
	assert.Equal(t, 10*time.Second, opts.EvidenceOptions.EmbedTimeout)
	assert.True(t, opts.MiddlewareOptions.Swagger.Enabled)
	assert.True(t, opts.MiddlewareOptions.Metrics.Enabled)

	c, err := opts.Config()
	require.NoError(t, err)
	assert.Same(t, opts.EvidenceOptions, c.EvidenceOptions)
	assert.Same(t, opts.ChatOptions, c.ChatOptions)
}

func TestServerOptions_ValidateAggregates(t *testing.T) {
	opts := NewServerOptions()
	opts.CacheOptions.Backend = "memcached"
	opts.EvidenceOptions.GenerateMaxTokens = 0
	opts.ChatOptions.Model = ""
	opts.MiddlewareOptions.Metrics.Path = "metrics"

	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
	assert.Contains(t, err.Error(), "model is required")
	assert.Contains(t, err.Error(), "evidence:")
	assert.Contains(t, err.Error(), "middleware.metrics.path")
}
