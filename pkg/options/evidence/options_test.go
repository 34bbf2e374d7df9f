package evidence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptions_Defaults(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, 5, o.TopK)
	assert.Equal(t, 20, o.MinChunkLength)
	assert.Equal(t, 85.0, o.HighThreshold)
	assert.Equal(t, 70.0, o.MediumThreshold)
	assert.Equal(t, 0.1, o.GenerateTemperature)
	assert.Equal(t, 1500, o.GenerateMaxTokens)
	assert.Equal(t, 0.0, o.VerifyTemperature)
	assert.Equal(t, 300, o.VerifyMaxTokens)
	assert.True(t, o.WatchPromptFile)
	assert.Empty(t, o.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
		ok     bool
	}{
		{"defaults", func(*Options) {}, true},
		{"medium above high", func(o *Options) { o.MediumThreshold = 90 }, false},
		{"medium equals high", func(o *Options) { o.MediumThreshold = 85 }, false},
		{"high above 100", func(o *Options) { o.HighThreshold = 101 }, false},
		{"negative medium", func(o *Options) { o.MediumThreshold = -1 }, false},
		{"zero top-k", func(o *Options) { o.TopK = 0 }, false},
		{"zero max tokens", func(o *Options) { o.VerifyMaxTokens = 0 }, false},
		{"zero embed timeout", func(o *Options) { o.EmbedTimeout = 0 }, false},
		{"missing prompt file", func(o *Options) { o.PromptFile = "/nonexistent/prompts.yaml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			if tt.ok {
				assert.Empty(t, o.Validate())
			} else {
				assert.NotEmpty(t, o.Validate())
			}
		})
	}
}

func TestValidate_PromptFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("answer: x\n"), 0o600))

	o := NewOptions()
	o.PromptFile = path
	assert.Empty(t, o.Validate())
}

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--evidence.top-k=3", "--evidence.high-threshold=90", "--evidence.watch-prompt-file=false"}))
	assert.Equal(t, 3, o.TopK)
	assert.Equal(t, 90.0, o.HighThreshold)
	assert.False(t, o.WatchPromptFile)
}

func TestComplete_ClampsTopK(t *testing.T) {
	o := NewOptions()
	o.TopK = -2
	require.NoError(t, o.Complete())
	assert.Equal(t, 1, o.TopK)
}
