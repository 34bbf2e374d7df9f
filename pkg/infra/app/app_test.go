package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverSection struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
	Paths   []string      `mapstructure:"paths"`
}

type testOptions struct {
	Server   *serverSection `mapstructure:"server"`
	APIKey   string         `mapstructure:"api-key"`
	invalid  bool
	complete bool
}

func newTestOptions() *testOptions {
	return &testOptions{Server: &serverSection{Addr: ":8080", Timeout: time.Second, Paths: []string{"/healthz"}}}
}

func (o *testOptions) Flags() (fss NamedFlagSets) {
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "address")
	fs.DurationVar(&o.Server.Timeout, "server.timeout", o.Server.Timeout, "timeout")
	fs.StringSliceVar(&o.Server.Paths, "server.paths", o.Server.Paths, "paths")
	fss.FlagSet("auth").StringVar(&o.APIKey, "api-key", o.APIKey, "key")
	return fss
}

func (o *testOptions) Complete() error {
	o.complete = true
	return nil
}

func (o *testOptions) Validate() error {
	if o.invalid {
		return errors.New("invalid")
	}
	return nil
}

func runApp(t *testing.T, opts *testOptions, args ...string) error {
	t.Helper()
	a := NewApp(
		WithName("evidence-test"),
		WithOptions(opts),
		WithDotenv(filepath.Join(t.TempDir(), "missing.env")),
		WithNoVersion(),
	)
	a.Command().SetArgs(append([]string{}, args...))
	return a.Command().Execute()
}

func TestApp_ConfigEnvFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
server:
  addr: ":7000"
  timeout: 5s
  paths: ["/a", "/b"]
api-key: ${TEST_EVIDENCE_KEY}
`), 0o600))

	t.Setenv("TEST_EVIDENCE_KEY", "from-config-env")
	t.Setenv("EVIDENCE_TEST_SERVER_TIMEOUT", "9s")

	opts := newTestOptions()
	require.NoError(t, runApp(t, opts, "--config", cfg, "--server.addr=:9000"))

	assert.Equal(t, ":9000", opts.Server.Addr, "explicit flag wins")
	assert.Equal(t, 9*time.Second, opts.Server.Timeout, "env overrides file")
	assert.Equal(t, []string{"/a", "/b"}, opts.Server.Paths)
	assert.Equal(t, "from-config-env", opts.APIKey)
	assert.True(t, opts.complete)
}

func TestApp_ChangedSliceFlagWins(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("server:\n  paths: [\"/a\"]\n"), 0o600))

	opts := newTestOptions()
	require.NoError(t, runApp(t, opts, "-c", cfg, "--server.paths=/x,/y"))
	assert.Equal(t, []string{"/x", "/y"}, opts.Server.Paths)
}

func TestApp_DotenvLoaded(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("EVIDENCE_DOTENV_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("EVIDENCE_DOTENV_API_KEY") })

	opts := newTestOptions()
	a := NewApp(
		WithName("evidence-dotenv"),
		WithOptions(opts),
		WithDotenv(envFile),
		WithNoVersion(),
	)
	a.Command().SetArgs([]string{"--config", filepath.Join(dir, "none.yaml")})
	// 指定的配置文件不存在属于读取错误
	assert.Error(t, a.Command().Execute())

	opts = newTestOptions()
	a = NewApp(WithName("evidence-dotenv"), WithOptions(opts), WithDotenv(envFile), WithNoVersion())
	a.Command().SetArgs([]string{})
	require.NoError(t, a.Command().Execute())
	assert.Equal(t, "from-dotenv", opts.APIKey)
}

func TestApp_ValidateError(t *testing.T) {
	opts := newTestOptions()
	opts.invalid = true
	assert.EqualError(t, runApp(t, opts), "invalid")
}

func TestApp_RunFunc(t *testing.T) {
	called := false
	a := NewApp(
		WithName("evidence-run"),
		WithNoConfig(),
		WithNoVersion(),
		WithRunFunc(func() error { called = true; return nil }),
	)
	a.Command().SetArgs([]string{})
	require.NoError(t, a.Command().Execute())
	assert.True(t, called)
}

func TestNamedFlagSets(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("b").String("x", "", "")
	fss.FlagSet("a").String("y", "", "")
	fss.FlagSet("b").String("z", "", "")
	assert.Equal(t, []string{"b", "a"}, fss.Order)

	var sb strings.Builder
	fss.PrintSections(&sb, 0)
	assert.Contains(t, sb.String(), "B flags:")
	assert.Contains(t, sb.String(), "--z")
}
