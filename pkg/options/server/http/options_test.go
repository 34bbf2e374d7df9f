package http

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptions(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, ":8080", o.Addr)
	assert.Empty(t, o.Validate())
}

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--http.addr=:9000", "--http.write-timeout=5m"}))
	assert.Equal(t, ":9000", o.Addr)
	assert.Equal(t, 5*time.Minute, o.WriteTimeout)
}

func TestValidate(t *testing.T) {
	o := &Options{}
	assert.Len(t, o.Validate(), 4)
}

func TestApplyOptions(t *testing.T) {
	o := NewOptions()
	o.ApplyOptions(WithAddr("127.0.0.1:0"), WithWriteTimeout(time.Second))
	assert.Equal(t, "127.0.0.1:0", o.Addr)
	assert.Equal(t, time.Second, o.WriteTimeout)
}
