package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpopts "github.com/kart-io/evidence-x/pkg/options/server/http"
)

func TestServer_StartStop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	opts := httpopts.NewOptions()
	opts.ApplyOptions(httpopts.WithAddr("127.0.0.1:0"))
	s := NewServer(opts, engine)
	assert.Equal(t, "http", s.Name())

	require.NoError(t, s.Start(context.Background()))
	resp, err := http.Get("http://" + s.Addr() + "/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = http.Get("http://" + s.Addr() + "/ping")
	assert.Error(t, err)
}

func TestServer_StartAddrInUse(t *testing.T) {
	opts := httpopts.NewOptions()
	opts.Addr = "127.0.0.1:0"
	first := NewServer(opts, gin.New())
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	second := NewServer(&httpopts.Options{Addr: first.Addr()}, gin.New())
	assert.Error(t, second.Start(context.Background()))
}

func TestServer_StopBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(nil, gin.New()).Stop(context.Background()))
}
