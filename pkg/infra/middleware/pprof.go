package middleware

import (
	"net/http/pprof"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/evidence-x/pkg/options/middleware"
)

// RegisterPprof registers the pprof endpoints under opts.Prefix.
func RegisterPprof(r gin.IRouter, opts *mwopts.PprofOptions) {
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}
	if opts.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexProfileFraction)
	}

	prefix := strings.TrimSuffix(opts.Prefix, "/")
	if prefix == "" {
		prefix = "/debug/pprof"
	}

	g := r.Group(prefix)
	g.GET("/", gin.WrapF(pprof.Index))
	g.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	g.GET("/profile", gin.WrapF(pprof.Profile))
	g.GET("/symbol", gin.WrapF(pprof.Symbol))
	g.POST("/symbol", gin.WrapF(pprof.Symbol))
	g.GET("/trace", gin.WrapF(pprof.Trace))
	// heap, goroutine, allocs 等由 Index 按名称分发
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		g.GET("/"+name, gin.WrapH(pprof.Handler(name)))
	}
}
