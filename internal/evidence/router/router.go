// Package router provides evidence service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docs "github.com/kart-io/evidence-x/api/swagger/evidence"
	"github.com/kart-io/evidence-x/internal/evidence/handler"
	"github.com/kart-io/evidence-x/internal/pkg/httputils"
	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/infra/middleware"
	mwopts "github.com/kart-io/evidence-x/pkg/options/middleware"
)

// Register registers the evidence routes plus the health, version and the
// optional metrics, pprof and Swagger endpoints. gatherer may be nil when
// metrics are disabled.
func Register(
	engine *gin.Engine,
	evidenceHandler *handler.EvidenceHandler,
	health *middleware.HealthManager,
	opts *mwopts.Options,
	gatherer prometheus.Gatherer,
) {
	logger.Info("Registering evidence routes...")

	engine.GET("/healthz", health.Handler())
	engine.GET("/version", middleware.VersionHandler(false))

	if opts != nil {
		registerOptional(engine, opts, gatherer)
	}

	v1 := engine.Group("/v1")
	{
		evidence := v1.Group("/evidence")
		{
			// Corpus endpoints
			evidence.POST("/upload", evidenceHandler.Upload)
			evidence.POST("/clear", evidenceHandler.Clear)
			evidence.GET("/files", evidenceHandler.ListFiles)
			evidence.GET("/stats", evidenceHandler.Stats)

			// Question answering
			evidence.POST("/ask", evidenceHandler.Ask)
		}
	}

	engine.NoRoute(func(c *gin.Context) {
		httputils.WriteResponse(c, errors.ErrRouteNotFound, nil)
	})

	logger.Info("HTTP routes registered")
}

func registerOptional(engine *gin.Engine, opts *mwopts.Options, gatherer prometheus.Gatherer) {
	if opts.Metrics.Enabled && gatherer != nil {
		engine.GET(opts.Metrics.Path, middleware.MetricsHandler(gatherer))
		logger.Infow("Metrics endpoint enabled", "path", opts.Metrics.Path)
	}

	if opts.Pprof.Enabled {
		middleware.RegisterPprof(engine, opts.Pprof)
		logger.Infow("Pprof endpoints enabled", "prefix", opts.Pprof.Prefix)
	}

	if opts.Swagger.Enabled {
		// 访问地址: {path}/index.html
		engine.GET(opts.Swagger.Path+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
			ginSwagger.InstanceName(docs.SwaggerInfoevidence.InstanceName())))
		logger.Infow("Swagger UI enabled", "url", opts.Swagger.Path+"/index.html")
	}
}
