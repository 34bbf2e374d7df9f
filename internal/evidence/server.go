// Package evidencesvc assembles the evidence service: model backends, the
// embedding cache, the corpus and the HTTP server.
package evidencesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/evidence-x/internal/evidence/biz"
	"github.com/kart-io/evidence-x/internal/evidence/handler"
	"github.com/kart-io/evidence-x/internal/evidence/metrics"
	"github.com/kart-io/evidence-x/internal/evidence/router"
	"github.com/kart-io/evidence-x/internal/evidence/store"
	"github.com/kart-io/evidence-x/internal/pkg/extract"
	"github.com/kart-io/evidence-x/pkg/infra/config"
	"github.com/kart-io/evidence-x/pkg/infra/middleware"
	"github.com/kart-io/evidence-x/pkg/infra/pool"
	"github.com/kart-io/evidence-x/pkg/infra/server"
	httpserver "github.com/kart-io/evidence-x/pkg/infra/server/http"
	"github.com/kart-io/evidence-x/pkg/infra/tracing"
	"github.com/kart-io/evidence-x/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/evidence-x/pkg/llm/gemini"
	_ "github.com/kart-io/evidence-x/pkg/llm/huggingface"
	_ "github.com/kart-io/evidence-x/pkg/llm/langchain"
	_ "github.com/kart-io/evidence-x/pkg/llm/ollama"
	_ "github.com/kart-io/evidence-x/pkg/llm/openai"
	"github.com/kart-io/evidence-x/pkg/llm/resilience"
	cacheopts "github.com/kart-io/evidence-x/pkg/options/cache"
	evidenceopts "github.com/kart-io/evidence-x/pkg/options/evidence"
	llmopts "github.com/kart-io/evidence-x/pkg/options/llm"
	logopts "github.com/kart-io/evidence-x/pkg/options/logger"
	mwopts "github.com/kart-io/evidence-x/pkg/options/middleware"
	httpopts "github.com/kart-io/evidence-x/pkg/options/server/http"
	tracingopts "github.com/kart-io/evidence-x/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "evidence"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	TracingOptions    *tracingopts.Options
	CacheOptions      *cacheopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	ChatOptions       *llmopts.ProviderOptions
	EvidenceOptions   *evidenceopts.Options
	MiddlewareOptions *mwopts.Options
}

// Server represents the evidence server.
type Server struct {
	srv     *server.Manager
	http    *httpserver.Server
	service *biz.EvidenceService
}

// NewServer initializes and returns a new Server instance. Missing model
// credentials do not fail startup; the affected endpoints report them.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	if cfg.MiddlewareOptions == nil {
		cfg.MiddlewareOptions = mwopts.NewOptions()
	}

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", version.Get().GitVersion)
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting evidence service...")

	var closers []server.Runnable

	// 2. 初始化链路追踪
	cfg.TracingOptions.ServiceVersion = version.Get().GitVersion
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	closers = append(closers, server.NewCloser("tracing", tp.Shutdown))
	logger.Infow("Tracing initialized", "enabled", tp.Enabled())

	// 3. 初始化向量缓存
	cache, redisClient := newEmbeddingCache(ctx, cfg.CacheOptions)
	if redisClient != nil {
		closers = append(closers, server.NewCloser("redis", func(context.Context) error {
			return redisClient.Close()
		}))
	}

	// 4. 初始化 LLM 供应商
	var cached *llm.CachedEmbeddingProvider
	if embed := newEmbeddingProvider(cfg.EmbeddingOptions); embed != nil {
		cached = llm.NewCachedEmbeddingProvider(embed, cache, cfg.EvidenceOptions.EmbedBatchSize)
	}
	chat := newChatProvider(cfg.ChatOptions)

	// 5. 初始化解析协程池
	workers, err := pool.NewPool("upload", pool.DefaultConfig(cfg.EvidenceOptions.UploadWorkers))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload pool: %w", err)
	}
	closers = append(closers, server.NewCloser("upload-pool", func(ctx context.Context) error {
		return workers.Release(timeUntil(ctx))
	}))

	// 6. 初始化 Biz 层
	prompts, err := newPromptStore(cfg.EvidenceOptions, &closers)
	if err != nil {
		return nil, err
	}
	serviceConfig := newServiceConfig(cfg.EvidenceOptions, prompts)
	service := biz.NewEvidenceService(store.NewCorpus(), extract.Default(), workers, cached, chat, serviceConfig)

	// 7. 初始化指标
	var (
		registry    *prometheus.Registry
		httpMetrics *middleware.MetricsCollector
	)
	if m := cfg.MiddlewareOptions.Metrics; m.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		httpMetrics = middleware.NewMetricsCollector(registry, m.Namespace, m.Subsystem)
		service.WithMetrics(metrics.New(registry, m.Namespace))
	}
	logger.Infow("Evidence service initialized",
		"top_k", serviceConfig.TopK,
		"min_chunk_length", serviceConfig.MinChunkLength,
		"cache", cache.Name(),
		"upload_workers", cfg.EvidenceOptions.UploadWorkers,
	)
	if err := service.Ready(); err != nil {
		logger.Warnw("Evidence service started without model backends", "reason", err.Error())
	}

	// 8. 初始化 HTTP 服务
	health := middleware.NewHealthManager(version.Get().GitVersion)
	health.RegisterChecker("models", false, func(context.Context) error { return service.Ready() })
	if redisClient != nil {
		health.RegisterChecker("cache", false, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine := newEngine(cfg, httpMetrics)
	var gatherer prometheus.Gatherer
	if registry != nil {
		gatherer = registry
	}
	router.Register(engine, handler.NewEvidenceHandler(service, cfg.EvidenceOptions.MaxUploadSize), health,
		cfg.MiddlewareOptions, gatherer)

	httpSrv := httpserver.NewServer(cfg.HTTPOptions, engine)

	// 关闭顺序与注册顺序相反：先停 HTTP，再释放资源
	mgr := server.NewManager(cfg.HTTPOptions.ShutdownTimeout)
	mgr.Add(closers...)
	mgr.Add(httpSrv)

	return &Server{srv: mgr, http: httpSrv, service: service}, nil
}

// Run starts the server and blocks until ctx is cancelled or a signal arrives.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("Evidence service is ready")
	return s.srv.Run(ctx)
}

func newEngine(cfg *Config, httpMetrics *middleware.MetricsCollector) *gin.Engine {
	if !cfg.LogOptions.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.EvidenceOptions.MaxUploadSize
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(middleware.RecoveryConfig{EnableStackTrace: cfg.LogOptions.Development}),
		middleware.Logger(middleware.LoggerConfig{SkipPaths: cfg.HTTPOptions.SkipLogPaths}),
		middleware.Tracing(),
	)
	if httpMetrics != nil {
		engine.Use(httpMetrics.Middleware(cfg.MiddlewareOptions.Metrics.Path))
	}
	if len(cfg.HTTPOptions.CORSAllowOrigins) > 0 {
		engine.Use(middleware.CORS(middleware.CORSConfig{AllowOrigins: cfg.HTTPOptions.CORSAllowOrigins}))
	}
	engine.Use(middleware.Timeout(cfg.EvidenceOptions.RequestTimeout, "/healthz", "/version"))
	return engine
}

func newServiceConfig(o *evidenceopts.Options, prompts biz.PromptSource) *biz.ServiceConfig {
	return &biz.ServiceConfig{
		TopK:            o.TopK,
		MinChunkLength:  o.MinChunkLength,
		HighThreshold:   o.HighThreshold,
		MediumThreshold: o.MediumThreshold,
		EmbedTimeout:    o.EmbedTimeout,
		Generate: biz.CallConfig{
			Temperature: o.GenerateTemperature,
			MaxTokens:   o.GenerateMaxTokens,
			Timeout:     o.GenerateTimeout,
		},
		Verify: biz.CallConfig{
			Temperature: o.VerifyTemperature,
			MaxTokens:   o.VerifyMaxTokens,
			Timeout:     o.VerifyTimeout,
		},
		Prompts: prompts,
	}
}

// newPromptStore loads the prompt templates and, when configured, reloads
// them whenever the file changes.
func newPromptStore(o *evidenceopts.Options, closers *[]server.Runnable) (*biz.PromptStore, error) {
	initial, err := biz.LoadPrompts(o.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	store := biz.NewPromptStore(initial)
	if o.PromptFile == "" || !o.WatchPromptFile {
		return store, nil
	}

	w, err := config.NewWatcher(o.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to watch prompts: %w", err)
	}
	w.Subscribe("prompts", store.Reload)
	if err := w.Start(); err != nil {
		// 热加载不可用不影响服务启动
		logger.Warnw("Prompt file watching disabled", "path", o.PromptFile, "error", err.Error())
		return store, nil
	}
	*closers = append(*closers, server.NewCloser("prompt-watcher", func(context.Context) error {
		return w.Stop()
	}))
	return store, nil
}

// newEmbeddingCache returns the Redis cache when configured and reachable,
// otherwise the in-process cache.
func newEmbeddingCache(ctx context.Context, o *cacheopts.Options) (llm.EmbeddingCache, *goredis.Client) {
	if !o.UseRedis() {
		logger.Info("Embedding cache: memory")
		return llm.NewMemoryEmbeddingCache(), nil
	}

	client := o.Redis.NewClient()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnw("failed to connect to redis, falling back to memory cache",
			"addr", o.Redis.Addr(),
			"error", err.Error(),
		)
		_ = client.Close()
		return llm.NewMemoryEmbeddingCache(), nil
	}

	logger.Infow("Embedding cache: redis", "addr", o.Redis.Addr(), "ttl", o.TTL)
	return llm.NewRedisEmbeddingCache(client, &llm.EmbeddingCacheConfig{
		TTL:       o.TTL,
		KeyPrefix: o.KeyPrefix,
	}), client
}

func newEmbeddingProvider(o *llmopts.ProviderOptions) llm.EmbeddingProvider {
	p, err := llm.NewEmbeddingProvider(o.Provider, o.ToConfigMap())
	if err != nil {
		logger.Warnw("Embedding provider unavailable", "provider", o.Provider, "error", err.Error())
		return nil
	}
	logger.Infow("Embedding provider initialized", "provider", o.Provider, "model", o.Model)
	return resilience.NewEmbeddingProvider(p, retryConfig(o), breakerConfig(o))
}

func newChatProvider(o *llmopts.ProviderOptions) llm.ChatProvider {
	p, err := llm.NewChatProvider(o.Provider, o.ToConfigMap())
	if err != nil {
		logger.Warnw("Chat provider unavailable", "provider", o.Provider, "error", err.Error())
		return nil
	}
	logger.Infow("Chat provider initialized", "provider", o.Provider, "model", o.Model)
	return resilience.NewChatProvider(p, retryConfig(o), breakerConfig(o))
}

func retryConfig(o *llmopts.ProviderOptions) *resilience.RetryConfig {
	c := resilience.DefaultRetryConfig()
	c.MaxAttempts = o.RetryAttempts
	return c
}

func breakerConfig(o *llmopts.ProviderOptions) *resilience.CircuitBreakerConfig {
	c := resilience.DefaultCircuitBreakerConfig()
	c.MaxFailures = o.BreakerFailures
	c.Timeout = o.BreakerTimeout
	return c
}

// timeUntil returns the time left before ctx's deadline, or 0 without one.
func timeUntil(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return max(time.Until(deadline), 0)
}
