// Package options contains flags and options for initializing the evidence server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	evidencesvc "github.com/kart-io/evidence-x/internal/evidence"
	"github.com/kart-io/evidence-x/pkg/infra/app"
	cacheopts "github.com/kart-io/evidence-x/pkg/options/cache"
	evidenceopts "github.com/kart-io/evidence-x/pkg/options/evidence"
	llmopts "github.com/kart-io/evidence-x/pkg/options/llm"
	logopts "github.com/kart-io/evidence-x/pkg/options/logger"
	mwopts "github.com/kart-io/evidence-x/pkg/options/middleware"
	httpopts "github.com/kart-io/evidence-x/pkg/options/server/http"
	tracingopts "github.com/kart-io/evidence-x/pkg/options/tracing"
)

var _ app.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// CacheOptions contains embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// EvidenceOptions contains retrieval and generation settings.
	EvidenceOptions *evidenceopts.Options `json:"evidence" mapstructure:"evidence"`

	// MiddlewareOptions contains metrics, pprof and Swagger endpoint configuration.
	MiddlewareOptions *mwopts.Options `json:"middleware" mapstructure:"middleware"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8000"

	tracingOpts := tracingopts.NewOptions()
	tracingOpts.ServiceName = evidencesvc.Name

	return &ServerOptions{
		HTTPOptions:       httpOpts,
		LogOptions:        logopts.NewOptions(),
		TracingOptions:    tracingOpts,
		CacheOptions:      cacheopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		EvidenceOptions:   evidenceopts.NewOptions(),
		MiddlewareOptions: mwopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss app.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.EvidenceOptions.AddFlags(fss.FlagSet("evidence"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"))

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.EvidenceOptions.Complete(); err != nil {
		return fmt.Errorf("evidence: %w", err)
	}
	if err := o.MiddlewareOptions.Complete(); err != nil {
		return fmt.Errorf("middleware: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.EvidenceOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds an evidencesvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*evidencesvc.Config, error) {
	return &evidencesvc.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		TracingOptions:    o.TracingOptions,
		CacheOptions:      o.CacheOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		ChatOptions:       o.ChatOptions,
		EvidenceOptions:   o.EvidenceOptions,
		MiddlewareOptions: o.MiddlewareOptions,
	}, nil
}
