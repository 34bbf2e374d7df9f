// Package middleware provides options for the optional HTTP endpoints:
// Prometheus metrics, pprof and the Swagger UI.
package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options groups the optional endpoint options.
type Options struct {
	Metrics *MetricsOptions `json:"metrics" mapstructure:"metrics"`
	Pprof   *PprofOptions   `json:"pprof" mapstructure:"pprof"`
	Swagger *SwaggerOptions `json:"swagger" mapstructure:"swagger"`
}

// NewOptions creates default options. Metrics are on, pprof and Swagger off.
func NewOptions() *Options {
	return &Options{
		Metrics: NewMetricsOptions(),
		Pprof:   NewPprofOptions(),
		Swagger: NewSwaggerOptions(),
	}
}

// AddFlags adds flags for all optional endpoints under "middleware.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefixes = append(prefixes, "middleware")
	o.Metrics.AddFlags(fs, prefixes...)
	o.Pprof.AddFlags(fs, prefixes...)
	o.Swagger.AddFlags(fs, prefixes...)
}

// Validate validates all optional endpoint options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	errs = append(errs, o.Metrics.Validate()...)
	errs = append(errs, o.Pprof.Validate()...)
	errs = append(errs, o.Swagger.Validate()...)
	return errs
}

// Complete completes all optional endpoint options.
func (o *Options) Complete() error {
	if o.Metrics == nil {
		o.Metrics = NewMetricsOptions()
	}
	if o.Pprof == nil {
		o.Pprof = NewPprofOptions()
	}
	if o.Swagger == nil {
		o.Swagger = NewSwaggerOptions()
	}
	return nil
}
