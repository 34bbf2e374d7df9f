package middleware

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
)

// MetricsOptions defines metrics options.
type MetricsOptions struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// NewMetricsOptions creates default metrics options.
func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "evidence",
		Subsystem: "http",
	}
}

// AddFlags adds flags for metrics options to the specified FlagSet.
func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "metrics."

	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Expose Prometheus metrics.")
	fs.StringVar(&o.Path, p+"path", o.Path, "Metrics endpoint path.")
	fs.StringVar(&o.Namespace, p+"namespace", o.Namespace, "Metrics namespace.")
	fs.StringVar(&o.Subsystem, p+"subsystem", o.Subsystem, "Metrics subsystem for HTTP request metrics.")
}

// Validate validates the metrics options.
func (o *MetricsOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	if !strings.HasPrefix(o.Path, "/") {
		errs = append(errs, errors.New("middleware.metrics.path must start with /"))
	}
	if o.Namespace == "" {
		errs = append(errs, errors.New("middleware.metrics.namespace is required"))
	}
	return errs
}
