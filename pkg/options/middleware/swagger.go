package middleware

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
)

// SwaggerOptions defines Swagger UI options.
type SwaggerOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// NewSwaggerOptions creates default Swagger options.
func NewSwaggerOptions() *SwaggerOptions {
	return &SwaggerOptions{Path: "/swagger"}
}

// AddFlags adds flags for Swagger options to the specified FlagSet.
func (o *SwaggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "swagger."

	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Serve the Swagger UI.")
	fs.StringVar(&o.Path, p+"path", o.Path, "Swagger UI path prefix.")
}

// Validate validates the Swagger options.
func (o *SwaggerOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	if !strings.HasPrefix(o.Path, "/") || strings.HasSuffix(o.Path, "/") {
		return []error{errors.New("middleware.swagger.path must start with / and not end with /")}
	}
	return nil
}
