package middleware

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
)

// PprofOptions defines pprof options.
type PprofOptions struct {
	Enabled              bool   `json:"enabled" mapstructure:"enabled"`
	Prefix               string `json:"prefix" mapstructure:"prefix"`
	BlockProfileRate     int    `json:"block-profile-rate" mapstructure:"block-profile-rate"`
	MutexProfileFraction int    `json:"mutex-profile-fraction" mapstructure:"mutex-profile-fraction"`
}

// NewPprofOptions creates default pprof options.
func NewPprofOptions() *PprofOptions {
	return &PprofOptions{
		Enabled: false,
		Prefix:  "/debug/pprof",
	}
}

// AddFlags adds flags for pprof options to the specified FlagSet.
func (o *PprofOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "pprof."

	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Expose pprof endpoints.")
	fs.StringVar(&o.Prefix, p+"prefix", o.Prefix, "Pprof URL prefix.")
	fs.IntVar(&o.BlockProfileRate, p+"block-profile-rate", o.BlockProfileRate, "Block profile rate; 0 leaves it off.")
	fs.IntVar(&o.MutexProfileFraction, p+"mutex-profile-fraction", o.MutexProfileFraction, "Mutex profile fraction; 0 leaves it off.")
}

// Validate validates the pprof options.
func (o *PprofOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	if !strings.HasPrefix(o.Prefix, "/") {
		errs = append(errs, errors.New("middleware.pprof.prefix must start with /"))
	}
	if o.BlockProfileRate < 0 || o.MutexProfileFraction < 0 {
		errs = append(errs, errors.New("middleware.pprof profile rates must not be negative"))
	}
	return errs
}
