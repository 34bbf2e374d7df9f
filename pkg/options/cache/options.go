// Package cache provides embedding cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
	redisopts "github.com/kart-io/evidence-x/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options 向量缓存配置。
// Backend 为 redis 但连接失败时，服务降级为进程内缓存。
type Options struct {
	// Backend 缓存后端（memory, redis）。
	Backend string `json:"backend" mapstructure:"backend"`

	// TTL Redis 缓存过期时间，0 表示不过期。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix Redis 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 创建默认缓存配置。
func NewOptions() *Options {
	return &Options{
		Backend:   BackendMemory,
		TTL:       24 * time.Hour,
		KeyPrefix: "evidence:emb:",
		Redis:     redisopts.NewOptions(),
	}
}

// UseRedis reports whether the Redis backend is selected.
func (o *Options) UseRedis() bool {
	return o != nil && o.Backend == BackendRedis
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "cache."

	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Embedding cache backend (memory, redis).")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Embedding cache TTL for the redis backend; 0 disables expiry.")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Embedding cache key prefix.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, append(prefixes, "cache")...)
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendMemory:
	case BackendRedis:
		errs = append(errs, o.Redis.Validate()...)
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q, got %q", BackendMemory, BackendRedis, o.Backend))
	}
	if o.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative"))
	}
	return errs
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.Backend == "" {
		o.Backend = BackendMemory
	}
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
