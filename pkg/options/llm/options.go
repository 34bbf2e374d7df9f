// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（openai, ollama, huggingface, gemini, langchain）。
	Provider string `json:"provider" mapstructure:"provider"`

	// Backend langchain 供应商使用的后端（openai, ollama）。
	Backend string `json:"backend" mapstructure:"backend"`

	// BaseURL API 基础地址，为空时使用供应商默认值。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次 HTTP 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries HTTP 层对 5xx 的重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// RetryAttempts 调用层的最大尝试次数（含首次）。
	RetryAttempts int `json:"retry-attempts" mapstructure:"retry-attempts"`

	// BreakerFailures 连续失败多少次后熔断。
	BreakerFailures int `json:"breaker-failures" mapstructure:"breaker-failures"`

	// BreakerTimeout 熔断后多久进入半开状态。
	BreakerTimeout time.Duration `json:"breaker-timeout" mapstructure:"breaker-timeout"`
}

// NewProviderOptions 创建默认 LLM 供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:        "openai",
		Backend:         "openai",
		Timeout:         120 * time.Second,
		MaxRetries:      1,
		RetryAttempts:   3,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "text-embedding-3-small"
	return opts
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "gpt-4o-mini"
	return opts
}

// ToConfigMap 转换为配置 map，用于供应商工厂。空值不写入，由供应商使用默认值。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	m := map[string]any{
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
	set := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	set("backend", o.Backend)
	set("base_url", o.BaseURL)
	set("api_key", o.APIKey)
	set("embed_model", o.Model)
	set("chat_model", o.Model)
	set("organization", o.Organization)
	return m
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
// prefixes 决定配置段，例如 "embedding" 或 "chat"。
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)

	fs.StringVar(&o.Provider, p+"provider", o.Provider, "LLM provider (openai, ollama, huggingface, gemini, langchain).")
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Backend used by the langchain provider (openai, ollama).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "LLM API base URL; empty uses the provider default.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "LLM HTTP request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "HTTP-level retries on 5xx responses.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "LLM organization ID (optional).")
	fs.IntVar(&o.RetryAttempts, p+"retry-attempts", o.RetryAttempts, "Maximum attempts per model call, including the first.")
	fs.IntVar(&o.BreakerFailures, p+"breaker-failures", o.BreakerFailures, "Consecutive failures before the circuit breaker opens.")
	fs.DurationVar(&o.BreakerTimeout, p+"breaker-timeout", o.BreakerTimeout, "How long the circuit breaker stays open.")
}

// Validate validates the LLM provider options.
// 缺少 API 密钥不是配置错误：服务照常启动，相关调用返回未配置错误。
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max-retries must not be negative"))
	}
	if o.BreakerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("breaker-timeout must be positive"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 1
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 5
	}
	if o.APIKey == "" {
		o.APIKey = apiKeyFromEnv(o.Provider, o.Backend)
	}
	return nil
}

// apiKeyEnv lists the environment variables consulted, in order, when no
// api-key is configured. OpenAI-compatible endpoints such as Groq reuse the
// openai provider.
var apiKeyEnv = map[string][]string{
	"openai":      {"OPENAI_API_KEY", "GROQ_API_KEY"},
	"huggingface": {"HUGGINGFACE_API_KEY", "HF_TOKEN"},
	"gemini":      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

func apiKeyFromEnv(provider, backend string) string {
	name := provider
	if provider == "langchain" {
		name = backend
	}
	for _, key := range apiKeyEnv[name] {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
