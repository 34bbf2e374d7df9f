// Package evidence provides the retrieval pipeline configuration options.
package evidence

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/evidence-x/pkg/options"
	"github.com/kart-io/evidence-x/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// Options 检索与问答流水线配置。
type Options struct {
	// TopK 每次检索返回的证据数，小于 1 时按 1 处理。
	TopK int `json:"top-k" mapstructure:"top-k" validate:"gte=1,lte=100"`

	// MinChunkLength 句子去除首尾空白后的字符数必须严格大于该值才会成为分块。
	MinChunkLength int `json:"min-chunk-length" mapstructure:"min-chunk-length" validate:"gte=0"`

	// HighThreshold / MediumThreshold 置信度与匹配度标签阈值（百分比）。
	HighThreshold   float64 `json:"high-threshold" mapstructure:"high-threshold" validate:"gt=0,lte=100"`
	MediumThreshold float64 `json:"medium-threshold" mapstructure:"medium-threshold" validate:"gte=0,ltfield=HighThreshold"`

	GenerateTemperature float64 `json:"generate-temperature" mapstructure:"generate-temperature" validate:"gte=0,lte=2"`
	GenerateMaxTokens   int     `json:"generate-max-tokens" mapstructure:"generate-max-tokens" validate:"gt=0"`
	VerifyTemperature   float64 `json:"verify-temperature" mapstructure:"verify-temperature" validate:"gte=0,lte=2"`
	VerifyMaxTokens     int     `json:"verify-max-tokens" mapstructure:"verify-max-tokens" validate:"gt=0"`

	// EmbedTimeout 单次向量化请求（一个批次）的超时。
	EmbedTimeout    time.Duration `json:"embed-timeout" mapstructure:"embed-timeout" validate:"gt=0"`
	GenerateTimeout time.Duration `json:"generate-timeout" mapstructure:"generate-timeout" validate:"gt=0"`
	VerifyTimeout   time.Duration `json:"verify-timeout" mapstructure:"verify-timeout" validate:"gt=0"`
	// RequestTimeout 单个 HTTP 请求的整体时限。
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout" validate:"gt=0"`

	// EmbedBatchSize 单次向量化请求的最大文本数。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size" validate:"gt=0"`

	// MaxUploadSize 单次上传的字节上限。
	MaxUploadSize int64 `json:"max-upload-size" mapstructure:"max-upload-size" validate:"gt=0"`

	// UploadWorkers 并行解析文档的协程数。
	UploadWorkers int `json:"upload-workers" mapstructure:"upload-workers" validate:"gt=0,lte=256"`

	// PromptFile 可选的 YAML 提示词模板文件，为空时使用内置模板。
	PromptFile string `json:"prompt-file" mapstructure:"prompt-file"`
	// WatchPromptFile 监听提示词文件变化并热加载。
	WatchPromptFile bool `json:"watch-prompt-file" mapstructure:"watch-prompt-file"`
}

// NewOptions creates Options with the documented defaults.
func NewOptions() *Options {
	return &Options{
		TopK:                5,
		MinChunkLength:      20,
		HighThreshold:       85,
		MediumThreshold:     70,
		GenerateTemperature: 0.1,
		GenerateMaxTokens:   1500,
		VerifyTemperature:   0,
		VerifyMaxTokens:     300,
		EmbedTimeout:        60 * time.Second,
		GenerateTimeout:     90 * time.Second,
		VerifyTimeout:       45 * time.Second,
		RequestTimeout:      150 * time.Second,
		EmbedBatchSize:      64,
		MaxUploadSize:       32 << 20,
		UploadWorkers:       4,
		WatchPromptFile:     true,
	}
}

// AddFlags adds flags for evidence options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "evidence."

	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of evidence passages retrieved per question.")
	fs.IntVar(&o.MinChunkLength, p+"min-chunk-length", o.MinChunkLength, "Sentences must be longer than this many characters to be indexed.")
	fs.Float64Var(&o.HighThreshold, p+"high-threshold", o.HighThreshold, "Percentage above which a match or confidence is High.")
	fs.Float64Var(&o.MediumThreshold, p+"medium-threshold", o.MediumThreshold, "Percentage above which a match or confidence is Medium.")
	fs.Float64Var(&o.GenerateTemperature, p+"generate-temperature", o.GenerateTemperature, "Sampling temperature for answer generation.")
	fs.IntVar(&o.GenerateMaxTokens, p+"generate-max-tokens", o.GenerateMaxTokens, "Maximum tokens for answer generation.")
	fs.Float64Var(&o.VerifyTemperature, p+"verify-temperature", o.VerifyTemperature, "Sampling temperature for answer verification.")
	fs.IntVar(&o.VerifyMaxTokens, p+"verify-max-tokens", o.VerifyMaxTokens, "Maximum tokens for answer verification.")
	fs.DurationVar(&o.EmbedTimeout, p+"embed-timeout", o.EmbedTimeout, "Timeout for each embedding backend request (one batch of embed-batch-size texts).")
	fs.DurationVar(&o.GenerateTimeout, p+"generate-timeout", o.GenerateTimeout, "Timeout for answer generation.")
	fs.DurationVar(&o.VerifyTimeout, p+"verify-timeout", o.VerifyTimeout, "Timeout for answer verification.")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Overall timeout for one HTTP request.")
	fs.IntVar(&o.EmbedBatchSize, p+"embed-batch-size", o.EmbedBatchSize, "Maximum texts per embedding request.")
	fs.Int64Var(&o.MaxUploadSize, p+"max-upload-size", o.MaxUploadSize, "Maximum total upload size in bytes.")
	fs.IntVar(&o.UploadWorkers, p+"upload-workers", o.UploadWorkers, "Workers extracting uploaded documents in parallel.")
	fs.StringVar(&o.PromptFile, p+"prompt-file", o.PromptFile, "Optional YAML file overriding the prompt templates.")
	fs.BoolVar(&o.WatchPromptFile, p+"watch-prompt-file", o.WatchPromptFile, "Reload the prompt file when it changes on disk.")
}

// Validate validates the evidence options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if verrs := validator.StructWithLang(o, validator.LangEN); verrs.HasErrors() {
		for _, msg := range verrs.Messages() {
			errs = append(errs, fmt.Errorf("evidence: %s", msg))
		}
	}
	if o.PromptFile != "" {
		if _, err := os.Stat(o.PromptFile); err != nil {
			errs = append(errs, fmt.Errorf("evidence.prompt-file: %w", err))
		}
	}
	return errs
}

// Complete completes the evidence options.
func (o *Options) Complete() error {
	if o.TopK < 1 {
		o.TopK = 1
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 64
	}
	if o.UploadWorkers <= 0 {
		o.UploadWorkers = 4
	}
	return nil
}
