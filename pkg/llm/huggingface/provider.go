// Package huggingface 提供 HuggingFace Inference API 供应商实现。
// Embedding 走 feature-extraction 管道，生成走 text-generation 模型接口。
package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/evidence-x/pkg/llm"
	"github.com/kart-io/evidence-x/pkg/utils/httpclient"
	"github.com/kart-io/evidence-x/pkg/utils/json"
)

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config HuggingFace 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey HuggingFace API Token。
	APIKey string `json:"-" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型 ID。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于生成的模型 ID。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`

	// WaitForModel 如果模型正在加载，是否等待。
	WaitForModel bool `json:"wait_for_model" mapstructure:"wait_for_model"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api-inference.huggingface.co",
		EmbedModel:   "sentence-transformers/all-MiniLM-L6-v2",
		ChatModel:    "mistralai/Mistral-7B-Instruct-v0.2",
		Timeout:      120 * time.Second,
		MaxRetries:   3,
		WaitForModel: true,
	}
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 HuggingFace 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["wait_for_model"].(bool); ok {
		cfg.WaitForModel = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type waitOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

func (p *Provider) waitOptions() *waitOptions {
	if !p.config.WaitForModel {
		return nil
	}
	return &waitOptions{WaitForModel: true}
}

type embeddingRequest struct {
	Inputs  []string     `json:"inputs"`
	Options *waitOptions `json:"options,omitempty"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var raw json.RawMessage
	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", p.config.BaseURL, p.config.EmbedModel)
	err := p.client.PostJSON(ctx, url, embeddingRequest{
		Inputs:  texts,
		Options: p.waitOptions(),
	}, &raw, p.setHeaders)
	if err != nil {
		return nil, err
	}

	embeddings, err := decodeEmbeddings(raw)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("huggingface: 返回 %d 条向量，期望 %d 条", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// decodeEmbeddings 解析 [][]float32；token 级别的 [][][]float32 取平均。
func decodeEmbeddings(raw []byte) ([][]float32, error) {
	var embeddings [][]float32
	err := json.Unmarshal(raw, &embeddings)
	if err == nil {
		return embeddings, nil
	}

	var tokenEmbeddings [][][]float32
	if err2 := json.Unmarshal(raw, &tokenEmbeddings); err2 != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	embeddings = make([][]float32, len(tokenEmbeddings))
	for i, tokens := range tokenEmbeddings {
		if len(tokens) == 0 {
			continue
		}
		mean := make([]float32, len(tokens[0]))
		for _, token := range tokens {
			for j, v := range token {
				if j < len(mean) {
					mean[j] += v
				}
			}
		}
		for j := range mean {
			mean[j] /= float32(len(tokens))
		}
		embeddings[i] = mean
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type generationRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters *generationParams `json:"parameters,omitempty"`
	Options    *waitOptions      `json:"options,omitempty"`
}

// 温度为 0 时关闭采样（贪心解码），接口不接受 temperature=0。
type generationParams struct {
	MaxNewTokens   int      `json:"max_new_tokens,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	DoSample       bool     `json:"do_sample"`
	ReturnFullText bool     `json:"return_full_text"`
}

type generationResponse struct {
	GeneratedText string `json:"generated_text"`
}

func buildParams(opts []llm.GenerateOption) *generationParams {
	o := llm.ApplyGenerateOptions(opts...)
	params := &generationParams{MaxNewTokens: o.MaxTokens}
	if o.Temperature != nil && *o.Temperature > 0 {
		params.Temperature = o.Temperature
		params.DoSample = true
	}
	return params
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	resp, err := p.generate(ctx, formatMessages(messages), opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string, opts ...llm.GenerateOption) (*llm.GenerateResponse, error) {
	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return p.generate(ctx, formatMessages(messages), opts)
}

func (p *Provider) generate(ctx context.Context, prompt string, opts []llm.GenerateOption) (*llm.GenerateResponse, error) {
	var responses []generationResponse
	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, p.config.ChatModel)
	err := p.client.PostJSON(ctx, url, generationRequest{
		Inputs:     prompt,
		Parameters: buildParams(opts),
		Options:    p.waitOptions(),
	}, &responses, p.setHeaders)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("未返回响应内容")
	}
	return &llm.GenerateResponse{Content: strings.TrimSpace(responses[0].GeneratedText)}, nil
}

// formatMessages 将消息格式化为 Mistral 指令模板。
func formatMessages(messages []llm.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem, llm.RoleUser:
			fmt.Fprintf(&b, "[INST] %s [/INST]\n", msg.Content)
		case llm.RoleAssistant:
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
}
