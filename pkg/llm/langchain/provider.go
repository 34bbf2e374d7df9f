// Package langchain 通过 langchaingo 适配 LLM 后端。
// backend 可选 openai（含兼容服务，如 OpenRouter、Groq）或 ollama。
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kart-io/evidence-x/pkg/llm"
)

const ProviderName = "langchain"

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config langchain 供应商配置。
type Config struct {
	Backend    string `json:"backend" mapstructure:"backend"`
	BaseURL    string `json:"base_url" mapstructure:"base_url"`
	APIKey     string `json:"-" mapstructure:"api_key"`
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string `json:"chat_model" mapstructure:"chat_model"`
	BatchSize  int    `json:"batch_size" mapstructure:"batch_size"`
}

// Provider 基于 langchaingo 的供应商实现。
type Provider struct {
	config   *Config
	embedder embeddings.Embedder
	model    llms.Model
}

// NewProvider 从配置 map 创建供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := &Config{Backend: BackendOpenAI, BatchSize: 64}

	if v, ok := configMap["backend"].(string); ok && v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = strings.TrimPrefix(v, "Bearer ")
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["batch_size"].(int); ok && v > 0 {
		cfg.BatchSize = v
	}

	return NewProviderWithConfig(cfg)
}

// NewProviderWithConfig 使用结构化配置创建供应商。
// Embedding 和 Chat 各自持有一个后端客户端，模型可以不同。
func NewProviderWithConfig(cfg *Config) (*Provider, error) {
	embedClient, err := newClient(cfg, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("langchain: 初始化 embedding 客户端失败: %w", err)
	}
	chatClient, err := newClient(cfg, cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("langchain: 初始化 chat 客户端失败: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedClient, embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("langchain: 创建 embedder 失败: %w", err)
	}

	return &Provider{config: cfg, embedder: embedder, model: chatClient}, nil
}

// client 同时满足 llms.Model 和 embeddings.EmbedderClient。
type client interface {
	llms.Model
	embeddings.EmbedderClient
}

func newClient(cfg *Config, model string) (client, error) {
	switch cfg.Backend {
	case BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api_key 是必需的")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if model != "" {
			opts = append(opts, openai.WithModel(model), openai.WithEmbeddingModel(model))
		}
		return openai.New(opts...)
	case BackendOllama:
		var opts []ollama.Option
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		if model != "" {
			opts = append(opts, ollama.WithModel(model))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("不支持的 backend: %s", cfg.Backend)
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("langchain: 返回 %d 条向量，期望 %d 条", len(vecs), len(texts))
	}
	return vecs, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return p.embedder.EmbedQuery(ctx, text)
}

func callOptions(opts []llm.GenerateOption) []llms.CallOption {
	o := llm.ApplyGenerateOptions(opts...)
	var out []llms.CallOption
	if o.Temperature != nil {
		out = append(out, llms.WithTemperature(*o.Temperature))
	}
	if o.MaxTokens > 0 {
		out = append(out, llms.WithMaxTokens(o.MaxTokens))
	}
	return out
}

func toMessageContent(messages []llm.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

func (p *Provider) generate(ctx context.Context, messages []llm.Message, opts []llm.GenerateOption) (*llms.ContentChoice, error) {
	resp, err := p.model.GenerateContent(ctx, toMessageContent(messages), callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("未返回响应内容")
	}
	return resp.Choices[0], nil
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	choice, err := p.generate(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	return choice.Content, nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string, opts ...llm.GenerateOption) (*llm.GenerateResponse, error) {
	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	choice, err := p.generate(ctx, messages, opts)
	if err != nil {
		return nil, err
	}

	out := &llm.GenerateResponse{Content: choice.Content}
	if usage := tokenUsage(choice.GenerationInfo); usage != nil {
		out.TokenUsage = usage
	}
	return out, nil
}

// tokenUsage 读取 openai 后端在 GenerationInfo 中返回的 token 统计。
func tokenUsage(info map[string]any) *llm.TokenUsage {
	prompt, ok1 := info["PromptTokens"].(int)
	completion, ok2 := info["CompletionTokens"].(int)
	if !ok1 || !ok2 {
		return nil
	}
	total, _ := info["TotalTokens"].(int)
	return &llm.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}
