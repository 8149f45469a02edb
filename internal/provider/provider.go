package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/MEKXH/mason/internal/config"
)

type providerName string

const (
	providerOpenRouter providerName = "openrouter"
	providerClaude     providerName = "claude"
	providerOpenAI     providerName = "openai"
	providerDeepSeek   providerName = "deepseek"
	providerOllama     providerName = "ollama"
)

// NewChatModel creates a ChatModel based on configuration
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	name, p, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}
	d := cfg.Agents.Defaults

	switch name {
	case providerOpenRouter:
		return newOpenRouterModel(ctx, p, d)
	case providerClaude:
		return newClaudeModel(ctx, p, d)
	case providerOpenAI:
		return newOpenAIModel(ctx, p, d)
	case providerDeepSeek:
		return newDeepSeekModel(ctx, p, d)
	case providerOllama:
		return newOllamaModel(ctx, p, d)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// providerFromModel maps a "vendor/model" prefix to a provider.
func providerFromModel(modelName string) providerName {
	prefix, _, ok := strings.Cut(modelName, "/")
	if !ok {
		return ""
	}
	switch strings.ToLower(prefix) {
	case "openai":
		return providerOpenAI
	case "anthropic", "claude":
		return providerClaude
	case "deepseek":
		return providerDeepSeek
	case "ollama":
		return providerOllama
	case "openrouter":
		return providerOpenRouter
	default:
		return ""
	}
}

// resolveProvider picks the provider for the configured model. A provider
// implied by the model prefix wins when it has credentials; otherwise the
// first configured provider in a fixed order is used.
func resolveProvider(cfg *config.Config) (providerName, config.ProviderConfig, error) {
	p := cfg.Providers

	if name := providerFromModel(cfg.Agents.Defaults.Model); name != "" {
		pc, ok := providerConfig(p, name)
		if ok {
			return name, pc, nil
		}
		if name == providerOllama {
			return "", config.ProviderConfig{}, fmt.Errorf("model %q needs providers.ollama.base_url", cfg.Agents.Defaults.Model)
		}
	}

	order := []providerName{providerOpenRouter, providerClaude, providerOpenAI, providerDeepSeek, providerOllama}
	for _, name := range order {
		if pc, ok := providerConfig(p, name); ok {
			return name, pc, nil
		}
	}
	return "", config.ProviderConfig{}, fmt.Errorf("no provider configured: set api_key for at least one provider")
}

func providerConfig(p config.ProvidersConfig, name providerName) (config.ProviderConfig, bool) {
	switch name {
	case providerOpenRouter:
		return p.OpenRouter, p.OpenRouter.APIKey != ""
	case providerClaude:
		return p.Claude, p.Claude.APIKey != ""
	case providerOpenAI:
		return p.OpenAI, p.OpenAI.APIKey != ""
	case providerDeepSeek:
		return p.DeepSeek, p.DeepSeek.APIKey != ""
	case providerOllama:
		return p.Ollama, p.Ollama.BaseURL != ""
	default:
		return config.ProviderConfig{}, false
	}
}

func newOpenRouterModel(ctx context.Context, p config.ProviderConfig, d config.AgentDefaults) (model.ChatModel, error) {
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:       d.Model,
		APIKey:      p.APIKey,
		BaseURL:     "https://openrouter.ai/api/v1",
		Temperature: toFloat32Ptr(d.Temperature),
		MaxTokens:   toIntPtr(d.MaxTokens),
	})
}

func newClaudeModel(ctx context.Context, p config.ProviderConfig, d config.AgentDefaults) (model.ChatModel, error) {
	cc := &claude.Config{
		APIKey:      p.APIKey,
		Model:       modelSuffix(d.Model),
		MaxTokens:   d.MaxTokens,
		Temperature: toFloat32Ptr(d.Temperature),
	}
	if p.BaseURL != "" {
		cc.BaseURL = &p.BaseURL
	}
	return claude.NewChatModel(ctx, cc)
}

func newOpenAIModel(ctx context.Context, p config.ProviderConfig, d config.AgentDefaults) (model.ChatModel, error) {
	cfg := &openai.ChatModelConfig{
		Model:       modelSuffix(d.Model),
		APIKey:      p.APIKey,
		Temperature: toFloat32Ptr(d.Temperature),
		MaxTokens:   toIntPtr(d.MaxTokens),
	}
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	return openai.NewChatModel(ctx, cfg)
}

func newDeepSeekModel(ctx context.Context, p config.ProviderConfig, d config.AgentDefaults) (model.ChatModel, error) {
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:       modelSuffix(d.Model),
		APIKey:      p.APIKey,
		BaseURL:     "https://api.deepseek.com/v1",
		Temperature: toFloat32Ptr(d.Temperature),
		MaxTokens:   toIntPtr(d.MaxTokens),
	})
}

func newOllamaModel(ctx context.Context, p config.ProviderConfig, d config.AgentDefaults) (model.ChatModel, error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   modelSuffix(d.Model),
	})
}

// modelSuffix strips the vendor prefix. OpenRouter keeps the full name, so
// it does not go through here.
func modelSuffix(modelName string) string {
	if _, suffix, ok := strings.Cut(modelName, "/"); ok {
		return suffix
	}
	return modelName
}

func toFloat32Ptr(f float64) *float32 {
	v := float32(f)
	return &v
}

func toIntPtr(i int) *int {
	return &i
}
