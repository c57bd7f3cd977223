package config

import (
	"fmt"
	"os"
	"sync"
)

// ProviderType selects the wire protocol a provider speaks.
type ProviderType string

const (
	// ProviderTypeOpenAICompatible covers OpenAI itself and every vendor that
	// exposes the Chat Completions API (DeepSeek, Qwen, Ollama, Gemini's
	// OpenAI endpoint).
	ProviderTypeOpenAICompatible ProviderType = "openai-compatible"
	// ProviderTypeAnthropic is the Anthropic Messages API.
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// IsValid checks if the provider type is known.
func (t ProviderType) IsValid() bool {
	return t == ProviderTypeOpenAICompatible || t == ProviderTypeAnthropic
}

// ProviderConfig describes one configured LLM backend. Model, BaseURL and
// APIKey come from the environment (<PREFIX>_MODEL, <PREFIX>_BASE_URL,
// <PREFIX>_API_KEY); Type and the default model are fixed per provider name.
type ProviderConfig struct {
	Name    string
	Type    ProviderType
	Model   string
	BaseURL string // empty = SDK default endpoint
	APIKey  string
}

// KeyConfigured reports whether an API key is present. Ollama runs without
// one, so an empty key is not a validation error by itself.
func (p *ProviderConfig) KeyConfigured() bool {
	return p.APIKey != ""
}

// providerDefaults fixes the closed provider set: env prefix, protocol and
// fallback model for each known provider name.
var providerDefaults = []struct {
	name         string
	envPrefix    string
	providerType ProviderType
	defaultModel string
}{
	{"openai", "OPENAI", ProviderTypeOpenAICompatible, "gpt-4o"},
	{"claude", "CLAUDE", ProviderTypeAnthropic, "claude-3-7-sonnet-latest"},
	{"google", "GOOGLE", ProviderTypeOpenAICompatible, "gemini-2.0-flash"},
	{"qwen", "QWEN", ProviderTypeOpenAICompatible, "qwen-max"},
	{"deepseek", "DEEPSEEK", ProviderTypeOpenAICompatible, "deepseek-chat"},
	{"ollama", "OLLAMA", ProviderTypeOpenAICompatible, "llama3.1"},
}

// loadProviders builds the provider set from the environment.
func loadProviders() map[string]*ProviderConfig {
	providers := make(map[string]*ProviderConfig, len(providerDefaults))
	for _, d := range providerDefaults {
		model := os.Getenv(d.envPrefix + "_MODEL")
		if model == "" {
			model = d.defaultModel
		}
		providers[d.name] = &ProviderConfig{
			Name:    d.name,
			Type:    d.providerType,
			Model:   model,
			BaseURL: os.Getenv(d.envPrefix + "_BASE_URL"),
			APIKey:  os.Getenv(d.envPrefix + "_API_KEY"),
		}
	}
	return providers
}

// ProviderRegistry stores provider configurations in memory with thread-safe access.
type ProviderRegistry struct {
	providers map[string]*ProviderConfig
	mu        sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(providers map[string]*ProviderConfig) *ProviderRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*ProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &ProviderRegistry{providers: copied}
}

// Get retrieves a provider configuration by name (thread-safe).
func (r *ProviderRegistry) Get(name string) (*ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// GetAll returns all provider configurations (thread-safe, returns copy).
func (r *ProviderRegistry) GetAll() map[string]*ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*ProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Has checks if a provider exists in the registry (thread-safe).
func (r *ProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.providers[name]
	return exists
}

// Len returns the number of providers in the registry (thread-safe).
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
