package llm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fusionworks/fusionai/pkg/config"
)

// Gateway resolves agents and capability roles to provider-backed clients.
// Backends are constructed lazily and cached per provider name, so every
// agent bound to the same provider shares one underlying SDK client.
type Gateway struct {
	cfg *config.Config

	mu       sync.Mutex
	backends map[string]Client

	// build constructs a backend for a provider. Overridable in tests.
	build func(p *config.ProviderConfig) (Client, error)
}

// NewGateway creates a gateway over the configured providers.
func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{
		cfg:      cfg,
		backends: make(map[string]Client),
		build:    newBackend,
	}
}

// ForAgent returns the client for a graph node or worker name.
func (g *Gateway) ForAgent(agent string) (Client, error) {
	p, err := g.cfg.ProviderForAgent(agent)
	if err != nil {
		return nil, err
	}
	return g.clientFor(p)
}

// ForRole returns the client for a capability role.
func (g *Gateway) ForRole(role config.Role) (Client, error) {
	p, err := g.cfg.ProviderForRole(role)
	if err != nil {
		return nil, err
	}
	return g.clientFor(p)
}

func (g *Gateway) clientFor(p *config.ProviderConfig) (Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.backends[p.Name]; ok {
		return c, nil
	}

	inner, err := g.build(p)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend for provider %s: %w", p.Name, err)
	}

	c := inner
	if !g.cfg.Defaults.DisableLLMRetry {
		c = withRetry(inner)
	}
	g.backends[p.Name] = c

	slog.Debug("LLM backend initialized", "provider", p.Name, "type", p.Type, "model", p.Model)
	return c, nil
}

// newBackend selects the SDK adapter for a provider type.
func newBackend(p *config.ProviderConfig) (Client, error) {
	switch p.Type {
	case config.ProviderTypeAnthropic:
		return newAnthropicBackend(p), nil
	case config.ProviderTypeOpenAICompatible:
		return newOpenAICompatBackend(p), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", p.Type)
	}
}
