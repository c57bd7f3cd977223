package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
)

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read provider settings from the environment
//  2. Read kernel defaults from the environment, backfilled via mergo
//  3. Resolve role-to-provider bindings
//  4. Validate all configuration
//  5. Return Config ready for use
func Initialize(_ context.Context) (*Config, error) {
	log := slog.Default()
	log.Info("Initializing configuration")

	settings := settingsFromEnv()
	if err := mergo.Merge(&settings, DefaultSettings()); err != nil {
		return nil, fmt.Errorf("failed to merge default settings: %w", err)
	}

	providers := loadProviders()

	roleProviders := make(map[Role]string, len(defaultRoleProviders))
	for role, def := range defaultRoleProviders {
		name := os.Getenv(roleProviderEnv[role])
		if name == "" {
			name = def
		}
		roleProviders[role] = name
	}

	cfg := &Config{
		Defaults:      settings,
		Providers:     NewProviderRegistry(providers),
		RoleProviders: roleProviders,
		System: SystemConfig{
			DatabaseURL:        os.Getenv("DATABASE_URL"),
			TavilyAPIKey:       os.Getenv("TAVILY_API_KEY"),
			FileBaseURL:        os.Getenv("AGENT_FILE_BASE_URL"),
			DocumentServiceURL: os.Getenv("DOCUMENT_SERVICE_URL"),
			DisableArtifacts:   envBool("DISABLE_MD_FILE_GENERATION"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"providers", stats.Providers,
		"agents", stats.Agents,
		"workers", stats.Workers)

	return cfg, nil
}

// validate checks cross-references and value ranges.
func validate(cfg *Config) error {
	for agent, provider := range AgentProviderMap {
		if !cfg.Providers.Has(provider) {
			return NewValidationError("agent", agent, "provider",
				fmt.Errorf("%w: %s", ErrProviderNotFound, provider))
		}
	}
	for role, provider := range cfg.RoleProviders {
		if !cfg.Providers.Has(provider) {
			return NewValidationError("role", string(role), "provider",
				fmt.Errorf("%w: %s", ErrProviderNotFound, provider))
		}
	}
	for name, p := range cfg.Providers.GetAll() {
		if !p.Type.IsValid() {
			return NewValidationError("provider", name, "type", ErrInvalidValue)
		}
		if p.Model == "" {
			return NewValidationError("provider", name, "model", ErrMissingRequiredField)
		}
	}
	d := cfg.Defaults
	if d.RecursionLimit <= 0 {
		return NewValidationError("defaults", "recursion_limit", "", ErrInvalidValue)
	}
	if d.EventCapacity <= 0 {
		return NewValidationError("defaults", "event_capacity", "", ErrInvalidValue)
	}
	if d.ToolTimeout <= 0 {
		return NewValidationError("defaults", "tool_timeout", "", ErrInvalidValue)
	}
	if d.MaxAgentSteps <= 0 {
		return NewValidationError("defaults", "max_agent_steps", "", ErrInvalidValue)
	}
	return nil
}
