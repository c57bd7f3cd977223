package config

// Config is the umbrella configuration object returned by Initialize() and
// passed by reference throughout the application. It is immutable after
// initialization.
type Config struct {
	// Defaults holds the kernel tuning knobs (recursion cap, channel
	// capacity, timeouts).
	Defaults Defaults

	// Providers is the registry of configured LLM backends.
	Providers *ProviderRegistry

	// RoleProviders resolves capability roles (basic/reasoning/vision) to
	// provider names.
	RoleProviders map[Role]string

	// System groups external collaborator settings.
	System SystemConfig
}

// SystemConfig holds settings for external collaborators of the kernel.
type SystemConfig struct {
	// DatabaseURL is the PostgreSQL connection string for the db_analyst
	// tools. Empty disables the database tools.
	DatabaseURL string

	// TavilyAPIKey authenticates web_search calls. Empty disables search.
	TavilyAPIKey string

	// FileBaseURL externalises artifact paths in task_files_json output.
	// Empty falls back to absolute filesystem paths.
	FileBaseURL string

	// DocumentServiceURL is the base URL of the service storing uploaded
	// documents. Empty disables bare file-id document references.
	DocumentServiceURL string

	// DisableArtifacts turns off all markdown file generation.
	DisableArtifacts bool
}

// Stats contains statistics about loaded configuration.
type Stats struct {
	Providers int
	Agents    int
	Workers   int
}

// Stats returns configuration statistics for logging.
func (c *Config) Stats() Stats {
	return Stats{
		Providers: c.Providers.Len(),
		Agents:    len(AgentProviderMap),
		Workers:   len(TeamMembers),
	}
}

// ProviderForAgent resolves the provider configured for a graph node or
// worker name.
func (c *Config) ProviderForAgent(agent string) (*ProviderConfig, error) {
	name, ok := AgentProviderMap[agent]
	if !ok {
		return nil, NewValidationError("agent", agent, "", ErrWorkerNotFound)
	}
	return c.Providers.Get(name)
}

// ProviderForRole resolves the provider configured for a capability role.
func (c *Config) ProviderForRole(role Role) (*ProviderConfig, error) {
	name, ok := c.RoleProviders[role]
	if !ok {
		return nil, NewValidationError("role", string(role), "", ErrProviderNotFound)
	}
	return c.Providers.Get(name)
}
