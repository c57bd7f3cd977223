package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults groups the tunable knobs of the orchestration kernel. Zero values
// in the env-derived struct are backfilled from DefaultSettings via mergo.
type Defaults struct {
	// RecursionLimit caps graph transitions per task. The only defense
	// against a supervisor that oscillates forever.
	RecursionLimit int

	// EventCapacity is the bounded event channel depth per task.
	EventCapacity int

	// ToolTimeout bounds each individual tool invocation.
	ToolTimeout time.Duration

	// MaxAgentSteps caps reason-act iterations within one worker turn.
	MaxAgentSteps int

	// CoordinatorCacheSize is how many coordinator chunks are buffered before
	// the stream is considered safe to forward to the client.
	CoordinatorCacheSize int

	// ArtifactRoot is the directory that task directories are created under.
	ArtifactRoot string

	// TavilyMaxResults caps web_search results.
	TavilyMaxResults int

	// DisableLLMRetry turns off the gateway's retry-on-transient-failure
	// wrapper around every backend.
	DisableLLMRetry bool
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Defaults {
	return Defaults{
		RecursionLimit:       50,
		EventCapacity:        64,
		ToolTimeout:          60 * time.Second,
		MaxAgentSteps:        10,
		CoordinatorCacheSize: 2,
		ArtifactRoot:         "docs/executions",
		TavilyMaxResults:     5,
	}
}

// settingsFromEnv reads overrides from the environment, leaving zero values
// where unset so the defaults merge can backfill them.
func settingsFromEnv() Defaults {
	return Defaults{
		RecursionLimit:       envInt("RECURSION_LIMIT"),
		EventCapacity:        envInt("EVENT_CHANNEL_CAPACITY"),
		ToolTimeout:          envDuration("TOOL_TIMEOUT"),
		MaxAgentSteps:        envInt("MAX_AGENT_STEPS"),
		CoordinatorCacheSize: envInt("COORDINATOR_CACHE_SIZE"),
		ArtifactRoot:         os.Getenv("ARTIFACT_ROOT"),
		TavilyMaxResults:     envInt("TAVILY_MAX_RESULTS"),
		DisableLLMRetry:      envBool("DISABLE_LLM_RETRY"),
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
