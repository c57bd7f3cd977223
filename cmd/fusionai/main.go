// FusionAI orchestrator server — exposes the chat workflow over HTTP and
// wires the LLM gateway, tool registries, and artifact store together.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fusionworks/fusionai/pkg/agent"
	"github.com/fusionworks/fusionai/pkg/api"
	"github.com/fusionworks/fusionai/pkg/artifact"
	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/graph"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/tools"
	"github.com/fusionworks/fusionai/pkg/version"
	"github.com/fusionworks/fusionai/pkg/workflow"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "Path to .env file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", *envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8000")
	slog.Info("Starting FusionAI", "version", version.Full(), "http_port", httpPort)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	logStartupInfo(cfg)

	// 2. LLM gateway and artifact store. The title namer uses the basic
	// role so summary naming never depends on a worker's own provider.
	gateway := llm.NewGateway(cfg)

	var titler artifact.TitleNamer
	if basicClient, terr := gateway.ForRole(config.RoleBasic); terr != nil {
		slog.Warn("No basic-role client for title generation, using fallback names", "error", terr)
	} else {
		titler = artifact.NewLLMTitler(basicClient)
	}

	store := artifact.NewStore(artifact.Options{
		Root:        cfg.Defaults.ArtifactRoot,
		Disabled:    cfg.System.DisableArtifacts,
		FileBaseURL: cfg.System.FileBaseURL,
		Titles:      titler,
	})

	// 3. Workers with their tool subsets
	workers, err := buildWorkers(cfg, gateway, store)
	if err != nil {
		slog.Error("Failed to build workers", "error", err)
		os.Exit(1)
	}

	// 4. Graph dependencies and orchestrator
	deps := graph.Deps{
		LLM:      gateway,
		Store:    store,
		Workers:  workers,
		Settings: cfg.Defaults,
	}
	if cfg.System.TavilyAPIKey != "" {
		deps.Search = tools.NewTavilyClient(cfg.System.TavilyAPIKey, cfg.Defaults.TavilyMaxResults)
	}
	orchestrator := workflow.New(deps)

	// 5. HTTP server
	server := api.NewServer(orchestrator, cfg)
	httpServer := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if serr := httpServer.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", serr)
			errCh <- serr
		}
	}()

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case serr := <-errCh:
		slog.Error("Server error triggered shutdown", "error", serr)
	}

	// 7. Graceful shutdown. In-flight SSE streams end when their request
	// contexts are cancelled by the server closing.
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}

// buildWorkers assembles one worker per team member, each with its own tool
// registry.
func buildWorkers(cfg *config.Config, gateway *llm.Gateway, store *artifact.Store) (map[string]graph.WorkerRunner, error) {
	timeout := cfg.Defaults.ToolTimeout
	crawler := tools.NewCrawler()
	documents := tools.NewDocumentFetcher()
	if base := cfg.System.DocumentServiceURL; base != "" {
		documents.ResolveFileID = tools.DocumentServiceResolver(base)
	} else {
		slog.Warn("DOCUMENT_SERVICE_URL not set, bare file-id document references disabled")
	}

	registries := map[string]*tools.Registry{}
	for _, name := range config.TeamMembers {
		registries[name] = tools.NewRegistry(timeout)
	}

	if cfg.System.TavilyAPIKey != "" {
		search := tools.NewTavilyClient(cfg.System.TavilyAPIKey, cfg.Defaults.TavilyMaxResults)
		registries[config.WorkerResearcher].Register(tools.NewSearchTool(search))
	} else {
		slog.Warn("TAVILY_API_KEY not set, web_search disabled")
	}
	registries[config.WorkerResearcher].Register(tools.NewCrawlTool(crawler))

	registries[config.WorkerCoder].Register(tools.NewPythonReplTool())
	registries[config.WorkerCoder].Register(tools.NewShellTool())

	registries[config.WorkerReporter].Register(tools.NewTaskFilesTool(store))

	if cfg.System.DatabaseURL != "" {
		db := tools.NewDBTools(cfg.System.DatabaseURL)
		registries[config.WorkerDBAnalyst].Register(tools.NewDBTableInfoTool(db))
		registries[config.WorkerDBAnalyst].Register(tools.NewDBQueryTool(db))
		registries[config.WorkerDBAnalyst].Register(tools.NewDBRelationsTool(db))
	} else {
		slog.Warn("DATABASE_URL not set, database tools disabled")
	}

	registries[config.WorkerDocumentParser].Register(tools.NewDocumentTool(documents))
	registries[config.WorkerChartGenerator].Register(tools.NewPythonReplTool())

	workers := make(map[string]graph.WorkerRunner, len(config.TeamMembers))
	for _, name := range config.TeamMembers {
		client, err := gateway.ForAgent(name)
		if err != nil {
			return nil, err
		}
		workers[name] = agent.New(agent.Config{
			Name:           name,
			Prompt:         name,
			Client:         client,
			Tools:          registries[name],
			MaxSteps:       cfg.Defaults.MaxAgentSteps,
			FilterThoughts: name == config.WorkerDBAnalyst,
		})
	}
	return workers, nil
}

// logStartupInfo prints the provider/agent configuration summary.
func logStartupInfo(cfg *config.Config) {
	stats := cfg.Stats()
	slog.Info("Configuration loaded",
		"providers", stats.Providers,
		"agents", stats.Agents,
		"workers", stats.Workers)

	for _, p := range cfg.Providers.GetAll() {
		slog.Info("Provider configured",
			"provider", p.Name,
			"type", p.Type,
			"model", p.Model,
			"key_configured", p.KeyConfigured())
	}
	for role, provider := range cfg.RoleProviders {
		slog.Info("Role mapping", "role", role, "provider", provider)
	}
}
