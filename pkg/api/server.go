// Package api is the HTTP edge: a gin server exposing the chat stream over
// Server-Sent Events plus read-only configuration introspection.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/version"
	"github.com/fusionworks/fusionai/pkg/workflow"
)

// WorkflowRunner starts one workflow run. *workflow.Orchestrator satisfies it.
type WorkflowRunner interface {
	Run(ctx context.Context, messages []llm.Message, opts workflow.Options) (<-chan events.Event, error)
}

// Server wires the orchestrator and configuration behind HTTP handlers.
type Server struct {
	workflows WorkflowRunner
	cfg       *config.Config
	log       *slog.Logger
}

// NewServer creates the API server.
func NewServer(workflows WorkflowRunner, cfg *config.Config) *Server {
	return &Server{
		workflows: workflows,
		cfg:       cfg,
		log:       slog.Default().With("component", "api"),
	}
}

// Router builds the gin engine with all routes and middleware registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), securityHeaders(), corsHeaders())

	r.GET("/api/health", s.healthHandler)

	api := r.Group("/api")
	{
		api.POST("/chat/stream", s.chatStreamHandler)
		api.GET("/config/agents", s.agentsHandler)
		api.GET("/config/providers", s.providersHandler)
	}
	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.cfg.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   version.Full(),
		"providers": stats.Providers,
		"workers":   stats.Workers,
	})
}
