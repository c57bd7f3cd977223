package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/fusionworks/fusionai/pkg/config"
)

// AgentInfo is one row of GET /api/config/agents.
type AgentInfo struct {
	Agent         string `json:"agent"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	KeyConfigured bool   `json:"key_configured"`
}

// ProviderInfo is one row of GET /api/config/providers. API keys are never
// exposed, only their presence.
type ProviderInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Model         string `json:"model"`
	BaseURL       string `json:"base_url,omitempty"`
	KeyConfigured bool   `json:"key_configured"`
}

// agentsHandler handles GET /api/config/agents.
func (s *Server) agentsHandler(c *gin.Context) {
	agents := []string{config.NodeCoordinator, config.NodePlanner, config.NodeSupervisor}
	agents = append(agents, config.TeamMembers...)

	out := make([]AgentInfo, 0, len(agents))
	for _, agent := range agents {
		p, err := s.cfg.ProviderForAgent(agent)
		if err != nil {
			s.log.Warn("No provider for agent", "agent", agent, "error", err)
			continue
		}
		out = append(out, AgentInfo{
			Agent:         agent,
			Provider:      p.Name,
			Model:         p.Model,
			KeyConfigured: p.KeyConfigured(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

// providersHandler handles GET /api/config/providers.
func (s *Server) providersHandler(c *gin.Context) {
	all := s.cfg.Providers.GetAll()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ProviderInfo, 0, len(all))
	for _, name := range names {
		p := all[name]
		out = append(out, ProviderInfo{
			Name:          p.Name,
			Type:          string(p.Type),
			Model:         p.Model,
			BaseURL:       p.BaseURL,
			KeyConfigured: p.KeyConfigured(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}
