package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fusionworks/fusionai/pkg/artifact"
	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/tools"
)

// End is the terminal routing sentinel.
const End = "__end__"

// ErrRecursionLimit is returned when the engine exceeds its worker-turn
// ceiling. It is the only defense against a supervisor that never finishes.
var ErrRecursionLimit = errors.New("recursion limit exceeded")

// NodeFunc executes one node and returns the name of the next node, or End.
type NodeFunc func(ctx context.Context, st *State, bus *events.Bus) (string, error)

// ClientResolver selects an LLM client per agent or per role.
// *llm.Gateway satisfies it.
type ClientResolver interface {
	ForAgent(agent string) (llm.Client, error)
	ForRole(role config.Role) (llm.Client, error)
}

// Searcher performs the optional pre-planning web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tools.SearchResult, error)
}

// WorkerRunner executes one worker turn. *agent.Worker satisfies it.
type WorkerRunner interface {
	Name() string
	Run(ctx context.Context, workflowID string, turn int, history []llm.Message, bus *events.Bus) (string, error)
}

// Deps carries everything the nodes need. One Deps serves many concurrent
// tasks; per-task state lives in State and the Bus.
type Deps struct {
	LLM      ClientResolver
	Store    *artifact.Store
	Search   Searcher
	Workers  map[string]WorkerRunner
	Settings config.Defaults
}

// Engine dispatches nodes until a node routes to End, an error occurs, or
// the recursion ceiling is hit.
type Engine struct {
	nodes map[string]NodeFunc
	limit int
	log   *slog.Logger
}

// New builds the node table: coordinator, planner, supervisor, and one node
// per configured worker.
func New(deps Deps) *Engine {
	nodes := map[string]NodeFunc{
		config.NodeCoordinator: coordinatorNode(deps),
		config.NodePlanner:     plannerNode(deps),
		config.NodeSupervisor:  supervisorNode(deps),
	}
	for name, w := range deps.Workers {
		nodes[name] = workerNode(deps, w)
	}
	return &Engine{
		nodes: nodes,
		limit: deps.Settings.RecursionLimit,
		log:   slog.Default().With("component", "graph"),
	}
}

// Run executes the graph from the coordinator. It returns nil on natural
// termination and ErrRecursionLimit when the worker-turn ceiling is
// exceeded. Cancellation is checked at every node boundary.
func (e *Engine) Run(ctx context.Context, st *State, bus *events.Bus) error {
	current := config.NodeCoordinator
	turns := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if config.IsTeamMember(current) {
			turns++
			if turns > e.limit {
				e.log.Error("Recursion limit exceeded",
					"workflow_id", st.WorkflowID,
					"limit", e.limit,
					"node", current)
				return fmt.Errorf("aborting at node %s after %d worker turns: %w", current, e.limit, ErrRecursionLimit)
			}
		}

		node, ok := e.nodes[current]
		if !ok {
			return fmt.Errorf("unknown graph node %q", current)
		}

		e.log.Debug("Dispatching node", "workflow_id", st.WorkflowID, "node", current)
		next, err := node(ctx, st, bus)
		if err != nil {
			return fmt.Errorf("node %s failed: %w", current, err)
		}
		if next == End {
			return nil
		}
		current = next
	}
}
