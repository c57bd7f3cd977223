package config

// Role is a coarse capability class resolved to a concrete provider at
// startup. The planner switches between RoleBasic and RoleReasoning based on
// the deep_thinking option; vision is reserved for image-bearing requests.
type Role string

const (
	RoleBasic     Role = "basic"
	RoleReasoning Role = "reasoning"
	RoleVision    Role = "vision"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	return r == RoleBasic || r == RoleReasoning || r == RoleVision
}

// Graph node names. The coordinator, planner and supervisor are control
// nodes; they call the LLM directly instead of running a worker loop.
const (
	NodeCoordinator = "coordinator"
	NodePlanner     = "planner"
	NodeSupervisor  = "supervisor"
)

// Worker names. Each worker is a specialised agent bound to a tool subset.
const (
	WorkerResearcher     = "researcher"
	WorkerCoder          = "coder"
	WorkerReporter       = "reporter"
	WorkerDBAnalyst      = "db_analyst"
	WorkerDocumentParser = "document_parser"
	WorkerChartGenerator = "chart_generator"
)

// FinishSentinel is the supervisor's routing value that terminates the task.
const FinishSentinel = "FINISH"

// HandoffToken is the literal marker in a coordinator response meaning
// "escalate to planning".
const HandoffToken = "handoff_to_planner"

// TeamMembers is the ordered worker set the supervisor may route to.
var TeamMembers = []string{
	WorkerResearcher,
	WorkerCoder,
	WorkerReporter,
	WorkerDBAnalyst,
	WorkerDocumentParser,
	WorkerChartGenerator,
}

// IsTeamMember reports whether name is a registered worker.
func IsTeamMember(name string) bool {
	for _, m := range TeamMembers {
		if m == name {
			return true
		}
	}
	return false
}

// AgentProviderMap is the compile-time agent-to-provider table. Control nodes
// and workers alike resolve their LLM through it; the planner additionally
// upgrades to the reasoning role under deep_thinking.
var AgentProviderMap = map[string]string{
	NodeCoordinator:      "qwen",
	NodePlanner:          "qwen",
	NodeSupervisor:       "qwen",
	WorkerResearcher:     "qwen",
	WorkerCoder:          "qwen",
	WorkerReporter:       "openai",
	WorkerDBAnalyst:      "google",
	WorkerDocumentParser: "openai",
	WorkerChartGenerator: "openai",
}

// defaultRoleProviders maps capability roles to provider names; overridable
// via BASIC_PROVIDER, REASONING_PROVIDER and VISION_PROVIDER.
var defaultRoleProviders = map[Role]string{
	RoleBasic:     "qwen",
	RoleReasoning: "deepseek",
	RoleVision:    "openai",
}

// roleProviderEnv maps roles to their override environment variables.
var roleProviderEnv = map[Role]string{
	RoleBasic:     "BASIC_PROVIDER",
	RoleReasoning: "REASONING_PROVIDER",
	RoleVision:    "VISION_PROVIDER",
}
