package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusionworks/fusionai/pkg/artifact"
	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/tools"
)

// scriptedLLM replays canned stream scripts and invoke responses in order.
type scriptedLLM struct {
	streams [][]llm.Chunk
	invokes []string
}

func (s *scriptedLLM) Invoke(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if len(s.invokes) == 0 {
		return nil, fmt.Errorf("unexpected invoke")
	}
	content := s.invokes[0]
	s.invokes = s.invokes[1:]
	return &llm.Response{Content: content}, nil
}

func (s *scriptedLLM) Stream(_ context.Context, _ llm.Request) (<-chan llm.Chunk, error) {
	if len(s.streams) == 0 {
		return nil, fmt.Errorf("unexpected stream")
	}
	script := s.streams[0]
	s.streams = s.streams[1:]
	out := make(chan llm.Chunk, len(script))
	for _, c := range script {
		out <- c
	}
	close(out)
	return out, nil
}

type fakeResolver struct {
	agents map[string]llm.Client
	roles  map[config.Role]llm.Client
}

func (f *fakeResolver) ForAgent(agent string) (llm.Client, error) {
	c, ok := f.agents[agent]
	if !ok {
		return nil, fmt.Errorf("no client for agent %s", agent)
	}
	return c, nil
}

func (f *fakeResolver) ForRole(role config.Role) (llm.Client, error) {
	c, ok := f.roles[role]
	if !ok {
		return nil, fmt.Errorf("no client for role %s", role)
	}
	return c, nil
}

type fakeWorker struct {
	name     string
	response string
	runs     int
}

func (w *fakeWorker) Name() string { return w.name }

func (w *fakeWorker) Run(_ context.Context, _ string, _ int, _ []llm.Message, _ *events.Bus) (string, error) {
	w.runs++
	return w.response, nil
}

type fakeSearch struct {
	results []tools.SearchResult
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]tools.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, nil
}

func testDeps(t *testing.T, resolver ClientResolver, workers map[string]WorkerRunner) Deps {
	t.Helper()
	settings := config.DefaultSettings()
	return Deps{
		LLM:      resolver,
		Store:    artifact.NewStore(artifact.Options{Root: t.TempDir()}),
		Workers:  workers,
		Settings: settings,
	}
}

func runGraph(t *testing.T, deps Deps, st *State) ([]events.Event, error) {
	t.Helper()
	bus := events.NewBus(256)
	err := New(deps).Run(context.Background(), st, bus)
	bus.Close()
	var got []events.Event
	for ev := range bus.Events() {
		got = append(got, ev)
	}
	return got, err
}

func eventTypes(evs []events.Event) []events.Type {
	var types []events.Type
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	return types
}

const researcherPlan = `{"thought":"needs research","title":"Research X","steps":[{"worker_name":"researcher","title":"Search","description":"search for X"}]}`

func TestSmallTalkShortCircuit(t *testing.T) {
	resolver := &fakeResolver{agents: map[string]llm.Client{
		config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
			{{Content: "Hello"}, {Content: " there"}, {Content: "!"}},
		}},
	}}
	deps := testDeps(t, resolver, nil)

	st := NewState("wf1", []llm.Message{llm.User("hi")})
	evs, err := runGraph(t, deps, st)
	require.NoError(t, err)

	types := eventTypes(evs)
	assert.NotContains(t, types, events.TypeStartOfWorkflow)
	assert.NotContains(t, types, events.TypePlanGenerated)
	assert.Contains(t, types, events.TypeMessage)
	assert.False(t, st.PlannerEntered)

	// Greeting content reached the stream.
	var text string
	for _, ev := range evs {
		if ev.Type == events.TypeMessage {
			text += ev.Data.(events.MessagePayload).Delta.Content
		}
	}
	assert.Equal(t, "Hello there!", text)

	// No plan artifact for a short-circuited task.
	_, err = os.Stat(filepath.Join(deps.Store.Root(), st.TaskID, "plan.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandoffSuppressesCoordinatorOutput(t *testing.T) {
	resolver := &fakeResolver{
		agents: map[string]llm.Client{
			config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "handoff"}, {Content: "_to_planner"}},
			}},
			config.NodeSupervisor: &scriptedLLM{invokes: []string{`{"next": "FINISH"}`}},
		},
		roles: map[config.Role]llm.Client{
			config.RoleBasic: &scriptedLLM{streams: [][]llm.Chunk{{{Content: researcherPlan}}}},
		},
	}
	deps := testDeps(t, resolver, nil)

	st := NewState("wf1", []llm.Message{llm.User("search for X")})
	evs, err := runGraph(t, deps, st)
	require.NoError(t, err)

	for _, ev := range evs {
		if ev.Type != events.TypeMessage {
			continue
		}
		delta := ev.Data.(events.MessagePayload).Delta
		assert.NotContains(t, delta.Content, "handoff", "handoff directive must not reach the client")
	}
	assert.True(t, st.PlannerEntered)
}

func TestSingleWorkerTask(t *testing.T) {
	researcher := &fakeWorker{name: config.WorkerResearcher, response: "findings about X"}
	resolver := &fakeResolver{
		agents: map[string]llm.Client{
			config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "handoff_to_planner"}},
			}},
			config.NodeSupervisor: &scriptedLLM{invokes: []string{
				`{"next": "researcher"}`,
				`{"next": "FINISH"}`,
			}},
		},
		roles: map[config.Role]llm.Client{
			config.RoleBasic: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "```json\n" + researcherPlan + "\n```"}},
			}},
		},
	}
	deps := testDeps(t, resolver, map[string]WorkerRunner{config.WorkerResearcher: researcher})

	st := NewState("wf1", []llm.Message{llm.User("search for X")})
	evs, err := runGraph(t, deps, st)
	require.NoError(t, err)
	assert.Equal(t, 1, researcher.runs)

	var planGenerated *events.PlanGeneratedPayload
	var started, ended []events.StepPayload
	for _, ev := range evs {
		switch ev.Type {
		case events.TypePlanGenerated:
			p := ev.Data.(events.PlanGeneratedPayload)
			planGenerated = &p
		case events.TypeStepStarted:
			started = append(started, ev.Data.(events.StepPayload))
		case events.TypeStepEnd:
			ended = append(ended, ev.Data.(events.StepPayload))
		}
	}
	require.NotNil(t, planGenerated)
	assert.Equal(t, 1, planGenerated.TotalSteps)

	require.Len(t, started, 1)
	require.Len(t, ended, 1)
	assert.Equal(t, 1, started[0].StepIndex)
	assert.Equal(t, 1, ended[0].StepIndex)
	assert.Equal(t, config.WorkerResearcher, started[0].StepInfo.WorkerName)

	// start_of_workflow precedes plan_generated.
	types := eventTypes(evs)
	assert.Less(t, indexOf(types, events.TypeStartOfWorkflow), indexOf(types, events.TypePlanGenerated))

	// Exactly one researcher summary on disk.
	refs := deps.Store.ListSummaries(st.TaskID)
	require.Len(t, refs, 1)
	assert.Equal(t, config.WorkerResearcher, refs[0].Worker)

	// The worker response rejoined the conversation under the worker's name.
	last := st.Messages[len(st.Messages)-1]
	assert.Equal(t, config.WorkerResearcher, last.Name)
	assert.Contains(t, last.Content, "Response from researcher:")
	assert.Contains(t, last.Content, "<response>\nfindings about X\n</response>")
}

func TestPlanParseFailureEndsTask(t *testing.T) {
	resolver := &fakeResolver{
		agents: map[string]llm.Client{
			config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "handoff_to_planner"}},
			}},
		},
		roles: map[config.Role]llm.Client{
			config.RoleBasic: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "not json at all"}},
			}},
		},
	}
	deps := testDeps(t, resolver, nil)

	st := NewState("wf1", []llm.Message{llm.User("do something")})
	evs, err := runGraph(t, deps, st)
	require.NoError(t, err)

	types := eventTypes(evs)
	assert.NotContains(t, types, events.TypePlanGenerated)
	assert.NotContains(t, types, events.TypeStepStarted)

	_, serr := os.Stat(filepath.Join(deps.Store.Root(), st.TaskID, "plan.md"))
	assert.True(t, os.IsNotExist(serr))
}

func TestRecursionLimit(t *testing.T) {
	researcher := &fakeWorker{name: config.WorkerResearcher, response: "more findings"}
	supervisor := &scriptedLLM{}
	for i := 0; i < 100; i++ {
		supervisor.invokes = append(supervisor.invokes, `{"next": "researcher"}`)
	}
	resolver := &fakeResolver{
		agents: map[string]llm.Client{
			config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "handoff_to_planner"}},
			}},
			config.NodeSupervisor: supervisor,
		},
		roles: map[config.Role]llm.Client{
			config.RoleBasic: &scriptedLLM{streams: [][]llm.Chunk{{{Content: researcherPlan}}}},
		},
	}
	deps := testDeps(t, resolver, map[string]WorkerRunner{config.WorkerResearcher: researcher})
	deps.Settings.RecursionLimit = 3

	st := NewState("wf1", []llm.Message{llm.User("loop forever")})
	_, err := runGraph(t, deps, st)
	require.ErrorIs(t, err, ErrRecursionLimit)

	assert.Equal(t, 3, researcher.runs)
	assert.Len(t, deps.Store.ListSummaries(st.TaskID), 3)
}

func TestSupervisorUnknownWorkerForcesFinish(t *testing.T) {
	resolver := &fakeResolver{
		agents: map[string]llm.Client{
			config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "handoff_to_planner"}},
			}},
			config.NodeSupervisor: &scriptedLLM{invokes: []string{`{"next": "nonexistent_agent"}`}},
		},
		roles: map[config.Role]llm.Client{
			config.RoleBasic: &scriptedLLM{streams: [][]llm.Chunk{{{Content: researcherPlan}}}},
		},
	}
	deps := testDeps(t, resolver, nil)

	st := NewState("wf1", []llm.Message{llm.User("task")})
	_, err := runGraph(t, deps, st)
	require.NoError(t, err)
}

func TestSearchBeforePlanning(t *testing.T) {
	planner := &scriptedLLM{streams: [][]llm.Chunk{{{Content: researcherPlan}}}}
	resolver := &fakeResolver{
		agents: map[string]llm.Client{
			config.NodeCoordinator: &scriptedLLM{streams: [][]llm.Chunk{
				{{Content: "handoff_to_planner"}},
			}},
			config.NodeSupervisor: &scriptedLLM{invokes: []string{`{"next": "FINISH"}`}},
		},
		roles: map[config.Role]llm.Client{
			config.RoleReasoning: planner,
		},
	}
	search := &fakeSearch{results: []tools.SearchResult{
		{Title: "Result", URL: "https://example.com", Content: "relevant text"},
	}}
	deps := testDeps(t, resolver, nil)
	deps.Search = search

	st := NewState("wf1", []llm.Message{llm.User("research topic Y")})
	st.DeepThinking = true
	st.SearchBeforePlanning = true

	_, err := runGraph(t, deps, st)
	require.NoError(t, err)

	require.Equal(t, []string{"research topic Y"}, search.queries)
	// Enrichment is planner-local, the session message is untouched.
	assert.Equal(t, "research topic Y", st.Messages[0].Content)
}

func indexOf(types []events.Type, want events.Type) int {
	for i, tp := range types {
		if tp == want {
			return i
		}
	}
	return -1
}
