package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
)

type gatewayCall struct {
	system     string
	payload    map[string]any
	expectJSON bool
}

// kind names the request a payload belongs to.
func (c gatewayCall) kind() string {
	switch {
	case c.payload["jd"] != nil:
		return "plan"
	case c.payload["question"] != nil:
		return "decide"
	case c.payload["transcript"] != nil:
		return "report"
	default:
		return "unknown"
	}
}

// stubGateway answers each request kind with scripted replies. Replies are
// consumed in order; the last one repeats.
type stubGateway struct {
	mu      sync.Mutex
	replies map[string][]stubReply
	calls   []gatewayCall
}

type stubReply struct {
	text string
	err  error
	// block waits for ctx to be done before failing.
	block bool
}

func newStubGateway() *stubGateway {
	return &stubGateway{replies: make(map[string][]stubReply)}
}

func (g *stubGateway) on(kind string, replies ...stubReply) *stubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[kind] = append(g.replies[kind], replies...)
	return g
}

func (g *stubGateway) Complete(ctx context.Context, system, payload string, expectJSON bool) (Completion, error) {
	call := gatewayCall{system: system, expectJSON: expectJSON}
	_ = json.Unmarshal([]byte(payload), &call.payload)

	g.mu.Lock()
	g.calls = append(g.calls, call)
	queue := g.replies[call.kind()]
	var reply stubReply
	switch len(queue) {
	case 0:
		g.mu.Unlock()
		return Completion{}, newError("stub", ErrGatewayUnavailable, errors.New("no reply scripted for "+call.kind()))
	case 1:
		reply = queue[0]
	default:
		reply = queue[0]
		g.replies[call.kind()] = queue[1:]
	}
	g.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return Completion{}, newError("stub", ErrGatewayUnavailable, ctx.Err())
	}
	if reply.err != nil {
		return Completion{}, reply.err
	}
	return newCompletion(reply.text, expectJSON)
}

func (g *stubGateway) callsOf(kind string) []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayCall
	for _, c := range g.calls {
		if c.kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func reply(text string) stubReply { return stubReply{text: text} }

var errTransport = newError("stub", ErrGatewayUnavailable, errors.New("connection reset"))

type harness struct {
	store        *repositories.MemoryStore
	gateway      *stubGateway
	orchestrator Orchestrator
	reports      ReportService
	locks        *SessionLocks
}

func newHarness(t *testing.T, gw *stubGateway, opts ...OrchestratorOption) *harness {
	t.Helper()

	store := repositories.NewMemoryStore()
	policy := NewPersonaPolicy("English")
	prompts := NewPromptBuilder(3, 4000)
	locks := NewSessionLocks()

	planner := NewQuestionPlanner(gw, policy, prompts, nil)
	engine := NewDecisionEngine(gw, policy, prompts, nil)
	synth := NewReportSynthesizer(gw, policy, prompts, nil)

	return &harness{
		store:        store,
		gateway:      gw,
		orchestrator: NewOrchestrator(store.Sessions(), store.Turns(), planner, engine, locks, nil, opts...),
		reports:      NewReportService(store.Sessions(), store.Turns(), store.Reports(), synth, locks, nil),
		locks:        locks,
	}
}

func (h *harness) start(t *testing.T) *StartResult {
	t.Helper()
	res, err := h.orchestrator.StartSession(context.Background(), StartRequest{
		Persona:            models.PersonaNeutral,
		JobDescriptionText: "We build payment APIs in Go. You will own the ledger service.",
		ResumeText:         "Five years of Go. Led a migration to event sourcing.",
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return res
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
