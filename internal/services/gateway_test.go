package services

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInstrumentedGatewayLogsTruncatedPreviews(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := newStubGateway().on("decide", reply(`{"ok":true}`))
	gw := NewInstrumentedGateway(inner, "stub", "stub-model", zap.New(core))

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	payload := `{"question":"Q1","answer":"` + string(long) + `"}`

	c, err := gw.Complete(context.Background(), "system", payload, true)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Object()["ok"] != true {
		t.Fatalf("unexpected completion %#v", c)
	}

	requests := logs.FilterMessage("gateway request").All()
	if len(requests) != 1 {
		t.Fatalf("expected one request log, got %d", len(requests))
	}
	fields := requests[0].ContextMap()
	if fields["ai_provider"] != "stub" || fields["ai_model"] != "stub-model" {
		t.Fatalf("missing gateway fields: %#v", fields)
	}
	if preview, _ := fields["payload_preview"].(string); len(preview) >= len(payload) {
		t.Fatalf("payload preview was not truncated (%d bytes)", len(preview))
	}
}

func TestInstrumentedGatewayPassesErrorsThrough(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inner := newStubGateway().on("plan", stubReply{err: errTransport})
	gw := NewInstrumentedGateway(inner, "stub", "m", zap.New(core))

	_, err := gw.Complete(context.Background(), "s", `{"jd":"x","cv":"y"}`, true)
	assertKind(t, err, ErrGatewayUnavailable)

	if logs.FilterMessage("gateway request failed").Len() != 1 {
		t.Fatal("expected failure to be logged")
	}
}

func TestMockGatewayDrivesAWholeInterview(t *testing.T) {
	gw := NewMockGateway()
	policy := NewPersonaPolicy("")
	prompts := NewPromptBuilder(3, 4000)

	questions, err := NewQuestionPlanner(gw, policy, prompts, nil).Plan(context.Background(), "jd", "cv", "neutral")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 mock questions, got %d", len(questions))
	}

	verdict, err := NewDecisionEngine(gw, policy, prompts, nil).Decide(context.Background(), "neutral", questions[0], "answer")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if verdict.Advance || verdict.FollowUpText == "" {
		t.Fatalf("mock should ask a follow-up, got %#v", verdict)
	}

	report, err := NewReportSynthesizer(gw, policy, prompts, nil).Synthesize(context.Background(), "neutral", nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if report.Summary == "" || report.Strengths == nil {
		t.Fatalf("unexpected mock report %#v", report)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Complete(ctx, "", "", true)
	assertKind(t, err, ErrGatewayUnavailable)
}
