package services

import (
	"context"
	"encoding/json"
	"fmt"
)

// mockGateway answers every call with one canned document that carries a
// question plan, a follow-up and a summary, so the whole flow runs without
// model credentials.
type mockGateway struct {
	response map[string]any
}

func NewMockGateway() Gateway {
	return &mockGateway{
		response: map[string]any{
			"questions": []any{
				"What makes you particularly qualified for this role?",
				"Name two achievements that map directly to the job description.",
				"Where do you see the biggest risk in this position, and how would you tackle it?",
			},
			"followup": "Tell me more about your impact in your most recent project.",
			"summary":  "Mock summary: interview completed.",
		},
	}
}

func (m *mockGateway) Complete(ctx context.Context, _, _ string, expectJSON bool) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, newError("mock complete", ErrGatewayUnavailable, err)
	}

	raw, err := json.Marshal(m.response)
	if err != nil {
		return Completion{}, fmt.Errorf("encode mock response: %w", err)
	}
	return newCompletion(string(raw), expectJSON)
}
