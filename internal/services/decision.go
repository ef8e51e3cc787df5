package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/telemetry"
)

// DecisionEngine decides whether an answer warrants a follow-up question.
type DecisionEngine interface {
	Decide(ctx context.Context, persona models.Persona, question, answer string) (FollowUpVerdict, error)
}

type decisionEngine struct {
	gateway   Gateway
	policy    *PersonaPolicy
	prompts   *PromptBuilder
	decisions metric.Int64Counter
	log       *zap.Logger
}

func NewDecisionEngine(gateway Gateway, policy *PersonaPolicy, prompts *PromptBuilder, log *zap.Logger) DecisionEngine {
	if log == nil {
		log = zap.NewNop()
	}

	decisions, err := otel.Meter(telemetry.ScopeName).Int64Counter(
		"interview.decisions",
		metric.WithDescription("Follow-up decisions by outcome"),
	)
	if err != nil {
		log.Warn("failed to create decision counter", zap.Error(err))
	}

	return &decisionEngine{
		gateway:   gateway,
		policy:    policy,
		prompts:   prompts,
		decisions: decisions,
		log:       log,
	}
}

// Decide returns an error only when the gateway could not be reached; an
// unusable response becomes a fallback advance.
func (e *decisionEngine) Decide(ctx context.Context, persona models.Persona, question, answer string) (FollowUpVerdict, error) {
	const op = "decide follow-up"

	system, err := e.policy.InstructionFor(persona)
	if err != nil {
		return FollowUpVerdict{}, err
	}

	payload, err := e.prompts.BuildDecisionPayload(question, answer)
	if err != nil {
		return FollowUpVerdict{}, err
	}

	completion, err := e.gateway.Complete(ctx, system, payload, true)
	var verdict FollowUpVerdict
	switch {
	case err == nil:
		verdict = ParseVerdict(completion)
	case errors.Is(err, ErrMalformedGatewayResponse) && ctx.Err() == nil:
		verdict = FollowUpVerdict{Advance: true, Fallback: true}
	default:
		e.record(ctx, "unavailable")
		return FollowUpVerdict{}, newError(op, ErrGatewayUnavailable, err)
	}

	outcome := "advance"
	switch {
	case verdict.Fallback:
		outcome = "fallback"
		e.log.Warn("ambiguous decision response, advancing",
			zap.String("response_preview", truncateRunes(completion.Text, 200)),
		)
	case !verdict.Advance:
		outcome = "follow_up"
	}
	e.record(ctx, outcome)

	return verdict, nil
}

func (e *decisionEngine) record(ctx context.Context, outcome string) {
	if e.decisions == nil {
		return
	}
	e.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
