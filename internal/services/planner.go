package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/models"
)

// QuestionPlanner turns a job description and resume into the seed questions
// of an interview.
type QuestionPlanner interface {
	Plan(ctx context.Context, jobDescription, resume string, persona models.Persona) ([]string, error)
}

type questionPlanner struct {
	gateway       Gateway
	policy        *PersonaPolicy
	prompts       *PromptBuilder
	retriever     ContextRetriever
	contextChunks int
	log           *zap.Logger
}

type PlannerOption func(*questionPlanner)

// WithContextRetriever adds interview-guide excerpts to every planning request.
func WithContextRetriever(retriever ContextRetriever, chunks int) PlannerOption {
	return func(p *questionPlanner) {
		p.retriever = retriever
		p.contextChunks = chunks
	}
}

func NewQuestionPlanner(gateway Gateway, policy *PersonaPolicy, prompts *PromptBuilder, log *zap.Logger, opts ...PlannerOption) QuestionPlanner {
	if log == nil {
		log = zap.NewNop()
	}
	p := &questionPlanner{
		gateway: gateway,
		policy:  policy,
		prompts: prompts,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *questionPlanner) Plan(ctx context.Context, jobDescription, resume string, persona models.Persona) ([]string, error) {
	const op = "plan questions"

	system, err := p.policy.InstructionFor(persona)
	if err != nil {
		return nil, err
	}

	payload, err := p.prompts.BuildPlanPayload(jobDescription, resume, p.guideContext(ctx, jobDescription))
	if err != nil {
		return nil, err
	}

	completion, err := p.gateway.Complete(ctx, system, payload, true)
	if err != nil {
		return nil, gatewayError(op, err)
	}

	questions, err := ParseQuestionPlan(completion, p.prompts.SeedCount())
	if err != nil {
		p.log.Warn("question plan could not be parsed",
			zap.String("response_preview", truncateRunes(completion.Text, 200)),
			zap.Error(err),
		)
		return nil, err
	}
	if len(questions) == 0 {
		return nil, newError(op, ErrPlanningFailed, errors.New("no usable questions in response"))
	}

	p.log.Debug("planned seed questions", zap.Int("count", len(questions)))
	return questions, nil
}

func (p *questionPlanner) guideContext(ctx context.Context, jobDescription string) string {
	if p.retriever == nil || p.contextChunks <= 0 {
		return ""
	}

	results, err := p.retriever.Retrieve(ctx, p.prompts.BuildRetrievalQuery(jobDescription), p.contextChunks)
	if err != nil {
		p.log.Warn("interview guide retrieval failed, planning without it", zap.Error(err))
		return ""
	}
	return FormatGuideContext(results)
}

// gatewayError keeps a malformed-response kind and reports anything else as
// the gateway being unavailable.
func gatewayError(op string, err error) error {
	if errors.Is(err, ErrMalformedGatewayResponse) {
		return newError(op, ErrMalformedGatewayResponse, err)
	}
	return newError(op, ErrGatewayUnavailable, err)
}
