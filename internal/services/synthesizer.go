package services

import (
	"context"

	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/models"
)

// ReportSynthesizer produces the end-of-interview assessment from a transcript.
type ReportSynthesizer interface {
	Synthesize(ctx context.Context, persona models.Persona, transcript []models.Turn) (ReportContent, error)
}

type reportSynthesizer struct {
	gateway Gateway
	policy  *PersonaPolicy
	prompts *PromptBuilder
	log     *zap.Logger
}

func NewReportSynthesizer(gateway Gateway, policy *PersonaPolicy, prompts *PromptBuilder, log *zap.Logger) ReportSynthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &reportSynthesizer{gateway: gateway, policy: policy, prompts: prompts, log: log}
}

func (s *reportSynthesizer) Synthesize(ctx context.Context, persona models.Persona, transcript []models.Turn) (ReportContent, error) {
	const op = "synthesize report"

	system, err := s.policy.InstructionFor(persona)
	if err != nil {
		return ReportContent{}, err
	}

	payload, err := s.prompts.BuildReportPayload(transcript)
	if err != nil {
		return ReportContent{}, err
	}

	completion, err := s.gateway.Complete(ctx, system, payload, true)
	if err != nil {
		return ReportContent{}, gatewayError(op, err)
	}

	content, err := ParseReport(completion)
	if err != nil {
		s.log.Warn("report response could not be parsed",
			zap.String("response_preview", truncateRunes(completion.Text, 200)),
		)
		return ReportContent{}, err
	}
	return content, nil
}
