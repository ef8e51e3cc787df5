package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"alfredoptarigan/interview-simulator/internal/models"
)

type PromptBuilder struct {
	seedCount        int
	maxDocumentChars int
}

func NewPromptBuilder(seedCount, maxDocumentChars int) *PromptBuilder {
	if seedCount <= 0 {
		seedCount = 3
	}
	if maxDocumentChars <= 0 {
		maxDocumentChars = 4000
	}
	return &PromptBuilder{seedCount: seedCount, maxDocumentChars: maxDocumentChars}
}

// SeedCount is the number of seed questions a plan asks for.
func (pb *PromptBuilder) SeedCount() int {
	return pb.seedCount
}

type planPayload struct {
	Instruction string `json:"instruction"`
	JD          string `json:"jd"`
	CV          string `json:"cv"`
	Guide       string `json:"guide,omitempty"`
}

// BuildPlanPayload creates the user payload for seed question generation.
func (pb *PromptBuilder) BuildPlanPayload(jobDescription, resume, guide string) (string, error) {
	placeholders := make([]string, pb.seedCount)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("%q", fmt.Sprintf("Question %d", i+1))
	}

	instruction := fmt.Sprintf(
		`Generate exactly %d precise, job-relevant interview questions. Reply ONLY with JSON in the form {"questions":[%s]}. No explanations, no text outside this JSON.`,
		pb.seedCount, strings.Join(placeholders, ","),
	)
	if guide != "" {
		instruction += " Use the interview guide excerpts in \"guide\" as reference for what to probe."
	}

	return marshalPayload(planPayload{
		Instruction: instruction,
		JD:          truncateRunes(jobDescription, pb.maxDocumentChars),
		CV:          truncateRunes(resume, pb.maxDocumentChars),
		Guide:       guide,
	})
}

type decisionPayload struct {
	Instruction string `json:"instruction"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
}

// BuildDecisionPayload creates the user payload asking whether an answer needs a follow-up.
func (pb *PromptBuilder) BuildDecisionPayload(question, answer string) (string, error) {
	return marshalPayload(decisionPayload{
		Instruction: `Analyse the question and the answer. If the answer is vague, ask exactly ONE follow-up question and reply with JSON {"followup": "..."}. If it is precise, reply with JSON {"ok": true}.`,
		Question:    question,
		Answer:      answer,
	})
}

type transcriptEntry struct {
	Role string `json:"role"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type reportPayload struct {
	Instruction string            `json:"instruction"`
	Transcript  []transcriptEntry `json:"transcript"`
}

// BuildReportPayload creates the user payload for the final assessment.
func (pb *PromptBuilder) BuildReportPayload(transcript []models.Turn) (string, error) {
	entries := make([]transcriptEntry, 0, len(transcript))
	for _, turn := range transcript {
		entries = append(entries, transcriptEntry{
			Role: string(turn.Speaker),
			Kind: string(turn.Kind),
			Text: turn.Text,
		})
	}

	return marshalPayload(reportPayload{
		Instruction: `Write a short, concise assessment of this interview. Reply as JSON {"summary": "...", "strengths": ["..."], "risks": ["..."], "recommendations": ["..."]}. Base every point on the transcript.`,
		Transcript:  entries,
	})
}

// BuildRetrievalQuery creates the query used to look up interview guide excerpts.
func (pb *PromptBuilder) BuildRetrievalQuery(jobDescription string) string {
	return "Interview topics and evaluation criteria for: " + truncateRunes(strings.TrimSpace(jobDescription), 1000)
}

// FormatGuideContext renders retrieved guide excerpts for the planning payload.
func FormatGuideContext(results []SearchResult) string {
	var parts []string
	for i, result := range results {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Excerpt %d (%s, score %.2f) ---\n%s", i+1, result.Topic, result.Score, text))
	}
	return strings.Join(parts, "\n\n")
}

func marshalPayload(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(raw), nil
}

// truncateRunes keeps at most limit runes of s.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
