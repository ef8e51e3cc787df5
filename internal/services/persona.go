package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/interview-simulator/internal/models"
)

const baseInterviewerDirective = "You are an interviewer. Ask precise, job-relevant questions based on the job description (JD) and the resume (CV). " +
	"Listen actively and probe when an answer is vague. Keep it short, clear and on topic."

var personaTones = map[models.Persona]string{
	models.PersonaSupportive:  "Tone: empathetic, encouraging, human. Ask clear questions and give brief acknowledgement. No softball questions.",
	models.PersonaNeutral:     "Tone: factual, precise, professional. Focus on competence, examples and metrics. No small talk.",
	models.PersonaAdversarial: "Tone: very direct, demanding, impatient. Dig deeper and expose gaps. Stay respectful, but be tough.",
}

var personaAliases = map[string]models.Persona{
	"supportive":  models.PersonaSupportive,
	"friendly":    models.PersonaSupportive,
	"human":       models.PersonaSupportive,
	"neutral":     models.PersonaNeutral,
	"adversarial": models.PersonaAdversarial,
	"beast":       models.PersonaAdversarial,
}

// ParsePersona maps a persona id or one of its aliases to the canonical persona.
// An empty string is rejected; callers decide on their own default.
func ParsePersona(raw string) (models.Persona, error) {
	p, ok := personaAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", newError("parse persona", ErrInvalidPersona, fmt.Errorf("unknown persona %q", raw))
	}
	return p, nil
}

// Voice carries speech playback hints for a persona.
type Voice struct {
	Rate  float64
	Pitch float64
}

func VoiceFor(p models.Persona) Voice {
	switch p {
	case models.PersonaAdversarial:
		return Voice{Rate: 1.1, Pitch: 0.9}
	case models.PersonaSupportive:
		return Voice{Rate: 0.95, Pitch: 1.05}
	default:
		return Voice{Rate: 1.0, Pitch: 1.0}
	}
}

// PersonaPolicy renders the system instruction for each persona.
type PersonaPolicy struct {
	language string
}

func NewPersonaPolicy(language string) *PersonaPolicy {
	return &PersonaPolicy{language: strings.TrimSpace(language)}
}

// InstructionFor is deterministic for a given persona and language.
func (p *PersonaPolicy) InstructionFor(persona models.Persona) (string, error) {
	tone, ok := personaTones[persona]
	if !ok {
		return "", newError("persona instruction", ErrInvalidPersona, fmt.Errorf("unknown persona %q", persona))
	}

	var b strings.Builder
	b.WriteString(baseInterviewerDirective)
	b.WriteString("\n")
	b.WriteString(tone)
	if p != nil && p.language != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Conduct the interview in %s.", p.language)
	}
	return b.String(), nil
}
