package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FollowUpVerdict is the decision for one candidate answer. Exactly one of
// Advance or a non-empty FollowUpText is set.
type FollowUpVerdict struct {
	Advance      bool
	FollowUpText string
	// Fallback marks an advance forced by an ambiguous or malformed response.
	Fallback bool
}

// ReportContent is the normalised shape of a synthesised report.
type ReportContent struct {
	Summary         string
	Strengths       []string
	Risks           []string
	Recommendations []string
}

var errNoJSONValue = errors.New("completion carries no JSON value")

// ParseQuestionPlan accepts {"questions":[...]}, {"questions":"..."} or a bare
// array. Entries are trimmed, empties dropped and the list capped at limit.
// An unrecognised shape is malformed; a recognised shape with no usable entry
// returns an empty list.
func ParseQuestionPlan(c Completion, limit int) ([]string, error) {
	var raw any
	switch v := c.Value.(type) {
	case []any:
		raw = v
	case map[string]any:
		raw = v["questions"]
	case nil:
		return nil, newError("parse question plan", ErrMalformedGatewayResponse, errNoJSONValue)
	default:
		return nil, newError("parse question plan", ErrMalformedGatewayResponse, fmt.Errorf("unexpected JSON type %T", v))
	}

	questions := coerceStringList(raw)
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

// ParseVerdict never fails: anything other than a clean {"ok":true} or a
// clean follow-up becomes a fallback advance.
func ParseVerdict(c Completion) FollowUpVerdict {
	obj := c.Object()
	if obj == nil {
		return FollowUpVerdict{Advance: true, Fallback: true}
	}

	ok := coerceBool(obj["ok"])
	followUp := coerceString(obj["followup"])
	if followUp == "" {
		followUp = coerceString(obj["follow_up"])
	}

	switch {
	case ok && followUp == "":
		return FollowUpVerdict{Advance: true}
	case !ok && followUp != "":
		return FollowUpVerdict{FollowUpText: followUp}
	default:
		return FollowUpVerdict{Advance: true, Fallback: true}
	}
}

// ParseReport fills missing keys with empty values and promotes a single
// string to a one-element list.
func ParseReport(c Completion) (ReportContent, error) {
	obj := c.Object()
	if obj == nil {
		return ReportContent{}, newError("parse report", ErrMalformedGatewayResponse, errNoJSONValue)
	}

	return ReportContent{
		Summary:         coerceString(obj["summary"]),
		Strengths:       coerceStringList(obj["strengths"]),
		Risks:           coerceStringList(obj["risks"]),
		Recommendations: coerceStringList(obj["recommendations"]),
	}, nil
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func coerceStringList(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := coerceString(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}
