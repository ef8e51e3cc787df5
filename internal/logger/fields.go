package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldSessionID is the structured log field key for the interview session.
	FieldSessionID = "session_id"
	// FieldPersona is the structured log field key for the interviewer persona.
	FieldPersona = "persona"
	// FieldProvider is the structured log field key for the model provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SessionFields returns the fields that identify a session in every log entry.
func SessionFields(sessionID, persona string) []zap.Field {
	return StringFields(
		StringField{Key: FieldSessionID, Value: sessionID},
		StringField{Key: FieldPersona, Value: persona},
	)
}

// GatewayFields returns fields describing the model provider and model.
func GatewayFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
