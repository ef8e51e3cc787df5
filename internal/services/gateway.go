package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/logger"
	"alfredoptarigan/interview-simulator/internal/telemetry"
)

// Gateway is the single text-completion call every model interaction goes through.
//
// Implementations return ErrGatewayUnavailable for transport failures and
// cancellation, and ErrMalformedGatewayResponse when expectJSON is set but the
// output cannot be decoded.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userPayload string, expectJSON bool) (Completion, error)
}

// Completion is one gateway response. Value holds the decoded JSON document
// when JSON was requested.
type Completion struct {
	Text  string
	Value any
}

// Object returns the decoded value as a JSON object, or nil.
func (c Completion) Object() map[string]any {
	obj, _ := c.Value.(map[string]any)
	return obj
}

// newCompletion decodes text when expectJSON is set.
func newCompletion(text string, expectJSON bool) (Completion, error) {
	c := Completion{Text: strings.TrimSpace(text)}
	if !expectJSON {
		return c, nil
	}
	if err := DecodeLLMJSON(c.Text, &c.Value); err != nil {
		return c, newError("decode completion", ErrMalformedGatewayResponse, err)
	}
	return c, nil
}

// DecodeLLMJSON decodes JSON from a model response, tolerating code fences and
// prose around the payload.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, logger.TruncateForLog(trimmed, 160))
	}

	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, logger.TruncateForLog(sanitized, 160))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

type instrumentedGateway struct {
	inner    Gateway
	provider string
	model    string
	log      *zap.Logger
	duration metric.Float64Histogram
}

// NewInstrumentedGateway wraps a gateway with a span, a latency histogram and
// debug logging of truncated prompts and responses.
func NewInstrumentedGateway(inner Gateway, provider, model string, log *zap.Logger) Gateway {
	if log == nil {
		log = zap.NewNop()
	}

	duration, err := otel.Meter(telemetry.ScopeName).Float64Histogram(
		"gateway.request.duration",
		metric.WithDescription("Latency of model gateway calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Warn("failed to create gateway duration histogram", zap.Error(err))
	}

	return &instrumentedGateway{
		inner:    inner,
		provider: provider,
		model:    model,
		log:      logger.WithFields(log, logger.GatewayFields(provider, model)...),
		duration: duration,
	}
}

func (g *instrumentedGateway) Complete(ctx context.Context, systemPrompt, userPayload string, expectJSON bool) (Completion, error) {
	ctx, span := otel.Tracer(telemetry.ScopeName).Start(ctx, "gateway.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.provider", g.provider),
		attribute.String("gateway.model", g.model),
		attribute.Bool("gateway.expect_json", expectJSON),
	)

	g.log.Debug("gateway request",
		zap.String("system_preview", logger.TruncateForLog(systemPrompt, 200)),
		zap.String("payload_preview", logger.TruncateForLog(userPayload, 400)),
		zap.Bool("expect_json", expectJSON),
	)

	start := time.Now()
	completion, err := g.inner.Complete(ctx, systemPrompt, userPayload, expectJSON)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if g.duration != nil {
		g.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("gateway.provider", g.provider),
			attribute.String("outcome", outcome),
		))
	}

	if err != nil {
		g.log.Warn("gateway request failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return completion, err
	}

	g.log.Debug("gateway response",
		zap.Duration("elapsed", elapsed),
		zap.String("response_preview", logger.TruncateForLog(completion.Text, 400)),
	)
	return completion, nil
}
