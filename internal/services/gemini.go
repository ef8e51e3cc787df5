package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	maxEmbeddingChars = 40000
	maxRetryDelay     = 30 * time.Second
)

// errNoReplyText marks a call that succeeded but produced no usable text,
// e.g. a safety-blocked prompt. Repeating the call yields the same result.
var errNoReplyText = errors.New("gemini api returned no text")

// GeminiService is the Gemini-backed gateway plus the embedding call used for
// interview-guide retrieval.
type GeminiService interface {
	Gateway
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// GeminiSettings configures model selection and retry behaviour.
type GeminiSettings struct {
	Model       string
	EmbedModel  string
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
}

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type GeminiOption func(*geminiService)

// WithGeminiSleeper overrides how retry backoff waits are performed.
func WithGeminiSleeper(sleeper func(time.Duration)) GeminiOption {
	return func(g *geminiService) {
		g.sleeper = sleeper
	}
}

type geminiService struct {
	models   geminiModels
	settings GeminiSettings
	sleeper  func(time.Duration)
	log      *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey string, settings GeminiSettings, log *zap.Logger, opts ...GeminiOption) (GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiService(client.Models, settings, log, opts...), nil
}

func newGeminiService(models geminiModels, settings GeminiSettings, log *zap.Logger, opts ...GeminiOption) *geminiService {
	if log == nil {
		log = zap.NewNop()
	}
	if settings.Model == "" {
		settings.Model = "gemini-2.5-flash"
	}
	if settings.EmbedModel == "" {
		settings.EmbedModel = "text-embedding-004"
	}
	if settings.MaxRetries <= 0 {
		settings.MaxRetries = 1
	}

	g := &geminiService{
		models:   models,
		settings: settings,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete implements Gateway.
func (g *geminiService) Complete(ctx context.Context, systemPrompt, userPayload string, expectJSON bool) (Completion, error) {
	temperature := g.settings.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}
	if strings.TrimSpace(systemPrompt) != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if expectJSON {
		config.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 1; attempt <= g.settings.MaxRetries; attempt++ {
		text, err := g.generate(ctx, userPayload, config)
		if err == nil {
			return newCompletion(text, expectJSON)
		}
		lastErr = err

		if errors.Is(err, errNoReplyText) {
			return Completion{}, newError("gemini complete", ErrMalformedGatewayResponse, err)
		}
		if !retryable(err) || attempt == g.settings.MaxRetries {
			break
		}

		delay := backoffDelay(g.settings.RetryDelay, attempt)
		g.log.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := g.wait(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return Completion{}, newError("gemini complete", ErrGatewayUnavailable, lastErr)
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, maxEmbeddingChars)

	result, err := g.models.EmbedContent(ctx, g.settings.EmbedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

func (g *geminiService) generate(ctx context.Context, payload string, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.settings.Model, genai.Text(payload), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", errNoReplyText)
	}

	var builder strings.Builder
	var finishReason genai.FinishReason
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		finishReason = candidate.FinishReason
		if candidate.Content == nil {
			break
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// Only the first candidate carries the answer.
		break
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", errNoReplyText, resp.PromptFeedback.BlockReason)
		}
		if finishReason != "" {
			return "", fmt.Errorf("%w: finish reason %s", errNoReplyText, finishReason)
		}
		return "", errNoReplyText
	}
	return output, nil
}

func (g *geminiService) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if g.sleeper != nil {
		g.sleeper(delay)
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryable reports whether a failed generate call is worth repeating.
// Rate limits and server errors are; client errors and cancellation are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	return true
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base << (attempt - 1)
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}
