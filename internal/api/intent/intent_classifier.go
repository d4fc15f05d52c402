package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var (
	_ Classifier = (*LLMClassifier)(nil)
	_ Classifier = GeneralClassifier{}
)

// Classifier decides whether a query names one shop or asks about an area.
// It never fails: anything it cannot decide is general.
type Classifier interface {
	Classify(ctx context.Context, query string) types.Intent
}

// GeneralClassifier is used when no language model is configured.
type GeneralClassifier struct{}

func (GeneralClassifier) Classify(context.Context, string) types.Intent {
	return types.IntentGeneral
}

// Generator sends a prompt to a language model and returns its text reply.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

const classifyPrompt = `Analyze this coffee shop search query and determine if the user is looking for:

1. A SPECIFIC coffee shop (like "Blue Bottle Coffee", "Joe Coffee Company", "Starbucks on 5th Ave", "that cafe with the red door")
2. GENERAL coffee shops in an area (like "coffee near me", "best cafes", "cheap coffee", "coffee shops open late")

Query: %q

Respond with just one word: "specific" or "general"`

type LLMClassifier struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.AppMetrics
}

func NewLLMClassifier(generator Generator, timeout time.Duration, logger *slog.Logger, m *metrics.AppMetrics) *LLMClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LLMClassifier{
		generator: generator,
		timeout:   timeout,
		logger:    logger,
		metrics:   m,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) types.Intent {
	ctx, span := otel.Tracer("IntentClassifier").Start(ctx, "Classify", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	reply, err := c.generator.GenerateText(ctx, fmt.Sprintf(classifyPrompt, query))
	c.metrics.RecordExternalCall(ctx, "llm", "classify", time.Since(start), err)
	if err != nil {
		c.logger.WarnContext(ctx, "Intent classification failed, falling back to general",
			slog.String("query", query), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return types.IntentGeneral
	}

	intent := ParseIntent(reply)
	span.SetAttributes(attribute.String("intent", string(intent)))
	span.SetStatus(codes.Ok, "classified")
	return intent
}

// ParseIntent reads a single-word model reply. Anything but exactly
// "specific" or "general" counts as general.
func ParseIntent(reply string) types.Intent {
	switch types.Intent(strings.ToLower(strings.TrimSpace(reply))) {
	case types.IntentSpecific:
		return types.IntentSpecific
	default:
		return types.IntentGeneral
	}
}
