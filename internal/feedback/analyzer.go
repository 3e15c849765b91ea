package feedback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
)

// Analyzer asks the model for feedback on an answer and normalizes the reply.
// It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	client   llm.Client
	tier     llm.ModelTier
	logger   *zap.Logger
	observer func(Report)
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithTier selects the model tier used for analysis.
func WithTier(tier llm.ModelTier) AnalyzerOption {
	return func(a *Analyzer) { a.tier = tier }
}

// WithReportObserver forwards every normalization report to fn.
func WithReportObserver(fn func(Report)) AnalyzerOption {
	return func(a *Analyzer) { a.observer = fn }
}

// NewAnalyzer creates an Analyzer backed by client.
func NewAnalyzer(client llm.Client, logger *zap.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		client: client,
		tier:   llm.TierStandard,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns normalized feedback for answer given question.
//
// Errors are ErrUpstreamTimeout, ErrUpstreamUnavailable or
// *UnparseableResponseError, each wrapping the underlying cause, or the
// provider's error unchanged when it fits none of those.
func (a *Analyzer) Analyze(ctx context.Context, question, answer string) (FeedbackResult, error) {
	if a.client == nil {
		return FeedbackResult{}, fmt.Errorf("%w: no model client configured", ErrUpstreamUnavailable)
	}

	prompt, err := prompts.AnalyzeResponse(question, answer)
	if err != nil {
		return FeedbackResult{}, fmt.Errorf("build prompt: %w", err)
	}

	text, err := a.client.GenerateJSON(ctx, prompt, a.tier)
	if err != nil {
		err = llm.Classify(err)
		switch {
		case errors.Is(err, llm.ErrTimeout):
			return FeedbackResult{}, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		case errors.Is(err, llm.ErrUnavailable):
			return FeedbackResult{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		default:
			return FeedbackResult{}, fmt.Errorf("generate feedback: %w", err)
		}
	}

	opts := []Option{WithLogger(a.logger)}
	if a.observer != nil {
		opts = append(opts, WithObserver(a.observer))
	}
	return Normalize(text, opts...)
}
