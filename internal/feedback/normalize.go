package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ParseStage identifies which parser produced a ParseResult.
type ParseStage int

const (
	// StageStrict means the whole trimmed text was a JSON object.
	StageStrict ParseStage = iota + 1
	// StageExtracted means a JSON object was recovered from inside surrounding text.
	StageExtracted
	// StageFailed means neither parser produced an object.
	StageFailed
)

func (s ParseStage) String() string {
	switch s {
	case StageStrict:
		return "strict"
	case StageExtracted:
		return "extracted"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseResult is the outcome of the two-stage parse.
// Object is set for StageStrict and StageExtracted; Err is set for StageFailed.
type ParseResult struct {
	Stage  ParseStage
	Object map[string]any
	Err    error
}

// Report describes what Normalize had to repair.
type Report struct {
	Stage         ParseStage
	MissingFields []string
	ScoreAdjusted bool
	UnknownTone   bool
}

// Option configures Normalize.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	observer func(Report)
}

// WithLogger logs parse fallbacks and missing fields to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver calls fn with the repair report of every successful Normalize.
func WithObserver(fn func(Report)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// Parse locates a JSON object in raw model output.
//
// It first decodes the trimmed text strictly. If that fails it decodes the
// greedy span from the first '{' to the last '}'.
func Parse(raw string) ParseResult {
	obj, strictErr := decodeObject(strings.TrimSpace(raw))
	if strictErr == nil {
		return ParseResult{Stage: StageStrict, Object: obj}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ParseResult{
			Stage: StageFailed,
			Err:   &UnparseableResponseError{StrictErr: strictErr, ExtractErr: ErrNoJSONObject},
		}
	}

	obj, extractErr := decodeObject(raw[start : end+1])
	if extractErr != nil {
		return ParseResult{
			Stage: StageFailed,
			Err:   &UnparseableResponseError{StrictErr: strictErr, ExtractErr: extractErr},
		}
	}
	return ParseResult{Stage: StageExtracted, Object: obj}
}

// decodeObject decodes text as exactly one JSON object. Numbers are kept as
// json.Number so that values outside float64 range do not fail the decode.
func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("decode JSON object: got null")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode JSON object: unexpected data after object")
	}
	return obj, nil
}

// Normalize converts raw model output into a complete FeedbackResult.
//
// The only error it returns is *UnparseableResponseError, when no JSON object
// can be located in raw. Any recovered object, however partial, yields a fully
// populated result with the score clamped to [MinScore, MaxScore].
func Normalize(raw string, opts ...Option) (FeedbackResult, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	parsed := Parse(raw)
	if parsed.Stage == StageFailed {
		o.logger.Warn("could not parse model output", zap.Error(parsed.Err), zap.Int("length", len(raw)))
		return FeedbackResult{}, parsed.Err
	}
	if parsed.Stage == StageExtracted {
		o.logger.Warn("model output was not pure JSON, extracted embedded object")
	}

	result, report := FromObject(parsed.Object)
	report.Stage = parsed.Stage
	if len(report.MissingFields) > 0 {
		o.logger.Warn("model response missing fields", zap.Strings("fields", report.MissingFields))
	}
	if o.observer != nil {
		o.observer(report)
	}
	return result, nil
}

// FromObject builds a FeedbackResult from a decoded JSON object, filling
// missing or ill-typed fields with defaults.
func FromObject(obj map[string]any) (FeedbackResult, Report) {
	var report Report
	for _, field := range RequiredFields {
		if _, ok := obj[field]; !ok {
			report.MissingFields = append(report.MissingFields, field)
		}
	}

	result := FeedbackResult{
		Tone:          stringOr(obj[FieldTone], DefaultTone),
		FillerWords:   stringSlice(obj[FieldFillerWords]),
		GrammarIssues: stringSlice(obj[FieldGrammarIssues]),
		Relevance:     stringOr(obj[FieldRelevance], DefaultRelevance),
		Suggestions:   stringOr(obj[FieldSuggestions], DefaultSuggestions),
		FollowUp:      stringOr(obj[FieldFollowUp], DefaultFollowUp),
	}

	rawScore := obj[FieldScore]
	given, isNumber := numberValue(rawScore)
	if len(report.MissingFields) > 0 && !isNumber {
		// A repaired object only keeps a score that is already numeric.
		rawScore = DefaultScore
	}
	result.Score = ClampScore(rawScore)
	report.ScoreAdjusted = !isNumber || given != float64(result.Score)

	report.UnknownTone = !KnownTone(result.Tone)
	return result, report
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case json.Number:
			out = append(out, s.String())
		case float64, bool:
			out = append(out, fmt.Sprint(s))
		}
	}
	return out
}
