package feedback

import (
	"errors"
)

// Sentinel errors returned by Analyzer.Analyze.
var (
	// ErrUpstreamUnavailable means the model service is misconfigured or unreachable.
	ErrUpstreamUnavailable = errors.New("model service unavailable")
	// ErrUpstreamTimeout means the model service did not answer in time.
	ErrUpstreamTimeout = errors.New("model service timed out")
	// ErrNoJSONObject means the text contains no {...} span at all.
	ErrNoJSONObject = errors.New("no JSON object found in model output")
)

// UnparseableResponseError reports that no JSON object could be recovered from
// the model output by either the strict or the extracting parser.
type UnparseableResponseError struct {
	StrictErr  error
	ExtractErr error
}

func (e *UnparseableResponseError) Error() string {
	return "could not extract structured data from model output"
}

// Unwrap exposes both stage failures to errors.Is and errors.As.
func (e *UnparseableResponseError) Unwrap() []error {
	var errs []error
	if e.StrictErr != nil {
		errs = append(errs, e.StrictErr)
	}
	if e.ExtractErr != nil {
		errs = append(errs, e.ExtractErr)
	}
	return errs
}

// Detail returns the underlying stage errors, for development-mode responses.
func (e *UnparseableResponseError) Detail() string {
	joined := errors.Join(e.Unwrap()...)
	if joined == nil {
		return e.Error()
	}
	return joined.Error()
}
