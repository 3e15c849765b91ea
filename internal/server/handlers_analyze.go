package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/types"
)

// decodeJSON reads one JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Message: "request body is empty"}
		}
		return &ErrValidation{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// writeDecodeError answers a body that could not be decoded.
func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	if HTTPStatus(err) == http.StatusRequestEntityTooLarge {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	s.jsonResponse(w, http.StatusBadRequest, types.ErrorResponse{
		Error:   "Invalid request body",
		Message: s.errorDetail(err),
	})
}

// handleAnalyze forwards a question/answer pair to the model and returns
// the normalized feedback.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.observeAnalyze("bad_request")
		s.writeDecodeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.metrics.observeAnalyze("bad_request")
		s.errorResponse(w, http.StatusBadRequest, types.MsgMissingAnalyzeFields)
		return
	}

	s.logger.Debug("analyzing response",
		zap.Int("question_length", len(req.Question)),
		zap.Int("answer_length", len(req.Answer)))

	result, err := s.analyzer.Analyze(r.Context(), req.Question, req.Answer)
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}

	s.metrics.observeAnalyze("ok")
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) writeAnalyzeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	s.logger.Error("analyze response failed", zap.Int("status", status), zap.Error(err))

	var unparseable *feedback.UnparseableResponseError
	switch {
	case status == http.StatusGatewayTimeout:
		s.metrics.observeAnalyze("timeout")
		s.errorResponse(w, status, "Request timeout - please try again")
	case errors.Is(err, feedback.ErrUpstreamUnavailable):
		s.metrics.observeAnalyze("unavailable")
		s.jsonResponse(w, status, types.ErrorResponse{
			Error:   "Model service unavailable",
			Message: s.errorDetail(err),
		})
	case errors.As(err, &unparseable):
		s.metrics.observeAnalyze("unparseable")
		s.jsonResponse(w, status, types.ErrorResponse{
			Error:   "Failed to analyze response",
			Message: s.errorDetail(err),
		})
	default:
		s.metrics.observeAnalyze("error")
		s.jsonResponse(w, status, types.ErrorResponse{
			Error:   "Failed to analyze response",
			Message: s.errorDetail(err),
		})
	}
}
