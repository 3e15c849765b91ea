// Package types holds the request and response bodies of the HTTP API.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/interview-coach/internal/feedback"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Messages returned with 400 responses, kept stable for the web client.
const (
	MsgMissingAnalyzeFields = "Missing required fields: question and answer"
	MsgMissingSaveFields    = "Missing required fields: userId, question, answer, feedback"
	MsgMissingUserID        = "Missing userId parameter"
)

// AnalyzeRequest is the body of POST /api/analyze-response.
type AnalyzeRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Validate reports missing fields.
func (r *AnalyzeRequest) Validate() error {
	return validate.Struct(r)
}

// SaveResultRequest is the body of POST /api/save-result.
// Feedback is kept raw so it can be schema-checked before decoding.
type SaveResultRequest struct {
	UserID   string          `json:"userId" validate:"required"`
	Question string          `json:"question" validate:"required"`
	Answer   string          `json:"answer" validate:"required"`
	Feedback json.RawMessage `json:"feedback" validate:"required"`
}

// Validate reports missing fields. A JSON null feedback counts as missing.
func (r *SaveResultRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(r.Feedback), []byte("null")) {
		return errors.New("feedback is required")
	}
	return nil
}

// MissingFields lists the JSON names of the fields that failed validation.
func MissingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// SaveResultResponse is the success body of POST /api/save-result.
type SaveResultResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// SessionView is one entry of a history response.
type SessionView struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"userId"`
	Question  string                  `json:"question"`
	Answer    string                  `json:"answer"`
	Feedback  feedback.FeedbackResult `json:"feedback"`
	CreatedAt time.Time               `json:"createdAt"`
}

// HistoryResponse is the success body of GET /api/history.
type HistoryResponse struct {
	Success  bool          `json:"success"`
	Sessions []SessionView `json:"sessions"`
	Count    int           `json:"count"`
}

// HealthServices reports which backing services are configured.
type HealthServices struct {
	Gemini bool `json:"gemini"`
	Store  bool `json:"store"`
}

// HealthMemory summarizes process memory in bytes.
type HealthMemory struct {
	Sys        uint64 `json:"sys"`
	HeapTotal  uint64 `json:"heapTotal"`
	HeapUsed   uint64 `json:"heapUsed"`
	Goroutines int    `json:"goroutines"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Uptime      float64        `json:"uptime"`
	Environment string         `json:"environment"`
	Version     string         `json:"version"`
	Memory      HealthMemory   `json:"memory"`
	Services    HealthServices `json:"services"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// ErrorResponse is the body of every error reply. Saved and Sessions are set
// only by the session endpoints.
type ErrorResponse struct {
	Error    string         `json:"error"`
	Message  string         `json:"message,omitempty"`
	Saved    *bool          `json:"saved,omitempty"`
	Sessions *[]SessionView `json:"sessions,omitempty"`
}
