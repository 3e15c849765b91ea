package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/sessions"
	"github.com/jonathan/interview-coach/internal/types"
)

const msgStoreNotConfigured = "Session store not configured"

// authorizeUser checks that the verified caller is the user being accessed.
func authorizeUser(r *http.Request, userID string) error {
	callerID, err := middleware.GetUserID(r)
	if err != nil {
		return middleware.ErrInvalidToken
	}
	if callerID != userID {
		return &ErrForbidden{CallerID: callerID, RequestedID: userID}
	}
	return nil
}

func (s *Server) writeAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("session access denied", zap.String("path", r.URL.Path), zap.Error(err))
	if HTTPStatus(err) == http.StatusUnauthorized {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized: invalid token")
		return
	}
	s.errorResponse(w, http.StatusForbidden, "Forbidden")
}

// handleSaveResult stores one analyzed exchange for the caller.
func (s *Server) handleSaveResult(w http.ResponseWriter, r *http.Request) {
	saved := false
	fail := func(status int, errMsg string, err error) {
		resp := types.ErrorResponse{Error: errMsg, Saved: &saved}
		if err != nil {
			resp.Message = s.errorDetail(err)
		}
		s.jsonResponse(w, status, resp)
	}

	var req types.SaveResultRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDecodeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, types.MsgMissingSaveFields)
		return
	}
	if err := authorizeUser(r, req.UserID); err != nil {
		s.writeAuthzError(w, r, err)
		return
	}
	if s.store == nil {
		fail(http.StatusInternalServerError, msgStoreNotConfigured, nil)
		return
	}

	result, err := s.feedbackForStorage(req.Feedback)
	if err != nil {
		fail(http.StatusBadRequest, "Invalid feedback", err)
		return
	}

	id, err := s.store.Append(r.Context(), sessions.Session{
		UserID:   req.UserID,
		Question: req.Question,
		Answer:   req.Answer,
		Feedback: result,
	})
	if err != nil {
		s.logger.Error("save session failed", zap.String("user_id", req.UserID), zap.Error(err))
		fail(http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	s.logger.Info("session saved", zap.String("user_id", req.UserID), zap.Stringer("session_id", id))
	s.jsonResponse(w, http.StatusOK, types.SaveResultResponse{
		Success:   true,
		SessionID: id.String(),
		Message:   "Session saved successfully",
	})
}

// feedbackForStorage decodes client-supplied feedback. Documents that do not
// match the feedback schema go through the normalizer first.
func (s *Server) feedbackForStorage(raw []byte) (feedback.FeedbackResult, error) {
	err := schemas.ValidateFeedback(raw)
	if err == nil {
		var result feedback.FeedbackResult
		if err = json.Unmarshal(raw, &result); err == nil {
			return result, nil
		}
	}

	s.logger.Warn("stored feedback does not match schema, normalizing", zap.Error(err))
	return feedback.Normalize(string(raw), feedback.WithLogger(s.logger))
}

// handleHistory lists the caller's sessions, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	empty := []types.SessionView{}
	fail := func(status int, errMsg string, err error) {
		resp := types.ErrorResponse{Error: errMsg, Sessions: &empty}
		if err != nil {
			resp.Message = s.errorDetail(err)
		}
		s.jsonResponse(w, status, resp)
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, types.MsgMissingUserID)
		return
	}
	if err := authorizeUser(r, userID); err != nil {
		s.writeAuthzError(w, r, err)
		return
	}
	if s.store == nil {
		fail(http.StatusInternalServerError, msgStoreNotConfigured, nil)
		return
	}

	// Unparseable limits fall back to the default, like a missing one.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.store.List(r.Context(), userID, sessions.NormalizeLimit(limit))
	if err != nil {
		s.logger.Error("fetch history failed", zap.String("user_id", userID), zap.Error(err))
		fail(http.StatusInternalServerError, "Failed to fetch session history", err)
		return
	}

	views := make([]types.SessionView, 0, len(list))
	for _, sess := range list {
		views = append(views, types.SessionView{
			ID:        sess.ID.String(),
			UserID:    sess.UserID,
			Question:  sess.Question,
			Answer:    sess.Answer,
			Feedback:  sess.Feedback,
			CreatedAt: sess.CreatedAt,
		})
	}

	s.logger.Debug("history retrieved", zap.String("user_id", userID), zap.Int("count", len(views)))
	s.jsonResponse(w, http.StatusOK, types.HistoryResponse{
		Success:  true,
		Sessions: views,
		Count:    len(views),
	})
}
