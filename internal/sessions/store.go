// Package sessions persists analyzed interview answers per user.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/feedback"
)

// ErrStoreUnavailable wraps every failure to reach or query the backing store.
var ErrStoreUnavailable = errors.New("session store unavailable")

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Session is one analyzed question/answer exchange.
type Session struct {
	ID        uuid.UUID               `json:"id"`
	UserID    string                  `json:"userId"`
	Question  string                  `json:"question"`
	Answer    string                  `json:"answer"`
	Feedback  feedback.FeedbackResult `json:"feedback"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Store records sessions and lists them newest first.
type Store interface {
	Append(ctx context.Context, s Session) (uuid.UUID, error)
	List(ctx context.Context, userID string, limit int) ([]Session, error)
	Ping(ctx context.Context) error
	Close()
}

// NormalizeLimit maps a requested history size onto [1, MaxHistoryLimit].
// Zero or negative means DefaultHistoryLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return min(limit, MaxHistoryLimit)
}
