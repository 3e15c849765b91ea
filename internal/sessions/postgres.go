package sessions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id    TEXT NOT NULL,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	feedback   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_interview_sessions_user_created
	ON interview_sessions (user_id, created_at DESC);
`

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool to databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrStoreUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrStoreUnavailable, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the sessions table and its index if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Append inserts sess and returns the generated ID. sess.ID and
// sess.CreatedAt are ignored.
func (s *PostgresStore) Append(ctx context.Context, sess Session) (uuid.UUID, error) {
	feedbackJSON, err := json.Marshal(sess.Feedback)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal feedback: %w", err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx,
		`INSERT INTO interview_sessions (user_id, question, answer, feedback)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		sess.UserID, sess.Question, sess.Answer, feedbackJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: insert session: %v", ErrStoreUnavailable, err)
	}
	return id, nil
}

// List returns up to limit sessions of userID, newest first.
func (s *PostgresStore) List(ctx context.Context, userID string, limit int) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, question, answer, feedback, created_at
		 FROM interview_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var sess Session
		var feedbackJSON []byte
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Question, &sess.Answer, &feedbackJSON, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan session: %v", ErrStoreUnavailable, err)
		}
		if err := json.Unmarshal(feedbackJSON, &sess.Feedback); err != nil {
			return nil, fmt.Errorf("decode feedback of session %s: %w", sess.ID, err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sessions: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var _ Store = (*PostgresStore)(nil)
