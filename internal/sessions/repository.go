package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists chat sessions in PostgreSQL.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("sessions: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("sessions: querier required")
	}
	return &Repository{pool: q}
}

// Load fetches a session by id, or nil when it does not exist.
func (r *Repository) Load(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	query := `SELECT user_id, messages, metadata FROM chat_sessions WHERE id = $1`

	var (
		userID   uuid.UUID
		messages []byte
		metadata []byte
	)
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(&userID, &messages, &metadata); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sessions: load: %w", err)
	}

	sess := &Session{ID: sessionID, UserID: userID}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &sess.Messages); err != nil {
			return nil, fmt.Errorf("sessions: decode messages: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &sess.Meta); err != nil {
			return nil, fmt.Errorf("sessions: decode metadata: %w", err)
		}
	}
	return sess, nil
}

// Ensure loads a session, creating an empty one when it does not exist yet.
// ErrUnknownUser is returned when the user row is missing, and
// ErrSessionOwnership when the session belongs to a different user.
func (r *Repository) Ensure(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	sess, err := r.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		if sess.UserID != userID {
			return nil, ErrSessionOwnership
		}
		return sess, nil
	}

	var exists int
	if err := r.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("sessions: user check: %w", err)
	}

	// Atomic upsert so concurrent requests creating the same session id race safely.
	insert := `
		INSERT INTO chat_sessions (id, user_id, messages, metadata)
		VALUES ($1, $2, '[]'::jsonb, '{}'::jsonb)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, sessionID, userID); err != nil {
		return nil, fmt.Errorf("sessions: create: %w", err)
	}

	sess, err = r.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("sessions: create did not persist session %s", sessionID)
	}
	if sess.UserID != userID {
		return nil, ErrSessionOwnership
	}
	return sess, nil
}

// Save writes the message log and metadata back. Last writer wins at the row
// level; the appointments unique index is what guards double booking.
func (r *Repository) Save(ctx context.Context, sessionID uuid.UUID, messages []Message, meta Metadata) error {
	msgJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("sessions: encode messages: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sessions: encode metadata: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE chat_sessions SET messages = $1, metadata = $2 WHERE id = $3`, msgJSON, metaJSON, sessionID)
	if err != nil {
		return fmt.Errorf("sessions: save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
