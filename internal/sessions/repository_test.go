package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/clearbook/booking-assistant/internal/slots"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, newRepositoryWithQuerier(mock)
}

func TestEnsureCreatesMissingSession(t *testing.T) {
	mock, repo := newMockRepo(t)
	userID := uuid.New()
	sessionID := uuid.New()

	mock.ExpectQuery("SELECT user_id, messages, metadata").
		WithArgs(sessionID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs(sessionID, userID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT user_id, messages, metadata").
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "messages", "metadata"}).
			AddRow(userID, []byte(`[]`), []byte(`{}`)))

	sess, err := repo.Ensure(context.Background(), userID, sessionID)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if sess.UserID != userID || sess.ID != sessionID {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureRejectsForeignSession(t *testing.T) {
	mock, repo := newMockRepo(t)
	owner := uuid.New()
	intruder := uuid.New()
	sessionID := uuid.New()

	mock.ExpectQuery("SELECT user_id, messages, metadata").
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "messages", "metadata"}).
			AddRow(owner, []byte(`[]`), []byte(`{}`)))

	if _, err := repo.Ensure(context.Background(), intruder, sessionID); !errors.Is(err, ErrSessionOwnership) {
		t.Fatalf("expected ErrSessionOwnership, got %v", err)
	}
}

func TestEnsureUnknownUser(t *testing.T) {
	mock, repo := newMockRepo(t)
	userID := uuid.New()
	sessionID := uuid.New()

	mock.ExpectQuery("SELECT user_id, messages, metadata").
		WithArgs(sessionID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Ensure(context.Background(), userID, sessionID); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLoadDecodesMetadata(t *testing.T) {
	mock, repo := newMockRepo(t)
	userID := uuid.New()
	sessionID := uuid.New()

	meta := Metadata{
		Slots: slots.Set{Intent: slots.IntentBooking, Date: "2026-03-20"},
		State: StateCollecting,
	}
	metaJSON, _ := json.Marshal(meta)
	msgs := []Message{{Role: "user", Content: "hi", TS: time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)}}
	msgJSON, _ := json.Marshal(msgs)

	mock.ExpectQuery("SELECT user_id, messages, metadata").
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "messages", "metadata"}).
			AddRow(userID, msgJSON, metaJSON))

	sess, err := repo.Load(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if sess.Meta.State != StateCollecting || sess.Meta.Slots.Date != "2026-03-20" {
		t.Fatalf("metadata not decoded: %+v", sess.Meta)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Content != "hi" {
		t.Fatalf("messages not decoded: %+v", sess.Messages)
	}
}

func TestSaveMissingSession(t *testing.T) {
	mock, repo := newMockRepo(t)
	sessionID := uuid.New()

	mock.ExpectExec("UPDATE chat_sessions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), sessionID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Save(context.Background(), sessionID, nil, Metadata{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
