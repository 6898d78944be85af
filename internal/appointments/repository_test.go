package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
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

func TestIsSlotTaken(t *testing.T) {
	mock, repo := newMockRepo(t)
	start := time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id").
		WithArgs(start.Add(time.Hour), start).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	taken, err := repo.IsSlotTaken(context.Background(), start)
	if err != nil || !taken {
		t.Fatalf("expected taken slot, got taken=%v err=%v", taken, err)
	}

	mock.ExpectQuery("SELECT id").
		WithArgs(start.Add(time.Hour), start).
		WillReturnError(pgx.ErrNoRows)
	taken, err = repo.IsSlotTaken(context.Background(), start)
	if err != nil || taken {
		t.Fatalf("expected free slot, got taken=%v err=%v", taken, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	mock, repo := newMockRepo(t)
	userID := uuid.New()
	start := time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), userID, start, end, "consultation").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), userID, start, end, "consultation")
	if !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked, got %v", err)
	}

	id := uuid.New()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), userID, start, end, "general").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.Create(context.Background(), userID, start, end, "general")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got != id {
		t.Fatalf("Create returned %s, want %s", got, id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLatestBookedNone(t *testing.T) {
	mock, repo := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT id, start_time").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	appt, err := repo.LatestBooked(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt != nil {
		t.Fatalf("expected nil appointment, got %+v", appt)
	}
}

func TestCancelLatestBooked(t *testing.T) {
	mock, repo := newMockRepo(t)
	userID := uuid.New()
	cancelled := uuid.New()

	mock.ExpectQuery("WITH latest AS").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(cancelled))
	id, err := repo.CancelLatestBooked(context.Background(), userID)
	if err != nil || id == nil || *id != cancelled {
		t.Fatalf("got id=%v err=%v, want %s", id, err, cancelled)
	}

	mock.ExpectQuery("WITH latest AS").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)
	id, err = repo.CancelLatestBooked(context.Background(), userID)
	if err != nil || id != nil {
		t.Fatalf("expected best-effort nil result, got id=%v err=%v", id, err)
	}
}
