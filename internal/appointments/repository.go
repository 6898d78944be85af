// Package appointments persists bookings in PostgreSQL. Double-booking
// prevention relies on a partial unique index over BOOKED start times, so a
// losing writer sees ErrAlreadyBooked rather than a second row.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clearbook/booking-assistant/internal/temporal"
)

var tracer = otel.Tracer("clearbook.internal.appointments")

// ErrAlreadyBooked signals a uniqueness race on insert: another appointment
// occupies the slot. Callers treat this as a conflict, not a fault.
var ErrAlreadyBooked = errors.New("appointments: slot already booked")

const uniqueViolation = "23505"

// Appointment statuses.
const (
	StatusBooked    = "BOOKED"
	StatusCancelled = "CANCELLED"
)

// Appointment is a stored booking.
type Appointment struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	ServiceType string
	Status      string
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for appointments.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("appointments: querier required")
	}
	return &Repository{pool: q}
}

// IsSlotTaken reports whether any BOOKED appointment overlaps the one-hour
// slot starting at startUTC. Rows without a stored end time count as one
// hour long.
func (r *Repository) IsSlotTaken(ctx context.Context, startUTC time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "appointments.is_slot_taken")
	defer span.End()
	span.SetAttributes(attribute.String("clearbook.start_utc", startUTC.Format(time.RFC3339)))

	endUTC := startUTC.Add(temporal.SlotDuration)
	query := `
		SELECT id
		FROM appointments
		WHERE status = 'BOOKED'
		  AND start_time < $1
		  AND COALESCE(end_time, start_time + interval '1 hour') > $2
		LIMIT 1
	`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, endUTC, startUTC).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("appointments: slot check: %w", err)
	}
	return true, nil
}

// Create inserts a BOOKED appointment and returns its identifier. A unique
// violation on the slot index surfaces as ErrAlreadyBooked.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, startUTC, endUTC time.Time, serviceType string) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(attribute.String("clearbook.service_type", serviceType))

	query := `
		INSERT INTO appointments (id, user_id, start_time, end_time, service_type, status)
		VALUES ($1, $2, $3, $4, $5, 'BOOKED')
		RETURNING id
	`
	id := uuid.New()
	if err := r.pool.QueryRow(ctx, query, id, userID, startUTC, endUTC, serviceType).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, ErrAlreadyBooked
		}
		return uuid.Nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return id, nil
}

// LatestBooked returns the user's most recent BOOKED appointment, or nil
// when there is none.
func (r *Repository) LatestBooked(ctx context.Context, userID uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, start_time, COALESCE(end_time, start_time + interval '1 hour'), service_type
		FROM appointments
		WHERE user_id = $1 AND status = 'BOOKED'
		ORDER BY start_time DESC
		LIMIT 1
	`
	appt := Appointment{UserID: userID, Status: StatusBooked}
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&appt.ID, &appt.StartTime, &appt.EndTime, &appt.ServiceType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: latest booked: %w", err)
	}
	return &appt, nil
}

// CancelLatestBooked marks the user's most recent BOOKED appointment as
// CANCELLED. Best-effort: returns nil when nothing was booked.
func (r *Repository) CancelLatestBooked(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	query := `
		WITH latest AS (
			SELECT id
			FROM appointments
			WHERE user_id = $1 AND status = 'BOOKED'
			ORDER BY start_time DESC
			LIMIT 1
		)
		UPDATE appointments
		SET status = 'CANCELLED'
		WHERE id IN (SELECT id FROM latest)
		RETURNING id
	`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: cancel latest: %w", err)
	}
	return &id, nil
}
