package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
)

type slotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) SlotRepository {
	return &slotRepository{pool: pool}
}

const slotCols = `id, slot_date, start_time, duration_minutes, is_booked, version, created_at`

func scanSlot(row pgx.Row) (*domain.Slot, error) {
	var (
		s     domain.Slot
		date  time.Time
		start pgtype.Time
	)
	if err := row.Scan(&s.ID, &date, &start, &s.DurationMinutes, &s.IsBooked, &s.Version, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Date = domain.DateOf(date)
	s.StartTime = domain.TimeOfDayFromMicroseconds(start.Microseconds)
	return &s, nil
}

func pgTime(t domain.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}

func (r *slotRepository) CreateMissing(ctx context.Context, date domain.Date, times []domain.TimeOfDay, durationMinutes int) ([]domain.Slot, error) {
	const q = `INSERT INTO slots (id, slot_date, start_time, duration_minutes)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (slot_date, start_time) DO NOTHING
	RETURNING ` + slotCols

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created := make([]domain.Slot, 0, len(times))
	for _, t := range times {
		s, err := scanSlot(tx.QueryRow(ctx, q, uuid.NewString(), date.Time(), pgTime(t), durationMinutes))
		if errors.Is(err, pgx.ErrNoRows) {
			continue // already exists
		}
		if err != nil {
			return nil, fmt.Errorf("insert slot %s %s: %w", date, t, mapPgError(err))
		}
		created = append(created, *s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit slots: %w", mapPgError(err))
	}
	return created, nil
}

func (r *slotRepository) ListAvailable(ctx context.Context, date domain.Date) ([]domain.Slot, error) {
	const q = `SELECT ` + slotCols + ` FROM slots
	WHERE slot_date = $1 AND NOT is_booked
	ORDER BY start_time ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, date.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []domain.Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

func (r *slotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	const q = `SELECT ` + slotCols + ` FROM slots WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s, err := scanSlot(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return s, nil
}
