package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
)

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, slot_id, requester_name, requester_email, notes,
status, user_id, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.SlotID, &b.RequesterName, &b.RequesterEmail, &b.Notes,
		&b.Status, &b.UserID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	q := `SELECT ` + bookingCols + ` FROM bookings`
	args := []any{}
	if filter.Status != nil {
		q += ` WHERE status=$1`
		args = append(args, *filter.Status)
	}
	q += ` ORDER BY CASE status WHEN 'pending' THEN 0 WHEN 'scheduled' THEN 1 ELSE 2 END, created_at DESC`
	q += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
	args = append(args, offset)
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	const q = `UPDATE bookings SET status=$3, updated_at=now()
	WHERE id=$1 AND status=$2
	RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, from, to))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapPgError(err)
	}

	// Nothing matched: either the booking is missing or it already left from.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidStateTransition, id, current.Status)
}
