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

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

// ClaimSlot runs read-check-set-insert in one SERIALIZABLE transaction with the
// slot row locked. The unique index on bookings(slot_id) backs the same rule.
func (r *reservationRepository) ClaimSlot(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", mapPgError(err))
	}
	defer tx.Rollback(ctx)

	var isBooked bool
	err = tx.QueryRow(ctx, `SELECT is_booked FROM slots WHERE id = $1 FOR UPDATE`, b.SlotID).Scan(&isBooked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock slot: %w", mapPgError(err))
	}
	if isBooked {
		return nil, domain.ErrSlotUnavailable
	}

	tag, err := tx.Exec(ctx, `UPDATE slots SET is_booked = true, version = version + 1
	WHERE id = $1 AND NOT is_booked`, b.SlotID)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", mapPgError(err))
	}
	if tag.RowsAffected() != 1 {
		return nil, domain.ErrSlotUnavailable
	}

	const insert = `INSERT INTO bookings (id, slot_id, requester_name, requester_email, notes, status, user_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + bookingCols
	created, err := scanBooking(tx.QueryRow(ctx, insert,
		b.ID, b.SlotID, b.RequesterName, b.RequesterEmail, b.Notes, domain.BookingPending, b.UserID,
	))
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", mapPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", mapPgError(err))
	}
	return created, nil
}
