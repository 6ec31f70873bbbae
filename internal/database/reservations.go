package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courtbook/internal/domain"
	"courtbook/internal/models"
)

const reservationColumns = `id, venue_id, court_id, user_id, date, start_time, end_time, state, hold_expiry,
	idempotency_key, confirm_idempotency_key, cancel_idempotency_key, cancel_reason,
	total, currency, payment_captured, reprogrammed_from, reprogrammed_to, active, created_at, updated_at`

func (s *queries) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

	r, err := scanReservation(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (s *queries) GetReservationByIdempotencyKey(ctx context.Context, key string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE idempotency_key = ?`

	r, err := scanReservation(s.q.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation by idempotency key: %w", err)
	}
	return r, nil
}

func (s *queries) ListBlockingReservations(ctx context.Context, courtID, date string) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE court_id = ? AND date = ? AND active = 1 AND state IN (?, ?, ?)
		ORDER BY start_time`

	rows, err := s.q.QueryContext(ctx, query, courtID, date,
		models.StateHold, models.StatePending, models.StateConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return collectReservations(rows)
}

// ListExpiredHolds returns active holds whose expiry is at or before now.
func (s *queries) ListExpiredHolds(ctx context.Context, now time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE state = ? AND active = 1 AND hold_expiry IS NOT NULL`

	rows, err := s.q.QueryContext(ctx, query, models.StateHold)
	if err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}
	holds, err := collectReservations(rows)
	if err != nil {
		return nil, err
	}

	expired := holds[:0]
	for _, r := range holds {
		if r.HoldExpired(now) {
			expired = append(expired, r)
		}
	}
	return expired, nil
}

// CreateReservation inserts r. A collision on any idempotency key yields
// domain.ErrDuplicateIdempotencyKey.
func (s *queries) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		r.ID, r.VenueID, r.CourtID, r.UserID, r.Date, r.Start, r.End, string(r.State), nullTime(r.HoldExpiry),
		nullString(r.IdempotencyKey), nullString(r.ConfirmIdempotencyKey), nullString(r.CancelIdempotencyKey), r.CancelReason,
		r.Total, r.Currency, r.PaymentCaptured, nullString(r.ReprogrammedFrom), nullString(r.ReprogrammedTo), r.Active,
		r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (s *queries) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	query := `UPDATE reservations SET
			state = ?,
			hold_expiry = ?,
			confirm_idempotency_key = ?,
			cancel_idempotency_key = ?,
			cancel_reason = ?,
			payment_captured = ?,
			reprogrammed_to = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?`

	res, err := s.q.ExecContext(ctx, query,
		string(r.State), nullTime(r.HoldExpiry), nullString(r.ConfirmIdempotencyKey), nullString(r.CancelIdempotencyKey),
		r.CancelReason, r.PaymentCaptured, nullString(r.ReprogrammedTo), r.Active, r.UpdatedAt.UTC(), r.ID,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (s *queries) AppendHistory(ctx context.Context, h *models.ReservationHistory) error {
	query := `INSERT INTO reservation_history (id, reservation_id, prior_state, new_state, actor_user_id, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q.ExecContext(ctx, query,
		h.ID, h.ReservationID, string(h.PriorState), string(h.NewState), h.ActorUserID, h.Comment, h.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append reservation history: %w", err)
	}
	return nil
}

// ListHistory returns the history of a reservation, newest first.
func (s *queries) ListHistory(ctx context.Context, reservationID string) ([]*models.ReservationHistory, error) {
	query := `SELECT id, reservation_id, prior_state, new_state, actor_user_id, comment, created_at
		FROM reservation_history WHERE reservation_id = ?
		ORDER BY created_at DESC, rowid DESC`

	rows, err := s.q.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservation history: %w", err)
	}
	defer rows.Close()

	var history []*models.ReservationHistory
	for rows.Next() {
		var (
			h            models.ReservationHistory
			prior, state string
		)
		if err := rows.Scan(&h.ID, &h.ReservationID, &prior, &state, &h.ActorUserID, &h.Comment, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reservation history: %w", err)
		}
		h.PriorState = models.ReservationState(prior)
		h.NewState = models.ReservationState(state)
		history = append(history, &h)
	}
	return history, rows.Err()
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	defer rows.Close()

	var out []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r                          models.Reservation
		state                      string
		holdExpiry                 sql.NullTime
		key, confirmKey, cancelKey sql.NullString
		reprogFrom, reprogTo       sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.VenueID, &r.CourtID, &r.UserID, &r.Date, &r.Start, &r.End, &state, &holdExpiry,
		&key, &confirmKey, &cancelKey, &r.CancelReason,
		&r.Total, &r.Currency, &r.PaymentCaptured, &reprogFrom, &reprogTo, &r.Active, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.State = models.ReservationState(state)
	if holdExpiry.Valid {
		expiry := holdExpiry.Time.UTC()
		r.HoldExpiry = &expiry
	}
	r.IdempotencyKey = key.String
	r.ConfirmIdempotencyKey = confirmKey.String
	r.CancelIdempotencyKey = cancelKey.String
	r.ReprogrammedFrom = reprogFrom.String
	r.ReprogrammedTo = reprogTo.String
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
