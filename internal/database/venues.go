package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courtbook/internal/domain"
	"courtbook/internal/models"
)

// queries implements the repositories on top of a *sql.DB or *sql.Tx.
type queries struct {
	q querier
}

func (s *queries) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	query := `SELECT id, name, timezone, opening_hours, buffer_minutes, active, created_at, updated_at
		FROM venues WHERE id = ?`

	var (
		venue models.Venue
		hours string
	)
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&venue.ID, &venue.Name, &venue.Timezone, &hours, &venue.BufferMinutes,
		&venue.Active, &venue.CreatedAt, &venue.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	if err := json.Unmarshal([]byte(hours), &venue.OpeningHours); err != nil {
		return nil, fmt.Errorf("failed to decode opening hours of venue %s: %w", id, err)
	}
	return &venue, nil
}

func (s *queries) UpsertVenue(ctx context.Context, venue *models.Venue) error {
	hours, err := json.Marshal(venue.OpeningHours)
	if err != nil {
		return fmt.Errorf("failed to encode opening hours: %w", err)
	}

	now := time.Now().UTC()
	query := `INSERT INTO venues (id, name, timezone, opening_hours, buffer_minutes, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timezone = excluded.timezone,
			opening_hours = excluded.opening_hours,
			buffer_minutes = excluded.buffer_minutes,
			active = excluded.active,
			updated_at = excluded.updated_at`
	_, err = s.q.ExecContext(ctx, query,
		venue.ID, venue.Name, venue.Timezone, string(hours), venue.BufferMinutes, venue.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert venue: %w", err)
	}
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = now
	}
	venue.UpdatedAt = now
	return nil
}

func (s *queries) GetCourt(ctx context.Context, id string) (*models.Court, error) {
	query := `SELECT id, venue_id, name, surface, status, active, created_at, updated_at
		FROM courts WHERE id = ?`

	court, err := scanCourt(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourtNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get court: %w", err)
	}
	return court, nil
}

func (s *queries) ListCourts(ctx context.Context, venueID string) ([]*models.Court, error) {
	query := `SELECT id, venue_id, name, surface, status, active, created_at, updated_at
		FROM courts WHERE venue_id = ? ORDER BY name`

	rows, err := s.q.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list courts: %w", err)
	}
	defer rows.Close()

	var courts []*models.Court
	for rows.Next() {
		court, err := scanCourt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan court: %w", err)
		}
		courts = append(courts, court)
	}
	return courts, rows.Err()
}

func (s *queries) UpsertCourt(ctx context.Context, court *models.Court) error {
	if court.Status == "" {
		court.Status = models.CourtStatusActive
	}

	now := time.Now().UTC()
	query := `INSERT INTO courts (id, venue_id, name, surface, status, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			surface = excluded.surface,
			status = excluded.status,
			active = excluded.active,
			updated_at = excluded.updated_at
		WHERE courts.venue_id = excluded.venue_id`
	res, err := s.q.ExecContext(ctx, query,
		court.ID, court.VenueID, court.Name, court.Surface, court.Status, court.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert court: %w", err)
	}
	// A court never changes venue; the guarded update leaves such rows untouched.
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to upsert court: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("court %s is registered under another venue: %w", court.ID, domain.ErrCourtVenueMismatch)
	}
	if court.CreatedAt.IsZero() {
		court.CreatedAt = now
	}
	court.UpdatedAt = now
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourt(row rowScanner) (*models.Court, error) {
	var court models.Court
	err := row.Scan(
		&court.ID, &court.VenueID, &court.Name, &court.Surface, &court.Status,
		&court.Active, &court.CreatedAt, &court.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &court, nil
}
