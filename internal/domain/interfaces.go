package domain

import (
	"context"
	"time"

	"courtbook/internal/models"
	"courtbook/internal/schedule"
)

type VenueRepository interface {
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
	UpsertVenue(ctx context.Context, venue *models.Venue) error
	GetCourt(ctx context.Context, id string) (*models.Court, error)
	ListCourts(ctx context.Context, venueID string) ([]*models.Court, error)
	UpsertCourt(ctx context.Context, court *models.Court) error
}

type TariffRepository interface {
	GetTariffRule(ctx context.Context, id string) (*models.TariffRule, error)
	// ListTariffRules returns active rules of one specificity level for a weekday.
	// An empty courtID selects venue-wide rules.
	ListTariffRules(ctx context.Context, venueID, courtID string, weekday schedule.Weekday) ([]*models.TariffRule, error)
	ListVenueTariffRules(ctx context.Context, venueID string) ([]*models.TariffRule, error)
	SaveTariffRule(ctx context.Context, rule *models.TariffRule) error
	DeactivateTariffRule(ctx context.Context, id string, at time.Time) error
}

type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationByIdempotencyKey(ctx context.Context, key string) (*models.Reservation, error)
	// ListBlockingReservations returns active hold, pending and confirmed
	// reservations of a court on a date, ordered by start.
	ListBlockingReservations(ctx context.Context, courtID, date string) ([]*models.Reservation, error)
	ListExpiredHolds(ctx context.Context, now time.Time) ([]*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	// UpdateReservation writes the mutable lifecycle columns only: state,
	// hold expiry, confirm/cancel keys, cancel reason, payment flag,
	// forward reprogram link, active flag and updated_at.
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	AppendHistory(ctx context.Context, h *models.ReservationHistory) error
	ListHistory(ctx context.Context, reservationID string) ([]*models.ReservationHistory, error)
}

// Store is the transactional persistence boundary. Repositories obtained
// inside InTx observe and write through the same transaction.
type Store interface {
	VenueRepository
	TariffRepository
	ReservationRepository
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// TariffCache is a best-effort read cache for resolved tariffs.
type TariffCache interface {
	Get(ctx context.Context, key string) (*models.TariffQuote, bool, error)
	Set(ctx context.Context, key string, quote *models.TariffQuote, ttl time.Duration) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
