package tariff

import (
	"context"
	"fmt"
	"strings"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/schedule"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// RuleInput is the full set of fields an operator may set on a rule.
type RuleInput struct {
	ID       string           `json:"id,omitempty"`
	VenueID  string           `json:"venue_id"`
	CourtID  string           `json:"court_id,omitempty"`
	Weekday  schedule.Weekday `json:"weekday"`
	Start    schedule.Clock   `json:"start"`
	End      schedule.Clock   `json:"end"`
	Price    int64            `json:"price"`
	Currency string           `json:"currency"`
}

// Service manages tariff rules. Rules of the same venue, specificity and
// weekday never overlap while active.
type Service struct {
	store  domain.Store
	clock  clockwork.Clock
	logger *zerolog.Logger
}

func NewService(store domain.Store, clock clockwork.Clock, logger *zerolog.Logger) *Service {
	return &Service{store: store, clock: clock, logger: logger}
}

// SaveRule creates a rule, or replaces the rule with in.ID when it exists.
func (s *Service) SaveRule(ctx context.Context, in RuleInput) (*models.TariffRule, error) {
	if err := validateRule(in); err != nil {
		return nil, err
	}

	rule := &models.TariffRule{
		ID:       in.ID,
		VenueID:  in.VenueID,
		CourtID:  in.CourtID,
		Weekday:  in.Weekday,
		Start:    in.Start,
		End:      in.End,
		Price:    in.Price,
		Currency: strings.ToUpper(in.Currency),
		Active:   true,
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	err := s.store.InTx(ctx, func(tx domain.Store) error {
		if _, err := tx.GetVenue(ctx, rule.VenueID); err != nil {
			return err
		}
		if rule.CourtID != "" {
			court, err := tx.GetCourt(ctx, rule.CourtID)
			if err != nil {
				return err
			}
			if court.VenueID != rule.VenueID {
				return domain.ErrCourtVenueMismatch
			}
		}

		siblings, err := tx.ListTariffRules(ctx, rule.VenueID, rule.CourtID, rule.Weekday)
		if err != nil {
			return err
		}
		if other := overlapping(rule, siblings); other != nil {
			return fmt.Errorf("%w: rule %s covers %s-%s", domain.ErrTariffOverlap, other.ID, other.Start, other.End)
		}

		return tx.SaveTariffRule(ctx, rule)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("rule_id", rule.ID).
		Str("venue_id", rule.VenueID).
		Str("court_id", rule.CourtID).
		Str("weekday", rule.Weekday.String()).
		Msg("Tariff rule saved")
	return rule, nil
}

func (s *Service) DeactivateRule(ctx context.Context, id string) error {
	if err := s.store.DeactivateTariffRule(ctx, id, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Info().Str("rule_id", id).Msg("Tariff rule deactivated")
	return nil
}

func (s *Service) ListRules(ctx context.Context, venueID string) ([]*models.TariffRule, error) {
	return s.store.ListVenueTariffRules(ctx, venueID)
}

func validateRule(in RuleInput) error {
	switch {
	case in.VenueID == "":
		return fmt.Errorf("%w: venue_id is required", domain.ErrValidation)
	case !in.Weekday.Valid():
		return fmt.Errorf("%w: weekday must be within 0..6", domain.ErrValidation)
	case in.Start >= in.End:
		return domain.ErrInvalidRange
	case in.Start < 0 || in.End > schedule.MinutesPerDay:
		return fmt.Errorf("%w: rule must lie within a single day", domain.ErrValidation)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	case len(strings.TrimSpace(in.Currency)) != 3:
		return fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrValidation)
	}
	return nil
}

func overlapping(rule *models.TariffRule, siblings []*models.TariffRule) *models.TariffRule {
	span := schedule.Interval{Start: rule.Start, End: rule.End}
	for _, other := range siblings {
		if other.ID == rule.ID || !other.Active {
			continue
		}
		if span.Overlaps(schedule.Interval{Start: other.Start, End: other.End}) {
			return other
		}
	}
	return nil
}
