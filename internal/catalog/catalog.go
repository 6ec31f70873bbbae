// Package catalog loads venues, courts and tariffs from a YAML file and
// syncs them into the store at startup.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
	"courtbook/internal/tariff"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type Catalog struct {
	Venues []VenueEntry `yaml:"venues"`
}

type VenueEntry struct {
	ID            string              `yaml:"id"`
	Name          string              `yaml:"name"`
	Timezone      string              `yaml:"timezone"`
	BufferMinutes int                 `yaml:"buffer_minutes"`
	Inactive      bool                `yaml:"inactive"`
	OpeningHours  map[string][]string `yaml:"opening_hours"`
	Courts        []CourtEntry        `yaml:"courts"`
	Tariffs       []TariffEntry       `yaml:"tariffs"`
}

type CourtEntry struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Surface string `yaml:"surface"`
	Status  string `yaml:"status"`
}

// TariffEntry expands into one rule per listed weekday.
type TariffEntry struct {
	CourtID  string   `yaml:"court_id"`
	Weekdays []string `yaml:"weekdays"`
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
	Price    int64    `yaml:"price"`
	Currency string   `yaml:"currency"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	courtVenue := make(map[string]string)
	for i := range c.Venues {
		v := &c.Venues[i]
		if v.ID == "" {
			return nil, fmt.Errorf("venue #%d: id is required", i+1)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("venue %s: duplicate id", v.ID)
		}
		seen[v.ID] = true

		if _, err := schedule.LoadLocation(v.Timezone); err != nil {
			return nil, fmt.Errorf("venue %s: %w", v.ID, err)
		}
		if _, err := schedule.ParseOpeningHours(v.OpeningHours); err != nil {
			return nil, fmt.Errorf("venue %s: opening hours: %w", v.ID, err)
		}
		if v.BufferMinutes < 0 {
			return nil, fmt.Errorf("venue %s: buffer_minutes must not be negative", v.ID)
		}
		for _, court := range v.Courts {
			if court.ID == "" {
				return nil, fmt.Errorf("venue %s: court id is required", v.ID)
			}
			if owner, ok := courtVenue[court.ID]; ok {
				return nil, fmt.Errorf("court %s: listed under venues %s and %s", court.ID, owner, v.ID)
			}
			courtVenue[court.ID] = v.ID
			switch court.Status {
			case "", models.CourtStatusActive, models.CourtStatusMaintenance:
			default:
				return nil, fmt.Errorf("court %s: unknown status %q", court.ID, court.Status)
			}
		}
	}
	return &c, nil
}

// Syncer writes a catalog into the store. Tariff rules go through the
// tariff service so the overlap checks apply.
type Syncer struct {
	store  domain.Store
	rules  *tariff.Service
	logger *zerolog.Logger
}

func NewSyncer(store domain.Store, rules *tariff.Service, logger *zerolog.Logger) *Syncer {
	return &Syncer{store: store, rules: rules, logger: logger}
}

// Sync upserts every venue and court, then saves the tariff rules with
// stable ids so repeated syncs replace rather than duplicate them.
func (s *Syncer) Sync(ctx context.Context, c *Catalog) error {
	for _, entry := range c.Venues {
		hours, err := schedule.ParseOpeningHours(entry.OpeningHours)
		if err != nil {
			return fmt.Errorf("venue %s: %w", entry.ID, err)
		}
		venue := &models.Venue{
			ID:            entry.ID,
			Name:          entry.Name,
			Timezone:      entry.Timezone,
			OpeningHours:  hours,
			BufferMinutes: entry.BufferMinutes,
			Active:        !entry.Inactive,
		}

		err = s.store.InTx(ctx, func(tx domain.Store) error {
			if err := tx.UpsertVenue(ctx, venue); err != nil {
				return err
			}
			for _, ce := range entry.Courts {
				status := ce.Status
				if status == "" {
					status = models.CourtStatusActive
				}
				if err := tx.UpsertCourt(ctx, &models.Court{
					ID:      ce.ID,
					VenueID: entry.ID,
					Name:    ce.Name,
					Surface: ce.Surface,
					Status:  status,
					Active:  true,
				}); err != nil {
					return fmt.Errorf("court %s: %w", ce.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("venue %s: %w", entry.ID, err)
		}

		rules := 0
		for _, te := range entry.Tariffs {
			inputs, err := expand(entry.ID, te)
			if err != nil {
				return fmt.Errorf("venue %s: %w", entry.ID, err)
			}
			for _, in := range inputs {
				if _, err := s.rules.SaveRule(ctx, in); err != nil {
					return fmt.Errorf("tariff %s: %w", in.ID, err)
				}
				rules++
			}
		}

		s.logger.Info().
			Str("venue_id", entry.ID).
			Int("courts", len(entry.Courts)).
			Int("tariff_rules", rules).
			Msg("Venue synced from catalog")
	}
	return nil
}

func expand(venueID string, te TariffEntry) ([]tariff.RuleInput, error) {
	start, err := schedule.ParseClock(te.Start)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseClock(te.End)
	if err != nil {
		return nil, err
	}

	scope := te.CourtID
	if scope == "" {
		scope = "venue"
	}

	out := make([]tariff.RuleInput, 0, len(te.Weekdays))
	for _, name := range te.Weekdays {
		day, err := schedule.ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		out = append(out, tariff.RuleInput{
			ID:       strings.Join([]string{venueID, scope, day.String(), start.String()}, ":"),
			VenueID:  venueID,
			CourtID:  te.CourtID,
			Weekday:  day,
			Start:    start,
			End:      end,
			Price:    te.Price,
			Currency: te.Currency,
		})
	}
	return out, nil
}
