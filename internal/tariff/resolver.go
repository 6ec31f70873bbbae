package tariff

import (
	"context"
	"fmt"
	"time"

	"courtbook/internal/domain"
	"courtbook/internal/metrics"
	"courtbook/internal/models"
	"courtbook/internal/schedule"

	"github.com/rs/zerolog"
)

// DefaultCacheTTL bounds how stale a cached tariff may be.
const DefaultCacheTTL = 5 * time.Minute

// Query identifies the slot being priced. CourtID may be empty to price a
// venue-wide slot.
type Query struct {
	VenueID string
	CourtID string
	Date    string
	Start   schedule.Clock
	End     schedule.Clock
}

// CacheKey is venue:court|general:date:start:end.
func (q Query) CacheKey() string {
	court := q.CourtID
	if court == "" {
		court = "general"
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", q.VenueID, court, q.Date, q.Start, q.End)
}

// Resolver prices slots from tariff rules, court-level rules first.
type Resolver struct {
	store  domain.Store
	cache  domain.TariffCache
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewResolver(store domain.Store, cache domain.TariffCache, ttl time.Duration, logger *zerolog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Resolve prices q using the resolver's own store.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*models.TariffQuote, error) {
	return r.ResolveWith(ctx, r.store, q)
}

// ResolveWith prices q reading rules through repo, which lets callers
// resolve inside an open transaction. Cache failures are logged and the
// tariff is recomputed.
func (r *Resolver) ResolveWith(ctx context.Context, repo domain.Store, q Query) (*models.TariffQuote, error) {
	if q.Start >= q.End {
		return nil, domain.ErrInvalidRange
	}

	key := q.CacheKey()
	if r.cache != nil {
		quote, ok, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.IncTariffCache("error")
			r.logger.Warn().Err(err).Str("key", key).Msg("Tariff cache read failed")
		case ok:
			metrics.IncTariffCache("hit")
			return quote, nil
		default:
			metrics.IncTariffCache("miss")
		}
	}

	quote, err := r.compute(ctx, repo, q)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, quote, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("Tariff cache write failed")
		}
	}
	return quote, nil
}

func (r *Resolver) compute(ctx context.Context, repo domain.Store, q Query) (*models.TariffQuote, error) {
	date, err := schedule.ParseDate(q.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	weekday := schedule.WeekdayOf(date)

	if q.CourtID != "" {
		rules, err := repo.ListTariffRules(ctx, q.VenueID, q.CourtID, weekday)
		if err != nil {
			return nil, err
		}
		if rule := firstCovering(rules, q.Start); rule != nil {
			return quoteFrom(rule, models.TariffOriginCourt), nil
		}
	}

	rules, err := repo.ListTariffRules(ctx, q.VenueID, "", weekday)
	if err != nil {
		return nil, err
	}
	if rule := firstCovering(rules, q.Start); rule != nil {
		return quoteFrom(rule, models.TariffOriginVenue), nil
	}

	return nil, fmt.Errorf("%w for venue %s court %s on %s at %s",
		domain.ErrNotApplicableTariff, q.VenueID, q.CourtID, weekday, q.Start)
}

// firstCovering matches on the slot start only; a slot that runs past the
// end of its rule is still priced by that rule.
func firstCovering(rules []*models.TariffRule, start schedule.Clock) *models.TariffRule {
	for _, rule := range rules {
		if rule.Active && rule.Covers(start) {
			return rule
		}
	}
	return nil
}

func quoteFrom(rule *models.TariffRule, origin models.TariffOrigin) *models.TariffQuote {
	return &models.TariffQuote{
		RuleID:   rule.ID,
		Origin:   origin,
		Price:    rule.Price,
		Currency: rule.Currency,
	}
}
