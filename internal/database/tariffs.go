package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
)

const tariffColumns = `id, venue_id, court_id, weekday, start_time, end_time, price, currency, active, created_at, updated_at`

func (s *queries) GetTariffRule(ctx context.Context, id string) (*models.TariffRule, error) {
	query := `SELECT ` + tariffColumns + ` FROM tariff_rules WHERE id = ?`

	rule, err := scanTariffRule(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTariffRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tariff rule: %w", err)
	}
	return rule, nil
}

func (s *queries) ListTariffRules(ctx context.Context, venueID, courtID string, weekday schedule.Weekday) ([]*models.TariffRule, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if courtID == "" {
		query := `SELECT ` + tariffColumns + ` FROM tariff_rules
			WHERE venue_id = ? AND court_id IS NULL AND weekday = ? AND active = 1
			ORDER BY start_time`
		rows, err = s.q.QueryContext(ctx, query, venueID, int(weekday))
	} else {
		query := `SELECT ` + tariffColumns + ` FROM tariff_rules
			WHERE venue_id = ? AND court_id = ? AND weekday = ? AND active = 1
			ORDER BY start_time`
		rows, err = s.q.QueryContext(ctx, query, venueID, courtID, int(weekday))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tariff rules: %w", err)
	}
	return collectTariffRules(rows)
}

func (s *queries) ListVenueTariffRules(ctx context.Context, venueID string) ([]*models.TariffRule, error) {
	query := `SELECT ` + tariffColumns + ` FROM tariff_rules
		WHERE venue_id = ? AND active = 1
		ORDER BY weekday, court_id, start_time`
	rows, err := s.q.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list venue tariff rules: %w", err)
	}
	return collectTariffRules(rows)
}

// SaveTariffRule inserts the rule or replaces an existing one with the same id.
func (s *queries) SaveTariffRule(ctx context.Context, rule *models.TariffRule) error {
	now := time.Now().UTC()
	query := `INSERT INTO tariff_rules (` + tariffColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			venue_id = excluded.venue_id,
			court_id = excluded.court_id,
			weekday = excluded.weekday,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			price = excluded.price,
			currency = excluded.currency,
			active = excluded.active,
			updated_at = excluded.updated_at`
	_, err := s.q.ExecContext(ctx, query,
		rule.ID, rule.VenueID, nullString(rule.CourtID), int(rule.Weekday), rule.Start, rule.End,
		rule.Price, rule.Currency, rule.Active, now, now,
	)
	if isUniqueViolation(err) {
		return domain.ErrTariffOverlap
	}
	if err != nil {
		return fmt.Errorf("failed to save tariff rule: %w", err)
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	return nil
}

func (s *queries) DeactivateTariffRule(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE tariff_rules SET active = 0, updated_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate tariff rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTariffRuleNotFound
	}
	return nil
}

func collectTariffRules(rows *sql.Rows) ([]*models.TariffRule, error) {
	defer rows.Close()

	var rules []*models.TariffRule
	for rows.Next() {
		rule, err := scanTariffRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tariff rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanTariffRule(row rowScanner) (*models.TariffRule, error) {
	var (
		rule    models.TariffRule
		courtID sql.NullString
		weekday int
	)
	err := row.Scan(
		&rule.ID, &rule.VenueID, &courtID, &weekday, &rule.Start, &rule.End,
		&rule.Price, &rule.Currency, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.CourtID = courtID.String
	rule.Weekday = schedule.Weekday(weekday)
	return &rule, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
