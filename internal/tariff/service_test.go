package tariff

import (
	"context"
	"io"
	"testing"

	"courtbook/internal/domain"
	"courtbook/internal/schedule"
	"courtbook/internal/testutil"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SaveRule(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedVenue(t, db, "bogota", "c1", 0, 0)
	testutil.SeedVenue(t, db, "cali", "k1", 0, 0)
	logger := zerolog.New(io.Discard)
	svc := NewService(db, clockwork.NewFakeClock(), &logger)
	ctx := context.Background()

	base := RuleInput{
		VenueID:  "bogota",
		CourtID:  "c1",
		Weekday:  schedule.Wednesday,
		Start:    testutil.Clock(t, "08:00"),
		End:      testutil.Clock(t, "12:00"),
		Price:    40000,
		Currency: "cop",
	}

	rule, err := svc.SaveRule(ctx, base)
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "COP", rule.Currency)

	t.Run("OverlapSameLevel", func(t *testing.T) {
		in := base
		in.Start = testutil.Clock(t, "11:00")
		in.End = testutil.Clock(t, "14:00")
		_, err := svc.SaveRule(ctx, in)
		assert.ErrorIs(t, err, domain.ErrTariffOverlap)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("AdjacentAllowed", func(t *testing.T) {
		in := base
		in.Start = testutil.Clock(t, "12:00")
		in.End = testutil.Clock(t, "16:00")
		_, err := svc.SaveRule(ctx, in)
		assert.NoError(t, err)
	})

	t.Run("VenueLevelMayOverlapCourtLevel", func(t *testing.T) {
		in := base
		in.CourtID = ""
		_, err := svc.SaveRule(ctx, in)
		assert.NoError(t, err)
	})

	t.Run("UpdateOwnRangeIsNotOverlap", func(t *testing.T) {
		in := base
		in.ID = rule.ID
		in.End = testutil.Clock(t, "11:00")
		in.Price = 45000
		updated, err := svc.SaveRule(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, rule.ID, updated.ID)

		stored, err := db.GetTariffRule(ctx, rule.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(45000), stored.Price)
	})

	t.Run("CourtOfAnotherVenue", func(t *testing.T) {
		in := base
		in.CourtID = "k1"
		_, err := svc.SaveRule(ctx, in)
		assert.ErrorIs(t, err, domain.ErrCourtVenueMismatch)
	})

	t.Run("Validation", func(t *testing.T) {
		bad := base
		bad.Start, bad.End = bad.End, bad.Start
		_, err := svc.SaveRule(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrValidation)

		bad = base
		bad.Weekday = 7
		_, err = svc.SaveRule(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrValidation)

		bad = base
		bad.Price = -1
		_, err = svc.SaveRule(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Deactivate", func(t *testing.T) {
		require.NoError(t, svc.DeactivateRule(ctx, rule.ID))

		in := base
		in.End = testutil.Clock(t, "10:00")
		_, err := svc.SaveRule(ctx, in)
		assert.NoError(t, err)

		assert.ErrorIs(t, svc.DeactivateRule(ctx, "missing"), domain.ErrNotFound)
	})

	rules, err := svc.ListRules(ctx, "bogota")
	require.NoError(t, err)
	assert.NotEmpty(t, rules)
}
