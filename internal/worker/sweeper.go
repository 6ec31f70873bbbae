package worker

import (
	"context"
	"time"

	"courtbook/internal/models"

	"github.com/rs/zerolog"
)

const SweeperJobName = "hold_expiry_sweeper"

// HoldExpirer is implemented by the reservation service.
type HoldExpirer interface {
	ExpireStaleHolds(ctx context.Context) (*models.ExpireResult, error)
}

// HoldExpirySweeper periodically expires lapsed holds so their slots are
// released.
type HoldExpirySweeper struct {
	expirer  HoldExpirer
	interval time.Duration
	logger   zerolog.Logger
}

func NewHoldExpirySweeper(expirer HoldExpirer, interval time.Duration, logger *zerolog.Logger) *HoldExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HoldExpirySweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger.With().Str("component", "hold_sweeper").Logger(),
	}
}

// RunOnce performs a single sweep.
func (w *HoldExpirySweeper) RunOnce(ctx context.Context) error {
	res, err := w.expirer.ExpireStaleHolds(ctx)
	if err != nil {
		return err
	}
	if res.Expired > 0 {
		w.logger.Info().Int("expired", res.Expired).Time("executed_at", res.ExecutedAt).Msg("Sweep released holds")
	}
	return nil
}

// Register schedules the sweeper on s.
func (w *HoldExpirySweeper) Register(s *Scheduler) error {
	_, err := s.Every(SweeperJobName, w.interval, w.RunOnce)
	return err
}
