package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyJobName    = errors.New("job name is required")
	ErrInvalidInterval = errors.New("job interval must be positive")
)

// Task is a unit of background work. Returned errors are logged by the
// scheduler; they do not stop the job from running again.
type Task func(ctx context.Context) error

// Scheduler wraps a gocron scheduler. Jobs run in singleton mode so a slow
// run is never overlapped by the next tick.
type Scheduler struct {
	scheduler gocron.Scheduler
	timeout   time.Duration
	logger    zerolog.Logger

	stopOnce sync.Once
	stopErr  error
}

// NewScheduler builds a scheduler driven by clock. Each run gets a context
// bounded by timeout.
func NewScheduler(clock clockwork.Clock, timeout time.Duration, logger *zerolog.Logger) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	l := logger.With().Str("component", "scheduler").Logger()

	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					l.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					l.Error().
						Err(err).
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Msg("Scheduler job failed")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Scheduler{scheduler: sched, timeout: timeout, logger: l}, nil
}

// Every registers task to run at a fixed interval.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	jobLogger := s.logger.With().Str("job_name", name).Dur("interval", interval).Logger()

	run := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		jobLogger.Debug().Msg("Scheduler job started")
		if err := task(ctx); err != nil {
			return err
		}
		jobLogger.Debug().Msg("Scheduler job completed")
		return nil
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(run),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

// Jobs lists the registered jobs.
func (s *Scheduler) Jobs() []gocron.Job {
	return s.scheduler.Jobs()
}

func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down. It is safe to
// call more than once.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
