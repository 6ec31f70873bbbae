package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courtbook/internal/api"
	"courtbook/internal/availability"
	"courtbook/internal/catalog"
	"courtbook/internal/config"
	"courtbook/internal/database"
	"courtbook/internal/domain"
	"courtbook/internal/events"
	"courtbook/internal/logging"
	"courtbook/internal/metrics"
	"courtbook/internal/repository"
	"courtbook/internal/service"
	"courtbook/internal/tariff"
	"courtbook/internal/worker"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	clock := clockwork.NewRealClock()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}
	cache := initTariffCache(cfg, redisClient, clock, &logger)

	rules := tariff.NewService(db, clock, logging.Component(&logger, "tariffs"))
	if err := syncCatalog(cfg, db, rules, &logger); err != nil {
		return err
	}

	resolver := tariff.NewResolver(db, cache, cfg.Tariffs.CacheTTL(), logging.Component(&logger, "tariff_resolver"))
	eventBus := initEventBus(&logger)
	reservations := service.NewReservationService(
		db, resolver, eventBus, clock,
		service.PolicyFromConfig(cfg.Booking),
		logging.Component(&logger, "reservations"),
	)

	scheduler, err := initScheduler(cfg, db, reservations, clock, &logger)
	if err != nil {
		return err
	}

	httpServer := api.NewServer(cfg.API, api.Deps{
		Reservations: reservations,
		Availability: availability.NewCalculator(db, cfg.Booking.DefaultSlotMinutes),
		Quotes:       resolver,
		Rules:        rules,
		Ping:         db.Ping,
	}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, httpServer, scheduler, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	retry := database.DefaultRetryPolicy
	retry.MaxRetries = cfg.Database.MaxRetries

	db, err := database.NewDB(cfg.Database.Path, database.Options{
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
		Retry:         retry,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, client); err != nil {
		// The failover cache keeps probing, so keep the client.
		logger.Warn().Err(err).Msg("redis connection failed, tariff cache starts on memory")
		return client
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initTariffCache(cfg *config.Config, client *redis.Client, clock clockwork.Clock, logger *zerolog.Logger) domain.TariffCache {
	memory := repository.NewMemoryTariffCache(clock)
	if cfg.Tariffs.CacheBackend != "redis" || client == nil {
		logger.Info().Msg("tariff cache: memory")
		return memory
	}
	logger.Info().Msg("tariff cache: redis with memory failover")
	return repository.NewFailoverTariffCache(
		repository.NewRedisTariffCache(client),
		memory,
		clock,
		logging.Component(logger, "tariff_cache"),
	)
}

func syncCatalog(cfg *config.Config, db *database.DB, rules *tariff.Service, logger *zerolog.Logger) error {
	if cfg.Catalog.Path == "" {
		return nil
	}
	c, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("load catalog")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return catalog.NewSyncer(db, rules, logging.Component(logger, "catalog")).Sync(ctx, c)
}

// initEventBus logs every published event. Notification, invoicing and
// payment consumers subscribe here.
func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	eventLogger := logger.With().Str("component", "events").Logger()
	bus.Subscribe(events.Wildcard, func(e *events.Event) error {
		eventLogger.Debug().
			Str("event_id", e.ID).
			Str("event_type", e.Type).
			RawJSON("payload", e.Payload).
			Msg("event published")
		return nil
	})
	return bus
}

func initScheduler(
	cfg *config.Config,
	db *database.DB,
	reservations *service.ReservationService,
	clock clockwork.Clock,
	logger *zerolog.Logger,
) (*worker.Scheduler, error) {
	scheduler, err := worker.NewScheduler(clock, time.Minute, logger)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	sweeper := worker.NewHoldExpirySweeper(reservations, cfg.Booking.SweepInterval(), logger)
	if err := sweeper.Register(scheduler); err != nil {
		return nil, err
	}

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		if err := worker.RegisterBackup(scheduler, backups, cfg.Backup.Interval()); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

func serve(
	ctx context.Context,
	cfg *config.Config,
	httpServer *api.Server,
	scheduler *worker.Scheduler,
	logger *zerolog.Logger,
) error {
	g, ctx := errgroup.WithContext(ctx)

	scheduler.Start()

	if cfg.API.HTTP.Enabled {
		g.Go(httpServer.Start)
	} else {
		logger.Warn().Msg("HTTP API is disabled; only background jobs will run")
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metricsServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		return scheduler.Stop()
	})

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("courtbook started")
	err := g.Wait()
	logger.Info().Msg("courtbook stopped")
	return err
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
