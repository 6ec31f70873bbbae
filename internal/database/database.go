package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"courtbook/internal/domain"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the SQLite-backed domain.Store.
//
// The pool is capped at a single connection, so every unit of work run
// through InTx is serialized with all other reads and writes. Callers must
// use the store handed to the InTx callback; touching the root DB from inside
// a transaction blocks until the context is cancelled.
type DB struct {
	*queries
	sqlDB  *sql.DB
	path   string
	retry  RetryPolicy
	logger *zerolog.Logger
}

type Options struct {
	BusyTimeoutMS int
	Retry         RetryPolicy
}

func NewDB(path string, opts Options, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", buildDSN(path, opts.BusyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{
		queries: &queries{q: sqlDB},
		sqlDB:   sqlDB,
		path:    path,
		retry:   opts.Retry,
		logger:  logger,
	}, nil
}

func buildDSN(path string, busyTimeoutMS int) string {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}
	params := []string{"_fk=1", "_txlock=immediate", fmt.Sprintf("_busy_timeout=%d", busyTimeoutMS)}
	if path != ":memory:" {
		params = append(params, "_journal_mode=WAL")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + strings.Join(params, "&")
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migrations: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.sqlDB.Close()
}

func (db *DB) Path() string {
	return db.path
}

// Ping checks the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sqlDB.PingContext(ctx)
}

// InTx runs fn inside a single transaction. The transaction is committed when
// fn returns nil and rolled back otherwise. Units of work that fail with a
// transient SQLITE_BUSY or SQLITE_LOCKED are retried per the retry policy.
func (db *DB) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	attempt := 0
	for {
		err := db.runInTx(ctx, fn)
		if err == nil || !isBusy(err) || attempt >= db.retry.MaxRetries {
			return err
		}
		attempt++
		delay := db.retry.NextDelay(attempt)
		db.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Database busy, retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (db *DB) runInTx(ctx context.Context, fn func(tx domain.Store) error) (err error) {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txStore{queries: &queries{q: tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to roll back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore is the domain.Store bound to an open transaction. Nested InTx
// calls join the outer transaction.
type txStore struct {
	*queries
}

func (s *txStore) InTx(_ context.Context, fn func(tx domain.Store) error) error {
	return fn(s)
}
