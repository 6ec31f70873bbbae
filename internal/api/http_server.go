package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"courtbook/internal/config"
	"courtbook/internal/domain"
	"courtbook/internal/metrics"
	"courtbook/internal/models"
	"courtbook/internal/service"
	"courtbook/internal/tariff"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const healthPath = "/healthz"

// Reservations is the reservation lifecycle as seen by the HTTP layer.
type Reservations interface {
	CreateHold(ctx context.Context, actor models.Principal, req service.HoldRequest) (*models.HoldResult, error)
	Confirm(ctx context.Context, actor models.Principal, id, idempotencyKey string) (*models.Reservation, error)
	Cancel(ctx context.Context, actor models.Principal, id string, req service.CancelRequest) (*models.CancelResult, error)
	Reprogram(ctx context.Context, actor models.Principal, id string, req service.ReprogramRequest) (*models.ReprogramResult, error)
	Transition(ctx context.Context, actor models.Principal, id string, to models.ReservationState, comment string) (*models.Reservation, error)
	RecordPaymentCapture(ctx context.Context, actor models.Principal, id string) (*models.Reservation, error)
	Get(ctx context.Context, actor models.Principal, id string) (*models.Reservation, error)
	History(ctx context.Context, actor models.Principal, id string) ([]*models.ReservationHistory, error)
	ExpireStaleHolds(ctx context.Context) (*models.ExpireResult, error)
}

type Availability interface {
	Slots(ctx context.Context, venueID, courtID, date string, slotMinutes int) (*models.DayAvailability, error)
}

type TariffQuoter interface {
	Resolve(ctx context.Context, q tariff.Query) (*models.TariffQuote, error)
}

type TariffRules interface {
	SaveRule(ctx context.Context, in tariff.RuleInput) (*models.TariffRule, error)
	DeactivateRule(ctx context.Context, id string) error
	ListRules(ctx context.Context, venueID string) ([]*models.TariffRule, error)
}

// Deps are the services the HTTP API exposes.
type Deps struct {
	Reservations Reservations
	Availability Availability
	Quotes       TariffQuoter
	Rules        TariffRules
	// Ping reports storage health; nil means always healthy.
	Ping func(ctx context.Context) error
}

// Server exposes the booking engine over HTTP.
type Server struct {
	cfg    config.APIConfig
	deps   Deps
	auth   *HTTPAuth
	server *http.Server
	logger zerolog.Logger
}

func NewServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		auth:   NewHTTPAuth(cfg),
		logger: logger.With().Str("component", "http").Logger(),
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET "+healthPath, s.handleHealth)

	s.route(mux, "POST /api/v1/reservations", s.handleCreateHold)
	s.route(mux, "GET /api/v1/reservations/{id}", s.handleGetReservation)
	s.route(mux, "GET /api/v1/reservations/{id}/history", s.handleHistory)
	s.route(mux, "POST /api/v1/reservations/{id}/confirm", s.handleConfirm)
	s.route(mux, "POST /api/v1/reservations/{id}/cancel", s.handleCancel)
	s.route(mux, "POST /api/v1/reservations/{id}/reprogram", s.handleReprogram)
	s.route(mux, "POST /api/v1/reservations/{id}/transition", s.handleTransition)
	s.route(mux, "POST /api/v1/reservations/{id}/payment", s.handlePayment)
	s.route(mux, "POST /api/v1/holds/expire", s.handleExpireHolds)

	s.route(mux, "GET /api/v1/availability", s.handleAvailability)
	s.route(mux, "GET /api/v1/tariffs/resolve", s.handleResolveTariff)
	s.route(mux, "POST /api/v1/tariffs", s.handleSaveTariff)
	s.route(mux, "DELETE /api/v1/tariffs/{id}", s.handleDeleteTariff)
	s.route(mux, "GET /api/v1/venues/{venue_id}/tariffs", s.handleListTariffs)

	return s.recoverMiddleware(s.loggingMiddleware(s.auth.Wrap(mux)))
}

// route registers h and labels its metrics with the route pattern.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec, ok := w.(*statusRecorder); ok {
			rec.endpoint = pattern
		}
		h(w, r)
	}))
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "storage unreachable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK, endpoint: "unmatched"}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(recorder.endpoint, strconv.Itoa(recorder.status))
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields. An empty
// body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status   int
	endpoint string
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
