package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"courtbook/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, details any) {
	writeJSON(w, statusCode, errorBody{Error: errorDetail{Code: code, Message: message, Details: details}})
}

// kindStatus maps each error kind to its HTTP status and default code.
var kindStatus = map[error]struct {
	status int
	code   string
}{
	domain.ErrNotFound:            {http.StatusNotFound, "not_found"},
	domain.ErrValidation:          {http.StatusBadRequest, "validation_error"},
	domain.ErrConflict:            {http.StatusConflict, "conflict"},
	domain.ErrGone:                {http.StatusGone, "gone"},
	domain.ErrPaymentRequired:     {http.StatusPaymentRequired, "payment_required"},
	domain.ErrForbidden:           {http.StatusForbidden, "forbidden"},
	domain.ErrNotApplicableTariff: {http.StatusUnprocessableEntity, "not_applicable_tariff"},
	domain.ErrInternal:            {http.StatusInternalServerError, "internal"},
}

// specificCodes refine the code of well-known errors.
var specificCodes = []struct {
	err  error
	code string
}{
	{domain.ErrSlotConflict, "slot_conflict"},
	{domain.ErrHoldExpired, "hold_expired"},
	{domain.ErrDuplicateIdempotencyKey, "duplicate_idempotency_key"},
	{domain.ErrInvalidState, "invalid_state"},
	{domain.ErrInvalidTransition, "invalid_transition"},
	{domain.ErrNotCancellable, "not_cancellable"},
	{domain.ErrNotReprogrammable, "not_reprogrammable"},
	{domain.ErrTariffOverlap, "tariff_overlap"},
	{domain.ErrOutsideOpeningHours, "outside_opening_hours"},
	{domain.ErrCourtVenueMismatch, "court_venue_mismatch"},
	{domain.ErrCourtUnavailable, "court_unavailable"},
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	mapped := kindStatus[kind]

	code := mapped.code
	for _, sc := range specificCodes {
		if errors.Is(err, sc.err) {
			code = sc.code
			break
		}
	}

	var details any
	var conflict *domain.SlotConflictError
	if errors.As(err, &conflict) {
		details = map[string]string{
			"court_id":       conflict.CourtID,
			"date":           conflict.Date,
			"start":          conflict.Interval.Start.String(),
			"end":            conflict.Interval.End.String(),
			"reservation_id": conflict.ReservationID,
		}
	}

	message := err.Error()
	if kind == domain.ErrInternal {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "internal error"
	}
	writeError(w, mapped.status, code, message, details)
}
