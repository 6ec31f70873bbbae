package api

import (
	"net/http"
	"strings"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/service"
)

const headerIdempotencyKey = "Idempotency-Key"

// idempotencyKey prefers the header over a body field.
func idempotencyKey(r *http.Request, fromBody string) string {
	if key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey)); key != "" {
		return key
	}
	return strings.TrimSpace(fromBody)
}

func (s *Server) handleCreateHold(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var req service.HoldRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	res, err := s.deps.Reservations.CreateHold(r.Context(), actor, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"reservation": res.Reservation, "created": res.Created})
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.deps.Reservations.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservation": res})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	history, err := s.deps.Reservations.History(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var body struct {
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	res, err := s.deps.Reservations.Confirm(r.Context(), actor, r.PathValue("id"), idempotencyKey(r, body.IdempotencyKey))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservation": res})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req service.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	res, err := s.deps.Reservations.Cancel(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservation": res.Reservation, "refund": res.Refund})
}

func (s *Server) handleReprogram(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req service.ReprogramRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	res, err := s.deps.Reservations.Reprogram(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"original":    res.Original,
		"reservation": res.Reservation,
		"delta":       res.Delta,
	})
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var body struct {
		State   models.ReservationState `json:"state"`
		Comment string                  `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	res, err := s.deps.Reservations.Transition(r.Context(), actor, r.PathValue("id"), body.State, body.Comment)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservation": res})
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.deps.Reservations.RecordPaymentCapture(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservation": res})
}

func (s *Server) handleExpireHolds(w http.ResponseWriter, r *http.Request) {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !actor.Privileged() {
		s.writeDomainError(w, r, domain.ErrStaffOnly)
		return
	}
	res, err := s.deps.Reservations.ExpireStaleHolds(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
