package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"courtbook/internal/domain"
	"courtbook/internal/schedule"
	"courtbook/internal/tariff"
)

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	venueID := strings.TrimSpace(q.Get("venue_id"))
	courtID := strings.TrimSpace(q.Get("court_id"))
	date := strings.TrimSpace(q.Get("date"))
	if venueID == "" || courtID == "" || date == "" {
		s.writeDomainError(w, r, fmt.Errorf("%w: venue_id, court_id and date are required", domain.ErrValidation))
		return
	}

	slotMinutes := 0
	if raw := q.Get("slot_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeDomainError(w, r, fmt.Errorf("%w: slot_minutes must be an integer", domain.ErrValidation))
			return
		}
		slotMinutes = n
	}

	day, err := s.deps.Availability.Slots(r.Context(), venueID, courtID, date, slotMinutes)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) handleResolveTariff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := tariff.Query{
		VenueID: strings.TrimSpace(q.Get("venue_id")),
		CourtID: strings.TrimSpace(q.Get("court_id")),
		Date:    strings.TrimSpace(q.Get("date")),
	}
	if query.VenueID == "" || query.Date == "" {
		s.writeDomainError(w, r, fmt.Errorf("%w: venue_id and date are required", domain.ErrValidation))
		return
	}
	var err error
	if query.Start, err = schedule.ParseClock(q.Get("start")); err != nil {
		s.writeDomainError(w, r, fmt.Errorf("%w: start: %v", domain.ErrValidation, err))
		return
	}
	if query.End, err = schedule.ParseClock(q.Get("end")); err != nil {
		s.writeDomainError(w, r, fmt.Errorf("%w: end: %v", domain.ErrValidation, err))
		return
	}
	if query.Start >= query.End {
		s.writeDomainError(w, r, domain.ErrInvalidRange)
		return
	}

	quote, err := s.deps.Quotes.Resolve(r.Context(), query)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// staffOnly writes 403 unless the caller is staff or admin.
func (s *Server) staffOnly(w http.ResponseWriter, r *http.Request) bool {
	actor, err := principalFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return false
	}
	if !actor.Privileged() {
		s.writeDomainError(w, r, domain.ErrStaffOnly)
		return false
	}
	return true
}

func (s *Server) handleSaveTariff(w http.ResponseWriter, r *http.Request) {
	if !s.staffOnly(w, r) {
		return
	}
	var in tariff.RuleInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	rule, err := s.deps.Rules.SaveRule(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rule": rule})
}

func (s *Server) handleDeleteTariff(w http.ResponseWriter, r *http.Request) {
	if !s.staffOnly(w, r) {
		return
	}
	if err := s.deps.Rules.DeactivateRule(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Rules.ListRules(r.Context(), r.PathValue("venue_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}
