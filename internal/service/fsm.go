package service

import "courtbook/internal/models"

// transitions is the single authoritative state table. hold -> confirmed is
// reached only through Confirm; Transition never offers it.
var transitions = map[models.ReservationState][]models.ReservationState{
	models.StateHold:      {models.StatePending, models.StateConfirmed, models.StateExpired, models.StateCancelled},
	models.StatePending:   {models.StateConfirmed, models.StateCancelled},
	models.StateConfirmed: {models.StateCancelled, models.StateNoShow, models.StateReprogrammed},
}

// genericTargets are the states reachable through Transition.
var genericTargets = map[models.ReservationState]bool{
	models.StatePending: true,
	models.StateNoShow:  true,
}

// CanTransition reports whether the state table allows from -> to.
func CanTransition(from, to models.ReservationState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
