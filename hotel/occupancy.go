/*
occupancy.go - Room and stay state machine

ROOM:
  available -> occupied -> dirty -> available   (cleaning cycle)
  available|dirty <-> maintenance              (explicit admin action)
  occupied is entered and left only through a stay transition.
  Check-in requires available: a dirty room is cleaned first.

STAY:
  scheduled -> checked_in -> checked_out
  scheduled -> cancelled
  scheduled -> no_show

COUPLING:
  checked_in          room := occupied, current stay := stay
  checked_out         room := dirty,     current stay := none
  cancelled, no_show  room := available, current stay := none

  The last two rows apply only while the room's current stay IS this stay.
  A stale transition on a stay that no longer owns the room must not
  clobber a newer occupant.
*/
package hotel

import "time"

var stayTransitions = map[StayStatus][]StayStatus{
	StayScheduled: {StayCheckedIn, StayCancelled, StayNoShow},
	StayCheckedIn: {StayCheckedOut},
}

// CanTransitionStay reports whether from -> to is an edge of the stay graph.
func CanTransitionStay(from, to StayStatus) bool {
	for _, s := range stayTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyStayTransition moves stay to the target status at time at and applies
// the coupled room change. roomChanged reports whether room was modified and
// must be persisted. Nothing is modified when an error is returned.
func ApplyStayTransition(room *Room, stay *RoomStay, to StayStatus, at time.Time) (roomChanged bool, err error) {
	if !CanTransitionStay(stay.Status, to) {
		if to == StayCheckedOut {
			return false, ErrStayNotCheckedIn
		}
		return false, ErrInvalidTransition
	}

	if to == StayCheckedIn {
		if !room.Active || room.Status == RoomMaintenance {
			return false, ErrRoomUnavailable
		}
		if room.Status == RoomOccupied || (room.CurrentStayID != "" && room.CurrentStayID != stay.ID) {
			return false, ErrRoomOccupied
		}
		if room.Status != RoomAvailable {
			return false, ErrRoomNeedsCleaning
		}
	}

	owns := room.CurrentStayID == stay.ID
	stay.Status = to
	stay.UpdatedAt = at

	switch to {
	case StayCheckedIn:
		stay.ActualCheckIn = &at
		room.Status = RoomOccupied
		room.CurrentStayID = stay.ID
		return true, nil
	case StayCheckedOut:
		stay.ActualCheckOut = &at
		if owns {
			room.Status = RoomDirty
			room.CurrentStayID = ""
			return true, nil
		}
	case StayCancelled, StayNoShow:
		if owns {
			room.Status = RoomAvailable
			room.CurrentStayID = ""
			return true, nil
		}
	}
	return false, nil
}

// RoomStatusChange describes a direct room status edit.
type RoomStatusChange struct {
	From, To      RoomStatus
	RequiresAdmin bool
}

// CheckRoomStatusChange validates a direct status edit (cleaning or
// maintenance). Occupied can never be set or left this way.
func CheckRoomStatusChange(room Room, to RoomStatus) (RoomStatusChange, error) {
	ch := RoomStatusChange{From: room.Status, To: to}
	if room.Status == to {
		return ch, ErrInvalidTransition
	}
	if room.Status == RoomOccupied || to == RoomOccupied || room.CurrentStayID != "" {
		return ch, ErrInvalidTransition
	}
	switch {
	case to == RoomMaintenance || room.Status == RoomMaintenance:
		ch.RequiresAdmin = true
	case room.Status == RoomDirty && to == RoomAvailable:
	case room.Status == RoomAvailable && to == RoomDirty:
	default:
		return ch, ErrInvalidTransition
	}
	return ch, nil
}

// Validate checks the occupancy invariant for a room and its current stay
// (nil when the room has none).
func (r Room) Validate(current *RoomStay) error {
	occupied := r.Status == RoomOccupied
	hasStay := r.CurrentStayID != "" && current != nil && current.ID == r.CurrentStayID && current.Status == StayCheckedIn
	if occupied != hasStay {
		return ErrInvalidTransition
	}
	return nil
}
