/*
errors.go - Error taxonomy for the back office

PURPOSE:
  Every failure the engine reports is either one of the four kinds below or
  Fatal (anything else: storage, transport, bugs). The API maps kinds to
  status codes without inspecting messages.

KINDS:
  ErrValidation     malformed or out-of-range input (400)
  ErrAccessDenied   principal lacks permission (403)
  ErrNotFound       referenced entity does not exist (404)
  ErrStateConflict  an invariant would be violated (409)

USAGE:
  Specific errors are *Error values carrying a Code and a Kind. errors.Is
  matches both:

    errors.Is(err, hotel.ErrShiftAlreadyOpen) // specific
    errors.Is(err, hotel.ErrStateConflict)    // kind

SEE ALSO:
  - api/errors.go: kind -> HTTP status
*/
package hotel

import (
	"errors"
	"fmt"
)

// =============================================================================
// KINDS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation    = errors.New("validation error")
	ErrAccessDenied  = errors.New("access denied")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
)

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error is a typed failure with a stable machine code and a user-facing
// message. Kind is one of the sentinel kinds above.
type Error struct {
	Code    string
	Kind    error
	Field   string // set for validation errors
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Is matches another *Error by code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func conflict(code, msg string) *Error {
	return &Error{Code: code, Kind: ErrStateConflict, Message: msg}
}

func denied(code, msg string) *Error {
	return &Error{Code: code, Kind: ErrAccessDenied, Message: msg}
}

// =============================================================================
// SPECIFIC ERRORS
// =============================================================================

var (
	ErrShiftAlreadyOpen    = conflict("shift_already_open", "this hotel already has an open shift")
	ErrShiftNotOpen        = conflict("shift_not_open", "the shift is already closed")
	ErrStockConflict       = conflict("stock_conflict", "not enough stock; refresh and try again")
	ErrAmbiguousPin        = conflict("ambiguous_pin", "this PIN matches more than one manager; ask an administrator to reset PINs")
	ErrStayNotCheckedIn    = conflict("stay_not_checked_in", "the room has no checked-in guest")
	ErrRoomOccupied        = conflict("room_occupied", "the room is already occupied")
	ErrRoomUnavailable     = conflict("room_unavailable", "the room is inactive or under maintenance")
	ErrRoomNeedsCleaning   = conflict("room_needs_cleaning", "the room must be cleaned before the next check-in")
	ErrRoomHasStay         = conflict("room_has_stay", "the room has a current stay and cannot be deleted")
	ErrInvalidTransition   = conflict("invalid_transition", "this status change is not allowed")
	ErrDuplicateAssignment = conflict("duplicate_assignment", "the user already has an active assignment on this hotel")
	ErrDuplicatePin        = conflict("duplicate_pin", "another manager on this hotel already uses this PIN")
	ErrDuplicate           = conflict("duplicate", "an entity with the same unique key already exists")
	ErrProductInactive     = conflict("product_inactive", "the product is not on sale")

	ErrForbidden         = denied("forbidden", "you do not have access to this hotel")
	ErrAdminOnly         = denied("admin_only", "this action requires an administrator")
	ErrReadOnly          = denied("read_only", "observers cannot change data")
	ErrNotShiftOwner     = denied("not_shift_owner", "only the shift's manager can do this")
	ErrInvalidManagerPin = denied("invalid_manager_pin", "the PIN does not match an active manager on this hotel")
)

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Invalid reports a field-level validation failure.
func Invalid(field, msg string) *Error {
	return &Error{Code: "validation", Kind: ErrValidation, Field: field, Message: msg}
}

// NotFound reports a missing entity, e.g. NotFound("shift", id).
func NotFound(entity, id string) *Error {
	return &Error{
		Code:    entity + "_not_found",
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s %q not found", entity, id),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// KindOf returns the kind sentinel of err, or nil when err is Fatal.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrAccessDenied, ErrNotFound, ErrStateConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsFatal reports whether err falls outside the typed taxonomy.
func IsFatal(err error) bool { return err != nil && KindOf(err) == nil }

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
