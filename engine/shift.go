/*
shift.go - Shift lifecycle

LIFECYCLE:
  open ──(Handover)──▶ closed   (terminal for managers)

  AdminForceEditShift may rewrite any field of a shift, including reopening
  it. Reopening is subject to the same single-open rule as OpenShift.

MANAGER OF RECORD:
  A manager opening a shift is its manager. An admin opening a shift names
  the manager by PIN, so the till is always attributed to the person on duty.

NUMBERING:
  Numbers come from a per-hotel counter incremented in the opening
  transaction. Deleting history never frees a number.
*/
package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/metrics"
)

// =============================================================================
// OPEN
// =============================================================================

type OpenShiftInput struct {
	HotelID     string
	OpeningCash hotel.Money
	Note        string
	PIN         string // required when the caller is not a manager
}

func (e *Engine) OpenShift(ctx context.Context, in OpenShiftInput, p hotel.Principal) (s *hotel.Shift, err error) {
	ctx, done := e.begin(ctx, "OpenShift", attribute.String("hotel.id", in.HotelID))
	defer done(&err)

	if err := nonNegative("opening_cash", in.OpeningCash); err != nil {
		return nil, err
	}
	if err := e.canWrite(p, in.HotelID); err != nil {
		return nil, err
	}
	if _, err := e.store.GetHotel(ctx, in.HotelID); err != nil {
		return nil, err
	}

	managerID, err := e.managerOfRecord(ctx, in.HotelID, in.PIN, p)
	if err != nil {
		return nil, err
	}

	open, err := e.store.FindOpenShift(ctx, in.HotelID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, hotel.ErrShiftAlreadyOpen
	}

	s = &hotel.Shift{
		ID:          newID(),
		HotelID:     in.HotelID,
		ManagerID:   managerID,
		OpenedAt:    e.now(),
		OpeningCash: in.OpeningCash,
		Status:      hotel.ShiftOpen,
		OpeningNote: in.Note,
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		open, err := tx.FindOpenShift(ctx, in.HotelID)
		if err != nil {
			return err
		}
		if open != nil {
			return hotel.ErrShiftAlreadyOpen
		}
		return tx.InsertShift(ctx, s)
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftOpened()
	e.logger.InfoContext(ctx, "shift opened",
		"hotel_id", s.HotelID, "shift_id", s.ID, "number", s.Number, "manager_id", s.ManagerID)
	return s, nil
}

// managerOfRecord returns the user the shift is attributed to.
func (e *Engine) managerOfRecord(ctx context.Context, hotelID, pin string, p hotel.Principal) (string, error) {
	if p.IsManager() {
		a, err := managerAssignment(ctx, e.store, hotelID, p.UserID)
		if err != nil {
			return "", err
		}
		return a.UserID, nil
	}
	if pin == "" {
		return "", hotel.Invalid("pin", "a manager PIN is required")
	}
	a, err := resolvePIN(ctx, e.store, hotelID, pin)
	if err != nil {
		return "", err
	}
	return a.UserID, nil
}

// =============================================================================
// HANDOVER
// =============================================================================

type HandoverInput struct {
	ShiftID      string
	ClosingCash  hotel.Money
	HandoverCash hotel.Money
	RecipientID  string // optional incoming manager
	Note         string
	PIN          string // lets a non-owner act with the shift manager's PIN
}

// Handover closes an open shift. The caller must be the shift's manager, an
// admin, or present the shift manager's PIN.
func (e *Engine) Handover(ctx context.Context, in HandoverInput, p hotel.Principal) (s *hotel.Shift, err error) {
	ctx, done := e.begin(ctx, "Handover", attribute.String("shift.id", in.ShiftID))
	defer done(&err)

	if err := nonNegative("closing_cash", in.ClosingCash); err != nil {
		return nil, err
	}
	if err := nonNegative("handover_cash", in.HandoverCash); err != nil {
		return nil, err
	}

	s, err = e.store.GetShift(ctx, in.ShiftID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, s.HotelID); err != nil {
		return nil, err
	}
	if err := e.authorizeShiftActor(ctx, s, in.PIN, p); err != nil {
		return nil, err
	}
	if !s.IsOpen() {
		return nil, hotel.ErrShiftNotOpen
	}
	if in.RecipientID != "" {
		if _, err := managerAssignment(ctx, e.store, s.HotelID, in.RecipientID); err != nil {
			if errors.Is(err, hotel.ErrForbidden) {
				return nil, hotel.Invalid("recipient_id", "must be an active manager of this hotel")
			}
			return nil, err
		}
	}

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		cur, err := tx.GetShift(ctx, in.ShiftID)
		if err != nil {
			return err
		}
		if !cur.IsOpen() {
			return hotel.ErrShiftNotOpen
		}
		now := e.now()
		cur.Status = hotel.ShiftClosed
		cur.ClosedAt = &now
		cur.ClosingCash = &in.ClosingCash
		cur.HandoverCash = &in.HandoverCash
		cur.RecipientID = in.RecipientID
		cur.HandoverNote = in.Note
		if err := tx.UpdateShift(ctx, cur); err != nil {
			return err
		}
		s = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftClosed()
	e.logger.InfoContext(ctx, "shift handed over",
		"hotel_id", s.HotelID, "shift_id", s.ID, "number", s.Number, "recipient_id", s.RecipientID)
	return s, nil
}

// authorizeShiftActor admits the shift's manager, admins, and callers
// presenting the shift manager's PIN.
func (e *Engine) authorizeShiftActor(ctx context.Context, s *hotel.Shift, pin string, p hotel.Principal) error {
	if p.UserID == s.ManagerID || e.access.IsHotelAdmin(p) {
		return nil
	}
	if pin == "" {
		return hotel.ErrNotShiftOwner
	}
	a, err := resolvePIN(ctx, e.store, s.HotelID, pin)
	if err != nil {
		return err
	}
	if a.UserID != s.ManagerID {
		return hotel.ErrNotShiftOwner
	}
	return nil
}

// =============================================================================
// ADMIN
// =============================================================================

// ShiftPatch lists the fields an admin may rewrite. Nil fields are left
// unchanged.
type ShiftPatch struct {
	ManagerID    *string
	OpenedAt     *time.Time
	ClosedAt     *time.Time
	OpeningCash  *hotel.Money
	ClosingCash  *hotel.Money
	HandoverCash *hotel.Money
	OpeningNote  *string
	ClosingNote  *string
	HandoverNote *string
	Status       *hotel.ShiftStatus
}

func (p ShiftPatch) validate() error {
	for field, v := range map[string]*hotel.Money{
		"opening_cash":  p.OpeningCash,
		"closing_cash":  p.ClosingCash,
		"handover_cash": p.HandoverCash,
	} {
		if v != nil && *v < 0 {
			return hotel.Invalid(field, "must not be negative")
		}
	}
	if p.Status != nil && *p.Status != hotel.ShiftOpen && *p.Status != hotel.ShiftClosed {
		return hotel.Invalid("status", "must be open or closed")
	}
	if p.ManagerID != nil && *p.ManagerID == "" {
		return hotel.Invalid("manager_id", "must not be empty")
	}
	return nil
}

func (e *Engine) AdminForceEditShift(ctx context.Context, shiftID string, patch ShiftPatch, p hotel.Principal) (s *hotel.Shift, err error) {
	ctx, done := e.begin(ctx, "AdminForceEditShift", attribute.String("shift.id", shiftID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var wasOpen bool
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		cur, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		wasOpen = cur.IsOpen()

		if patch.ManagerID != nil {
			if _, err := managerAssignment(ctx, tx, cur.HotelID, *patch.ManagerID); err != nil {
				if errors.Is(err, hotel.ErrForbidden) {
					return hotel.Invalid("manager_id", "must be an active manager on this hotel")
				}
				return err
			}
			cur.ManagerID = *patch.ManagerID
		}
		if patch.OpenedAt != nil {
			cur.OpenedAt = patch.OpenedAt.UTC()
		}
		if patch.ClosedAt != nil {
			t := patch.ClosedAt.UTC()
			cur.ClosedAt = &t
		}
		if patch.OpeningCash != nil {
			cur.OpeningCash = *patch.OpeningCash
		}
		if patch.ClosingCash != nil {
			cur.ClosingCash = patch.ClosingCash
		}
		if patch.HandoverCash != nil {
			cur.HandoverCash = patch.HandoverCash
		}
		if patch.OpeningNote != nil {
			cur.OpeningNote = *patch.OpeningNote
		}
		if patch.ClosingNote != nil {
			cur.ClosingNote = *patch.ClosingNote
		}
		if patch.HandoverNote != nil {
			cur.HandoverNote = *patch.HandoverNote
		}

		if patch.Status != nil && *patch.Status != cur.Status {
			switch *patch.Status {
			case hotel.ShiftOpen:
				open, err := tx.FindOpenShift(ctx, cur.HotelID)
				if err != nil {
					return err
				}
				if open != nil && open.ID != cur.ID {
					return hotel.ErrShiftAlreadyOpen
				}
				cur.ClosedAt = nil
			case hotel.ShiftClosed:
				if cur.ClosedAt == nil {
					now := e.now()
					cur.ClosedAt = &now
				}
			}
			cur.Status = *patch.Status
		}
		if cur.ClosedAt != nil && cur.ClosedAt.Before(cur.OpenedAt) {
			return hotel.Invalid("closed_at", "must not be before opened_at")
		}

		if err := tx.UpdateShift(ctx, cur); err != nil {
			return err
		}
		s = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case wasOpen && !s.IsOpen():
		metrics.ShiftClosed()
	case !wasOpen && s.IsOpen():
		metrics.ShiftOpened()
	}
	e.logger.WarnContext(ctx, "shift force-edited", "shift_id", s.ID, "admin_id", p.UserID, "status", s.Status)
	return s, nil
}

// AdminDeleteClosedShiftsHistory deletes the hotel's closed shifts. Their
// ledger entries, stays and sales are kept with no shift reference.
func (e *Engine) AdminDeleteClosedShiftsHistory(ctx context.Context, hotelID string, p hotel.Principal) (n int, err error) {
	ctx, done := e.begin(ctx, "AdminDeleteClosedShiftsHistory", attribute.String("hotel.id", hotelID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return 0, err
	}
	if _, err := e.store.GetHotel(ctx, hotelID); err != nil {
		return 0, err
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		n, err = tx.DeleteClosedShifts(ctx, hotelID)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.logger.WarnContext(ctx, "closed shifts deleted", "hotel_id", hotelID, "count", n, "admin_id", p.UserID)
	return n, nil
}
