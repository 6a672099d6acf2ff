package engine

import (
	"context"
	"errors"

	"github.com/warp/hotel-backoffice/auth"
	"github.com/warp/hotel-backoffice/hotel"
)

// ResolveManagerPIN returns the single active manager assignment on hotelID
// whose PIN hash matches pin. Several matches are refused rather than
// resolved to the first one.
func (e *Engine) ResolveManagerPIN(ctx context.Context, hotelID, pin string) (a *hotel.HotelAssignment, err error) {
	ctx, done := e.begin(ctx, "ResolveManagerPIN")
	defer done(&err)
	return resolvePIN(ctx, e.store, hotelID, pin)
}

func resolvePIN(ctx context.Context, r hotel.Reader, hotelID, pin string) (*hotel.HotelAssignment, error) {
	if !auth.ValidPIN(pin) {
		return nil, hotel.ErrInvalidManagerPin
	}
	assignments, err := r.ListAssignments(ctx, hotelID, true)
	if err != nil {
		return nil, err
	}

	var match *hotel.HotelAssignment
	for i := range assignments {
		a := &assignments[i]
		if a.Role != hotel.RoleManager || a.PinHash == "" {
			continue
		}
		if !auth.CheckPIN(a.PinHash, pin) {
			continue
		}
		if match != nil {
			return nil, hotel.ErrAmbiguousPin
		}
		match = a
	}
	if match == nil {
		return nil, hotel.ErrInvalidManagerPin
	}
	return match, nil
}

// AssignInput describes a user's assignment to a hotel. PIN is required for
// managers and ignored for observers.
type AssignInput struct {
	HotelID  string
	UserID   string
	Role     hotel.Role
	PIN      string
	ShiftPay hotel.Money
	ShareBps int
}

// AssignManager creates an active assignment. At most one active assignment
// exists per (hotel, user), and no two active managers on a hotel share a PIN.
func (e *Engine) AssignManager(ctx context.Context, in AssignInput, p hotel.Principal) (a *hotel.HotelAssignment, err error) {
	ctx, done := e.begin(ctx, "AssignManager")
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	if in.Role != hotel.RoleManager && in.Role != hotel.RoleObserver {
		return nil, hotel.Invalid("role", "must be manager or observer")
	}
	if in.ShiftPay < 0 {
		return nil, hotel.Invalid("shift_pay", "must not be negative")
	}
	if in.ShareBps < 0 || in.ShareBps > 10000 {
		return nil, hotel.Invalid("share_bps", "must be between 0 and 10000")
	}

	a = &hotel.HotelAssignment{
		ID:        newID(),
		HotelID:   in.HotelID,
		UserID:    in.UserID,
		Role:      in.Role,
		Active:    true,
		ShiftPay:  in.ShiftPay,
		ShareBps:  in.ShareBps,
		CreatedAt: e.now(),
	}
	if in.Role == hotel.RoleManager {
		if !auth.ValidPIN(in.PIN) {
			return nil, hotel.Invalid("pin", "must be exactly 6 digits")
		}
		if a.PinHash, err = auth.HashPIN(in.PIN); err != nil {
			return nil, err
		}
	}

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		if _, err := tx.GetHotel(ctx, in.HotelID); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, in.UserID); err != nil {
			return err
		}
		if in.Role == hotel.RoleManager {
			existing, err := resolvePIN(ctx, tx, in.HotelID, in.PIN)
			switch {
			case errors.Is(err, hotel.ErrAmbiguousPin):
				return hotel.ErrDuplicatePin
			case err == nil && existing.UserID != in.UserID:
				return hotel.ErrDuplicatePin
			case err != nil && !errors.Is(err, hotel.ErrInvalidManagerPin):
				return err
			}
		}
		return tx.CreateAssignment(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeactivateAssignment ends a user's active assignment on a hotel. The
// user's existing tokens keep their hotel list until they expire.
func (e *Engine) DeactivateAssignment(ctx context.Context, hotelID, userID string, p hotel.Principal) (err error) {
	ctx, done := e.begin(ctx, "DeactivateAssignment")
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return err
	}
	return e.store.WithTx(ctx, func(tx hotel.Tx) error {
		a, err := tx.GetActiveAssignment(ctx, hotelID, userID)
		if err != nil {
			return err
		}
		a.Active = false
		return tx.UpdateAssignment(ctx, a)
	})
}
