/*
stay.go - Check-in, check-out and bookings

PURPOSE:
  Applies the occupancy state machine (hotel/occupancy.go) through the
  store. Every stay transition re-reads the stay and its room inside the
  transaction, so a concurrent transition is judged against committed state.

PAYMENT:
  A walk-in check-in is paid up front. The payment becomes one cash_in
  entry per non-zero part (cash, card), attributed to the shift and to the
  shift's manager:

    {Method: "mixed", Amount: 5000, Cash: 2000, Card: 3000}
      -> cash_in/cash 2000 + cash_in/card 3000

NOTIFICATIONS:
  check-in   after a paid check-in commits
  cleaning   after a check-out leaves the room dirty
*/
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/notify"
)

// =============================================================================
// PAYMENT
// =============================================================================

const MethodMixed = "mixed"

// Payment is what the guest paid at check-in. For "cash" or "card" only
// Amount is read; "mixed" needs Cash + Card == Amount.
type Payment struct {
	Method string
	Amount hotel.Money
	Cash   hotel.Money
	Card   hotel.Money
}

// split validates p and returns the cash and card parts. method is nil for a
// split payment.
func (p Payment) split() (cash, card hotel.Money, method *hotel.PaymentMethod, err error) {
	if err := positive("amount_paid", p.Amount); err != nil {
		return 0, 0, nil, err
	}
	switch p.Method {
	case string(hotel.MethodCash):
		m := hotel.MethodCash
		return p.Amount, 0, &m, nil
	case string(hotel.MethodCard):
		m := hotel.MethodCard
		return 0, p.Amount, &m, nil
	case MethodMixed:
		if p.Cash < 0 || p.Card < 0 {
			return 0, 0, nil, hotel.Invalid("payment", "parts must not be negative")
		}
		if p.Cash+p.Card != p.Amount {
			return 0, 0, nil, hotel.Invalid("payment", "cash and card parts must add up to the amount paid")
		}
		return p.Cash, p.Card, nil, nil
	case "":
		return 0, 0, nil, hotel.Invalid("payment_method", "is required")
	default:
		return 0, 0, nil, hotel.Invalid("payment_method", "must be cash, card or mixed")
	}
}

// =============================================================================
// CHECK-IN
// =============================================================================

type CheckInInput struct {
	RoomID            string
	ShiftID           string
	GuestName         string
	Payment           Payment
	ScheduledCheckOut *time.Time
}

type CheckInResult struct {
	Stay    *hotel.RoomStay
	Room    *hotel.Room
	Entries []hotel.CashEntry
}

// CheckIn registers a walk-in guest on a free room and records the payment.
func (e *Engine) CheckIn(ctx context.Context, in CheckInInput, p hotel.Principal) (res *CheckInResult, err error) {
	ctx, done := e.begin(ctx, "CheckIn", attribute.String("room.id", in.RoomID))
	defer done(&err)

	cash, card, method, err := in.Payment.split()
	if err != nil {
		return nil, err
	}
	room, err := e.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, room.HotelID); err != nil {
		return nil, err
	}
	h, err := e.store.GetHotel(ctx, room.HotelID)
	if err != nil {
		return nil, err
	}
	if _, err := e.openShiftOf(ctx, e.store, in.ShiftID, room.HotelID); err != nil {
		return nil, err
	}
	if !room.Active || room.Status == hotel.RoomMaintenance {
		return nil, hotel.ErrRoomUnavailable
	}
	if room.Status == hotel.RoomOccupied || room.CurrentStayID != "" {
		return nil, hotel.ErrRoomOccupied
	}
	if room.Status != hotel.RoomAvailable {
		return nil, hotel.ErrRoomNeedsCleaning
	}

	now := e.now()
	stay := &hotel.RoomStay{
		ID:            newID(),
		RoomID:        room.ID,
		HotelID:       room.HotelID,
		GuestName:     strings.TrimSpace(in.GuestName),
		Status:        hotel.StayScheduled,
		AmountPaid:    in.Payment.Amount,
		CashPaid:      cash,
		CardPaid:      card,
		PaymentMethod: method,
		CreatedAt:     now,
	}
	if in.ScheduledCheckOut != nil {
		out := in.ScheduledCheckOut.UTC()
		if !out.After(now) {
			return nil, hotel.Invalid("scheduled_check_out", "must be in the future")
		}
		stay.ScheduledCheckOut = &out
	}

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		res, err = e.checkIn(ctx, tx, in.RoomID, in.ShiftID, stay, true, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.observeEntries(res.Entries...)
	e.notify(notify.Event{
		Kind:      notify.KindCheckIn,
		HotelID:   h.ID,
		HotelName: h.Name,
		RoomLabel: res.Room.Label,
		GuestName: stay.GuestName,
		Amount:    stay.AmountPaid,
		Currency:  h.Currency,
		At:        now,
	})
	return res, nil
}

// checkIn moves stay to checked_in against the committed room and shift and
// appends the payment entries. isNew inserts the stay instead of updating it.
func (e *Engine) checkIn(ctx context.Context, tx hotel.Tx, roomID, shiftID string, stay *hotel.RoomStay, isNew bool, now time.Time) (*CheckInResult, error) {
	shift, err := e.openShiftOf(ctx, tx, shiftID, stay.HotelID)
	if err != nil {
		return nil, err
	}
	room, err := tx.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := hotel.ApplyStayTransition(room, stay, hotel.StayCheckedIn, now); err != nil {
		return nil, err
	}
	stay.ShiftID = shift.ID

	if isNew {
		err = tx.InsertStay(ctx, stay)
	} else {
		err = tx.UpdateStay(ctx, stay)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	res := &CheckInResult{Stay: stay, Room: room}
	for _, part := range []struct {
		method hotel.PaymentMethod
		amount hotel.Money
	}{
		{hotel.MethodCash, stay.CashPaid},
		{hotel.MethodCard, stay.CardPaid},
	} {
		if part.amount <= 0 {
			continue
		}
		entry := hotel.CashEntry{
			ID:         newID(),
			HotelID:    stay.HotelID,
			ShiftID:    shift.ID,
			ManagerID:  shift.ManagerID,
			Type:       hotel.EntryCashIn,
			Method:     part.method,
			Amount:     part.amount,
			Note:       stayNote(room, stay),
			StayID:     stay.ID,
			RecordedAt: now,
		}
		if err := tx.AppendCashEntry(ctx, &entry); err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func stayNote(room *hotel.Room, stay *hotel.RoomStay) string {
	if stay.GuestName == "" {
		return fmt.Sprintf("Room %s check-in", room.Label)
	}
	return fmt.Sprintf("Room %s check-in: %s", room.Label, stay.GuestName)
}

// openShiftOf loads shiftID and checks it is open and belongs to hotelID.
func (e *Engine) openShiftOf(ctx context.Context, r hotel.Reader, shiftID, hotelID string) (*hotel.Shift, error) {
	if shiftID == "" {
		return nil, hotel.Invalid("shift_id", "is required")
	}
	s, err := r.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if s.HotelID != hotelID {
		return nil, hotel.Invalid("shift_id", "belongs to another hotel")
	}
	if !s.IsOpen() {
		return nil, hotel.ErrShiftNotOpen
	}
	return s, nil
}

// =============================================================================
// CHECK-OUT
// =============================================================================

type StayResult struct {
	Stay *hotel.RoomStay
	Room *hotel.Room
}

// CheckOut closes the room's checked-in stay. When several stays are checked
// in (legacy data) the most recent one is closed.
func (e *Engine) CheckOut(ctx context.Context, roomID string, p hotel.Principal) (res *StayResult, err error) {
	ctx, done := e.begin(ctx, "CheckOut", attribute.String("room.id", roomID))
	defer done(&err)

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, room.HotelID); err != nil {
		return nil, err
	}
	if _, err := checkedInStay(ctx, e.store, roomID); err != nil {
		return nil, err
	}

	var roomChanged bool
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		stay, err := checkedInStay(ctx, tx, roomID)
		if err != nil {
			return err
		}
		res, roomChanged, err = e.transition(ctx, tx, stay, hotel.StayCheckedOut)
		return err
	})
	if err != nil {
		return nil, err
	}
	if roomChanged {
		e.notifyCleaning(ctx, res.Room)
	}
	return res, nil
}

func checkedInStay(ctx context.Context, r hotel.Reader, roomID string) (*hotel.RoomStay, error) {
	stays, err := r.ListStays(ctx, hotel.StayFilter{RoomID: roomID, Status: hotel.StayCheckedIn})
	if err != nil {
		return nil, err
	}
	if len(stays) == 0 {
		return nil, hotel.ErrStayNotCheckedIn
	}
	return &stays[0], nil
}

// transition applies a non-check-in move to stay and persists the room only
// when the stay still owns it.
func (e *Engine) transition(ctx context.Context, tx hotel.Tx, stay *hotel.RoomStay, to hotel.StayStatus) (*StayResult, bool, error) {
	room, err := tx.GetRoom(ctx, stay.RoomID)
	if err != nil {
		return nil, false, err
	}
	changed, err := hotel.ApplyStayTransition(room, stay, to, e.now())
	if err != nil {
		return nil, false, err
	}
	if err := tx.UpdateStay(ctx, stay); err != nil {
		return nil, false, err
	}
	if changed {
		if err := tx.UpdateRoom(ctx, room); err != nil {
			return nil, false, err
		}
	}
	return &StayResult{Stay: stay, Room: room}, changed, nil
}

func (e *Engine) notifyCleaning(ctx context.Context, room *hotel.Room) {
	h, err := e.store.GetHotel(ctx, room.HotelID)
	if err != nil {
		e.logger.WarnContext(ctx, "cleaning notification skipped", "room_id", room.ID, "error", err)
		return
	}
	e.notify(notify.Event{
		Kind:      notify.KindCleaning,
		HotelID:   h.ID,
		HotelName: h.Name,
		Channel:   h.CleaningChannel,
		RoomLabel: room.Label,
		At:        e.now(),
	})
}

// =============================================================================
// BOOKINGS
// =============================================================================

type ScheduleStayInput struct {
	RoomID    string
	GuestName string
	CheckIn   time.Time
	CheckOut  time.Time
}

// ScheduleStay books a room. The room is not touched until check-in.
func (e *Engine) ScheduleStay(ctx context.Context, in ScheduleStayInput, p hotel.Principal) (stay *hotel.RoomStay, err error) {
	ctx, done := e.begin(ctx, "ScheduleStay", attribute.String("room.id", in.RoomID))
	defer done(&err)

	if in.CheckIn.IsZero() {
		return nil, hotel.Invalid("scheduled_check_in", "is required")
	}
	if !in.CheckOut.IsZero() && !in.CheckOut.After(in.CheckIn) {
		return nil, hotel.Invalid("scheduled_check_out", "must be after check-in")
	}
	room, err := e.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, room.HotelID); err != nil {
		return nil, err
	}
	if !room.Active {
		return nil, hotel.ErrRoomUnavailable
	}

	now := e.now()
	checkIn := in.CheckIn.UTC()
	stay = &hotel.RoomStay{
		ID:               newID(),
		RoomID:           room.ID,
		HotelID:          room.HotelID,
		GuestName:        strings.TrimSpace(in.GuestName),
		ScheduledCheckIn: &checkIn,
		Status:           hotel.StayScheduled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !in.CheckOut.IsZero() {
		out := in.CheckOut.UTC()
		stay.ScheduledCheckOut = &out
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		return tx.InsertStay(ctx, stay)
	})
	if err != nil {
		return nil, err
	}
	return stay, nil
}

type TransitionInput struct {
	StayID  string
	To      hotel.StayStatus
	ShiftID string   // required for check-in
	Payment *Payment // optional, check-in only
}

// TransitionStay moves a stay along the state machine. A stay that no longer
// owns its room leaves the room untouched.
func (e *Engine) TransitionStay(ctx context.Context, in TransitionInput, p hotel.Principal) (res *StayResult, err error) {
	ctx, done := e.begin(ctx, "TransitionStay", attribute.String("stay.id", in.StayID), attribute.String("stay.to", string(in.To)))
	defer done(&err)

	switch in.To {
	case hotel.StayCheckedIn, hotel.StayCheckedOut, hotel.StayCancelled, hotel.StayNoShow:
	default:
		return nil, hotel.Invalid("status", "must be checked_in, checked_out, cancelled or no_show")
	}
	stay, err := e.store.GetStay(ctx, in.StayID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, stay.HotelID); err != nil {
		return nil, err
	}

	var pay struct {
		cash, card hotel.Money
		method     *hotel.PaymentMethod
	}
	if in.Payment != nil {
		if in.To != hotel.StayCheckedIn {
			return nil, hotel.Invalid("payment", "only accepted on check-in")
		}
		if pay.cash, pay.card, pay.method, err = in.Payment.split(); err != nil {
			return nil, err
		}
	}

	var (
		roomChanged bool
		entries     []hotel.CashEntry
	)
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		cur, err := tx.GetStay(ctx, in.StayID)
		if err != nil {
			return err
		}
		if in.To != hotel.StayCheckedIn {
			res, roomChanged, err = e.transition(ctx, tx, cur, in.To)
			return err
		}
		if in.Payment != nil {
			cur.AmountPaid = in.Payment.Amount
			cur.CashPaid, cur.CardPaid, cur.PaymentMethod = pay.cash, pay.card, pay.method
		}
		ci, err := e.checkIn(ctx, tx, cur.RoomID, in.ShiftID, cur, false, e.now())
		if err != nil {
			return err
		}
		res, entries = &StayResult{Stay: ci.Stay, Room: ci.Room}, ci.Entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.observeEntries(entries...)
	if in.To == hotel.StayCheckedOut && roomChanged {
		e.notifyCleaning(ctx, res.Room)
	}
	return res, nil
}

// =============================================================================
// ROOMS
// =============================================================================

// SetRoomStatus performs a direct status edit: the cleaning cycle for
// managers, maintenance for admins.
func (e *Engine) SetRoomStatus(ctx context.Context, roomID string, to hotel.RoomStatus, p hotel.Principal) (room *hotel.Room, err error) {
	ctx, done := e.begin(ctx, "SetRoomStatus", attribute.String("room.id", roomID))
	defer done(&err)

	switch to {
	case hotel.RoomAvailable, hotel.RoomDirty, hotel.RoomMaintenance, hotel.RoomOccupied:
	default:
		return nil, hotel.Invalid("status", "unknown room status")
	}
	room, err = e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, room.HotelID); err != nil {
		return nil, err
	}

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		cur, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		ch, err := hotel.CheckRoomStatusChange(*cur, to)
		if err != nil {
			return err
		}
		if ch.RequiresAdmin {
			if err := e.requireAdmin(p); err != nil {
				return err
			}
		}
		cur.Status = to
		if err := tx.UpdateRoom(ctx, cur); err != nil {
			return err
		}
		room = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (e *Engine) DeleteRoom(ctx context.Context, roomID string, p hotel.Principal) (err error) {
	ctx, done := e.begin(ctx, "DeleteRoom", attribute.String("room.id", roomID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return err
	}
	return e.store.WithTx(ctx, func(tx hotel.Tx) error {
		return tx.DeleteRoom(ctx, roomID)
	})
}
