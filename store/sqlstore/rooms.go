package sqlstore

import (
	"context"
	"database/sql"

	"github.com/warp/hotel-backoffice/hotel"
)

// =============================================================================
// ROOMS
// =============================================================================

const roomColumns = `id, hotel_id, label, floor, status, active, current_stay_id, created_at`

func scanRoom(s scanner) (hotel.Room, error) {
	var (
		r       hotel.Room
		current sql.NullString
	)
	err := s.Scan(&r.ID, &r.HotelID, &r.Label, &r.Floor, &r.Status, &r.Active, &current, &r.CreatedAt)
	r.CurrentStayID = current.String
	r.CreatedAt = r.CreatedAt.UTC()
	return r, err
}

func (c *conn) GetRoom(ctx context.Context, id string) (*hotel.Room, error) {
	row := c.queryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return one(row, scanRoom, "room", id)
}

func (c *conn) ListRooms(ctx context.Context, hotelID string) ([]hotel.Room, error) {
	rows, err := c.query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE hotel_id = ? ORDER BY floor, label`, hotelID)
	return many(rows, err, scanRoom, "rooms")
}

func (c *conn) CreateRoom(ctx context.Context, r *hotel.Room) error {
	_, err := c.exec(ctx, `
		INSERT INTO rooms (id, hotel_id, label, floor, status, active, current_stay_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.HotelID, r.Label, r.Floor, r.Status, r.Active, nullString(r.CurrentStayID), ts(r.CreatedAt),
	)
	return c.translate("create room", err)
}

func (c *conn) UpdateRoom(ctx context.Context, r *hotel.Room) error {
	res, err := c.exec(ctx, `
		UPDATE rooms SET label = ?, floor = ?, status = ?, active = ?, current_stay_id = ?
		WHERE id = ?`,
		r.Label, r.Floor, r.Status, r.Active, nullString(r.CurrentStayID), r.ID,
	)
	if err != nil {
		return c.translate("update room", err)
	}
	return affected(res, "room", r.ID)
}

// DeleteRoom removes the room and, by cascade, its stay history. The
// current-stay guard is part of the statement.
func (c *conn) DeleteRoom(ctx context.Context, id string) error {
	res, err := c.exec(ctx, `DELETE FROM rooms WHERE id = ? AND current_stay_id IS NULL`, id)
	if err != nil {
		return c.translate("delete room", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := c.GetRoom(ctx, id); err != nil {
			return err
		}
		return hotel.ErrRoomHasStay
	}
	return nil
}

// =============================================================================
// STAYS
// =============================================================================

const stayColumns = `id, room_id, hotel_id, shift_id, guest_name,
	scheduled_check_in, scheduled_check_out, actual_check_in, actual_check_out,
	status, amount_paid, cash_paid, card_paid, payment_method, created_at, updated_at`

func scanStay(s scanner) (hotel.RoomStay, error) {
	var (
		st                   hotel.RoomStay
		shiftID, guest, meth sql.NullString
		schedIn, schedOut    sql.NullTime
		actIn, actOut        sql.NullTime
	)
	err := s.Scan(&st.ID, &st.RoomID, &st.HotelID, &shiftID, &guest,
		&schedIn, &schedOut, &actIn, &actOut,
		&st.Status, &st.AmountPaid, &st.CashPaid, &st.CardPaid, &meth, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return st, err
	}
	st.ShiftID = shiftID.String
	st.GuestName = guest.String
	st.ScheduledCheckIn = timePtr(schedIn)
	st.ScheduledCheckOut = timePtr(schedOut)
	st.ActualCheckIn = timePtr(actIn)
	st.ActualCheckOut = timePtr(actOut)
	if meth.Valid {
		m := hotel.PaymentMethod(meth.String)
		st.PaymentMethod = &m
	}
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

func stayMethod(m *hotel.PaymentMethod) any {
	if m == nil {
		return nil
	}
	return string(*m)
}

func (c *conn) GetStay(ctx context.Context, id string) (*hotel.RoomStay, error) {
	row := c.queryRow(ctx, `SELECT `+stayColumns+` FROM room_stays WHERE id = ?`, id)
	return one(row, scanStay, "stay", id)
}

// ListStays orders the most recently (scheduled or actual) checked-in stay
// first.
func (c *conn) ListStays(ctx context.Context, f hotel.StayFilter) ([]hotel.RoomStay, error) {
	var w where
	if f.HotelID != "" {
		w.add("hotel_id = ?", f.HotelID)
	}
	if f.RoomID != "" {
		w.add("room_id = ?", f.RoomID)
	}
	if f.ShiftID != "" {
		w.add("shift_id = ?", f.ShiftID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	// Actual check-in wins over scheduled: CheckOut releases the guest who
	// most recently entered the room, not the latest booking.
	rows, err := c.query(ctx, `SELECT `+stayColumns+` FROM room_stays`+w.String()+`
		ORDER BY COALESCE(actual_check_in, scheduled_check_in, created_at) DESC, created_at DESC`, w.args...)
	return many(rows, err, scanStay, "stays")
}

func (c *conn) InsertStay(ctx context.Context, s *hotel.RoomStay) error {
	_, err := c.exec(ctx, `
		INSERT INTO room_stays (id, room_id, hotel_id, shift_id, guest_name,
			scheduled_check_in, scheduled_check_out, actual_check_in, actual_check_out,
			status, amount_paid, cash_paid, card_paid, payment_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RoomID, s.HotelID, nullString(s.ShiftID), nullString(s.GuestName),
		nullTime(s.ScheduledCheckIn), nullTime(s.ScheduledCheckOut), nullTime(s.ActualCheckIn), nullTime(s.ActualCheckOut),
		s.Status, s.AmountPaid, s.CashPaid, s.CardPaid, stayMethod(s.PaymentMethod), ts(s.CreatedAt), ts(s.UpdatedAt),
	)
	return c.translate("insert stay", err)
}

func (c *conn) UpdateStay(ctx context.Context, s *hotel.RoomStay) error {
	res, err := c.exec(ctx, `
		UPDATE room_stays SET shift_id = ?, guest_name = ?,
			scheduled_check_in = ?, scheduled_check_out = ?, actual_check_in = ?, actual_check_out = ?,
			status = ?, amount_paid = ?, cash_paid = ?, card_paid = ?, payment_method = ?, updated_at = ?
		WHERE id = ?`,
		nullString(s.ShiftID), nullString(s.GuestName),
		nullTime(s.ScheduledCheckIn), nullTime(s.ScheduledCheckOut), nullTime(s.ActualCheckIn), nullTime(s.ActualCheckOut),
		s.Status, s.AmountPaid, s.CashPaid, s.CardPaid, stayMethod(s.PaymentMethod), ts(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return c.translate("update stay", err)
	}
	return affected(res, "stay", s.ID)
}
