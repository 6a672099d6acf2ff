package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/payout"
)

// =============================================================================
// HOTELS
// =============================================================================

const hotelColumns = `id, name, address, timezone, currency, share_bps, cleaning_channel, bonus_tiers, created_at`

func scanHotel(s scanner) (hotel.Hotel, error) {
	var (
		h                hotel.Hotel
		address, channel sql.NullString
		tiers            sql.NullString
	)
	err := s.Scan(&h.ID, &h.Name, &address, &h.Timezone, &h.Currency, &h.ShareBps, &channel, &tiers, &h.CreatedAt)
	if err != nil {
		return h, err
	}
	h.Address = address.String
	h.CleaningChannel = channel.String
	h.CreatedAt = h.CreatedAt.UTC()
	if tiers.Valid && tiers.String != "" {
		if h.BonusTiers, err = payout.ParseTiers(tiers.String); err != nil {
			return h, fmt.Errorf("hotel %s bonus tiers: %w", h.ID, err)
		}
	}
	return h, nil
}

func (c *conn) GetHotel(ctx context.Context, id string) (*hotel.Hotel, error) {
	row := c.queryRow(ctx, `SELECT `+hotelColumns+` FROM hotels WHERE id = ?`, id)
	return one(row, scanHotel, "hotel", id)
}

func (c *conn) ListHotels(ctx context.Context) ([]hotel.Hotel, error) {
	rows, err := c.query(ctx, `SELECT `+hotelColumns+` FROM hotels ORDER BY name`)
	return many(rows, err, scanHotel, "hotels")
}

func (c *conn) CreateHotel(ctx context.Context, h *hotel.Hotel) error {
	var tiers any
	if len(h.BonusTiers) > 0 {
		raw, err := payout.EncodeTiers(h.BonusTiers)
		if err != nil {
			return err
		}
		tiers = raw
	}
	_, err := c.exec(ctx, `
		INSERT INTO hotels (id, name, address, timezone, currency, share_bps, cleaning_channel, bonus_tiers, shift_seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		h.ID, h.Name, nullString(h.Address), h.Timezone, h.Currency, h.ShareBps,
		nullString(h.CleaningChannel), tiers, ts(h.CreatedAt),
	)
	return c.translate("create hotel", err)
}

// DeleteHotel relies on ON DELETE CASCADE for dependent rows.
func (c *conn) DeleteHotel(ctx context.Context, id string) error {
	res, err := c.exec(ctx, `DELETE FROM hotels WHERE id = ?`, id)
	if err != nil {
		return c.translate("delete hotel", err)
	}
	return affected(res, "hotel", id)
}

// nextShiftNumber consumes the hotel's shift sequence. On PostgreSQL the
// UPDATE also row-locks the hotel until the transaction ends.
func (c *conn) nextShiftNumber(ctx context.Context, hotelID string) (int, error) {
	var n int
	err := c.queryRow(ctx, `UPDATE hotels SET shift_seq = shift_seq + 1 WHERE id = ? RETURNING shift_seq`, hotelID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, hotel.NotFound("hotel", hotelID)
	}
	if err != nil {
		return 0, fmt.Errorf("next shift number: %w", err)
	}
	return n, nil
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, email, name, role, password_hash, active, created_at`

func scanUser(s scanner) (hotel.User, error) {
	var (
		u    hotel.User
		hash sql.NullString
	)
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &hash, &u.Active, &u.CreatedAt)
	u.PasswordHash = hash.String
	u.CreatedAt = u.CreatedAt.UTC()
	return u, err
}

func (c *conn) GetUser(ctx context.Context, id string) (*hotel.User, error) {
	row := c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return one(row, scanUser, "user", id)
}

func (c *conn) GetUserByEmail(ctx context.Context, email string) (*hotel.User, error) {
	row := c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return one(row, scanUser, "user", email)
}

func (c *conn) CreateUser(ctx context.Context, u *hotel.User) error {
	_, err := c.exec(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, nullString(u.PasswordHash), u.Active, ts(u.CreatedAt),
	)
	return c.translate("create user", err)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

const assignmentColumns = `id, hotel_id, user_id, role, active, pin_hash, shift_pay, share_bps, created_at`

func scanAssignment(s scanner) (hotel.HotelAssignment, error) {
	var (
		a   hotel.HotelAssignment
		pin sql.NullString
	)
	err := s.Scan(&a.ID, &a.HotelID, &a.UserID, &a.Role, &a.Active, &pin, &a.ShiftPay, &a.ShareBps, &a.CreatedAt)
	a.PinHash = pin.String
	a.CreatedAt = a.CreatedAt.UTC()
	return a, err
}

func (c *conn) GetActiveAssignment(ctx context.Context, hotelID, userID string) (*hotel.HotelAssignment, error) {
	row := c.queryRow(ctx, `SELECT `+assignmentColumns+` FROM hotel_assignments
		WHERE hotel_id = ? AND user_id = ? AND active = ?`, hotelID, userID, true)
	return one(row, scanAssignment, "assignment", hotelID+"/"+userID)
}

func (c *conn) ListAssignments(ctx context.Context, hotelID string, activeOnly bool) ([]hotel.HotelAssignment, error) {
	var w where
	w.add("hotel_id = ?", hotelID)
	if activeOnly {
		w.add("active = ?", true)
	}
	rows, err := c.query(ctx, `SELECT `+assignmentColumns+` FROM hotel_assignments`+w.String()+` ORDER BY created_at`, w.args...)
	return many(rows, err, scanAssignment, "assignments")
}

func (c *conn) ListUserAssignments(ctx context.Context, userID string) ([]hotel.HotelAssignment, error) {
	rows, err := c.query(ctx, `SELECT `+assignmentColumns+` FROM hotel_assignments
		WHERE user_id = ? ORDER BY created_at`, userID)
	return many(rows, err, scanAssignment, "assignments")
}

func (c *conn) CreateAssignment(ctx context.Context, a *hotel.HotelAssignment) error {
	_, err := c.exec(ctx, `
		INSERT INTO hotel_assignments (id, hotel_id, user_id, role, active, pin_hash, shift_pay, share_bps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.HotelID, a.UserID, a.Role, a.Active, nullString(a.PinHash), a.ShiftPay, a.ShareBps, ts(a.CreatedAt),
	)
	return c.translate("create assignment", err)
}

func (c *conn) UpdateAssignment(ctx context.Context, a *hotel.HotelAssignment) error {
	res, err := c.exec(ctx, `
		UPDATE hotel_assignments SET role = ?, active = ?, pin_hash = ?, shift_pay = ?, share_bps = ?
		WHERE id = ?`,
		a.Role, a.Active, nullString(a.PinHash), a.ShiftPay, a.ShareBps, a.ID,
	)
	if err != nil {
		return c.translate("update assignment", err)
	}
	return affected(res, "assignment", a.ID)
}
