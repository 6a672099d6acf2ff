package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/hotel-backoffice/hotel"
)

const shiftColumns = `id, hotel_id, manager_id, number, opened_at, opening_cash, status,
	closed_at, closing_cash, handover_cash, recipient_id, opening_note, closing_note, handover_note`

func scanShift(s scanner) (hotel.Shift, error) {
	var (
		sh                   hotel.Shift
		closedAt             sql.NullTime
		closing, handover    sql.NullInt64
		recipient            sql.NullString
		openN, closeN, handN sql.NullString
	)
	err := s.Scan(&sh.ID, &sh.HotelID, &sh.ManagerID, &sh.Number, &sh.OpenedAt, &sh.OpeningCash, &sh.Status,
		&closedAt, &closing, &handover, &recipient, &openN, &closeN, &handN)
	if err != nil {
		return sh, err
	}
	sh.OpenedAt = sh.OpenedAt.UTC()
	sh.ClosedAt = timePtr(closedAt)
	sh.ClosingCash = moneyPtr(closing)
	sh.HandoverCash = moneyPtr(handover)
	sh.RecipientID = recipient.String
	sh.OpeningNote = openN.String
	sh.ClosingNote = closeN.String
	sh.HandoverNote = handN.String
	return sh, nil
}

func (c *conn) GetShift(ctx context.Context, id string) (*hotel.Shift, error) {
	row := c.queryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
	return one(row, scanShift, "shift", id)
}

func (c *conn) FindOpenShift(ctx context.Context, hotelID string) (*hotel.Shift, error) {
	row := c.queryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE hotel_id = ? AND status = ?`, hotelID, hotel.ShiftOpen)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open shift: %w", err)
	}
	return &sh, nil
}

// ListShifts returns newest first.
func (c *conn) ListShifts(ctx context.Context, f hotel.ShiftFilter) ([]hotel.Shift, error) {
	var w where
	if f.HotelID != "" {
		w.add("hotel_id = ?", f.HotelID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		w.add("opened_at >= ?", ts(f.From))
	}
	if !f.To.IsZero() {
		w.add("opened_at < ?", ts(f.To))
	}
	q := `SELECT ` + shiftColumns + ` FROM shifts` + w.String() + ` ORDER BY opened_at DESC, number DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := c.query(ctx, q, w.args...)
	return many(rows, err, scanShift, "shifts")
}

// InsertShift assigns s.Number from the hotel sequence before inserting.
func (c *conn) InsertShift(ctx context.Context, s *hotel.Shift) error {
	n, err := c.nextShiftNumber(ctx, s.HotelID)
	if err != nil {
		return err
	}
	s.Number = n

	_, err = c.exec(ctx, `
		INSERT INTO shifts (id, hotel_id, manager_id, number, opened_at, opening_cash, status,
			closed_at, closing_cash, handover_cash, recipient_id, opening_note, closing_note, handover_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.HotelID, s.ManagerID, s.Number, ts(s.OpenedAt), s.OpeningCash, s.Status,
		nullTime(s.ClosedAt), nullMoney(s.ClosingCash), nullMoney(s.HandoverCash), nullString(s.RecipientID),
		nullString(s.OpeningNote), nullString(s.ClosingNote), nullString(s.HandoverNote),
	)
	return c.translate("insert shift", err)
}

func (c *conn) UpdateShift(ctx context.Context, s *hotel.Shift) error {
	res, err := c.exec(ctx, `
		UPDATE shifts SET manager_id = ?, opened_at = ?, opening_cash = ?, status = ?,
			closed_at = ?, closing_cash = ?, handover_cash = ?, recipient_id = ?,
			opening_note = ?, closing_note = ?, handover_note = ?
		WHERE id = ?`,
		s.ManagerID, ts(s.OpenedAt), s.OpeningCash, s.Status,
		nullTime(s.ClosedAt), nullMoney(s.ClosingCash), nullMoney(s.HandoverCash), nullString(s.RecipientID),
		nullString(s.OpeningNote), nullString(s.ClosingNote), nullString(s.HandoverNote), s.ID,
	)
	if err != nil {
		return c.translate("update shift", err)
	}
	return affected(res, "shift", s.ID)
}

// DeleteClosedShifts detaches ledger, stay and sale rows before deleting so
// the history they carry survives.
func (c *conn) DeleteClosedShifts(ctx context.Context, hotelID string) (int, error) {
	closed := `SELECT id FROM shifts WHERE hotel_id = ? AND status = ?`
	for _, table := range []string{"cash_entries", "room_stays", "product_sales"} {
		_, err := c.exec(ctx, `UPDATE `+table+` SET shift_id = NULL WHERE shift_id IN (`+closed+`)`, hotelID, hotel.ShiftClosed)
		if err != nil {
			return 0, fmt.Errorf("detach %s: %w", table, err)
		}
	}

	res, err := c.exec(ctx, `DELETE FROM shifts WHERE hotel_id = ? AND status = ?`, hotelID, hotel.ShiftClosed)
	if err != nil {
		return 0, fmt.Errorf("delete closed shifts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
