package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/hotel-backoffice/hotel"
)

// APPEND-ONLY: this file has no UPDATE or DELETE on cash_entries. The only
// statement that touches existing rows is the detach in DeleteClosedShifts.

const entryColumns = `id, hotel_id, shift_id, manager_id, entry_type, method, amount, note, sale_id, stay_id, recorded_at`

func scanEntry(s scanner) (hotel.CashEntry, error) {
	var (
		e                         hotel.CashEntry
		shiftID, note, sale, stay sql.NullString
	)
	err := s.Scan(&e.ID, &e.HotelID, &shiftID, &e.ManagerID, &e.Type, &e.Method, &e.Amount, &note, &sale, &stay, &e.RecordedAt)
	e.ShiftID = shiftID.String
	e.Note = note.String
	e.SaleID = sale.String
	e.StayID = stay.String
	e.RecordedAt = e.RecordedAt.UTC()
	return e, err
}

func ledgerWhere(f hotel.LedgerFilter) *where {
	w := &where{}
	if f.HotelID != "" {
		w.add("hotel_id = ?", f.HotelID)
	}
	if f.ShiftID != "" {
		w.add("shift_id = ?", f.ShiftID)
	}
	if f.Type != "" {
		w.add("entry_type = ?", f.Type)
	}
	if f.Method != "" {
		w.add("method = ?", f.Method)
	}
	if !f.From.IsZero() {
		w.add("recorded_at >= ?", ts(f.From))
	}
	if !f.To.IsZero() {
		w.add("recorded_at < ?", ts(f.To))
	}
	return w
}

func (c *conn) ListCashEntries(ctx context.Context, f hotel.LedgerFilter) ([]hotel.CashEntry, error) {
	w := ledgerWhere(f)
	rows, err := c.query(ctx, `SELECT `+entryColumns+` FROM cash_entries`+w.String()+` ORDER BY recorded_at, id`, w.args...)
	return many(rows, err, scanEntry, "cash entries")
}

func (c *conn) SumCashEntries(ctx context.Context, f hotel.LedgerFilter) (hotel.Totals, error) {
	var totals hotel.Totals
	w := ledgerWhere(f)
	rows, err := c.query(ctx, `
		SELECT entry_type, method, CAST(SUM(amount) AS BIGINT), COUNT(*)
		FROM cash_entries`+w.String()+`
		GROUP BY entry_type, method`, w.args...)
	if err != nil {
		return totals, fmt.Errorf("sum cash entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ    hotel.EntryType
			method hotel.PaymentMethod
			sum    hotel.Money
			n      int
		)
		if err := rows.Scan(&typ, &method, &sum, &n); err != nil {
			return totals, fmt.Errorf("scan totals: %w", err)
		}
		totals.AddCount(typ, method, sum, n)
	}
	return totals, rows.Err()
}

func (c *conn) AppendCashEntry(ctx context.Context, e *hotel.CashEntry) error {
	_, err := c.exec(ctx, `
		INSERT INTO cash_entries (id, hotel_id, shift_id, manager_id, entry_type, method, amount, note, sale_id, stay_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HotelID, nullString(e.ShiftID), e.ManagerID, e.Type, e.Method, e.Amount,
		nullString(e.Note), nullString(e.SaleID), nullString(e.StayID), ts(e.RecordedAt),
	)
	return c.translate("append cash entry", err)
}
