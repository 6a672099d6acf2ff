package engine

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/hotel-backoffice/hotel"
)

type LedgerInput struct {
	HotelID string
	ShiftID string // optional
	Type    hotel.EntryType
	Method  hotel.PaymentMethod
	Amount  hotel.Money
	Note    string
}

// RecordLedgerEntry appends a manual ledger line (expense, payout,
// adjustment). When a shift is given the entry is attributed to its manager;
// otherwise to the caller.
func (e *Engine) RecordLedgerEntry(ctx context.Context, in LedgerInput, p hotel.Principal) (entry *hotel.CashEntry, err error) {
	ctx, done := e.begin(ctx, "RecordLedgerEntry", attribute.String("hotel.id", in.HotelID))
	defer done(&err)

	if err := positive("amount", in.Amount); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, hotel.Invalid("entry_type", "must be cash_in, cash_out, manager_payout or adjustment")
	}
	if !in.Method.Valid() {
		return nil, hotel.Invalid("payment_method", "must be cash or card")
	}
	if err := e.canWrite(p, in.HotelID); err != nil {
		return nil, err
	}
	if _, err := e.store.GetHotel(ctx, in.HotelID); err != nil {
		return nil, err
	}

	entry = &hotel.CashEntry{
		ID:        newID(),
		HotelID:   in.HotelID,
		ShiftID:   in.ShiftID,
		ManagerID: p.UserID,
		Type:      in.Type,
		Method:    in.Method,
		Amount:    in.Amount,
		Note:      strings.TrimSpace(in.Note),
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		if in.ShiftID != "" {
			s, err := tx.GetShift(ctx, in.ShiftID)
			if err != nil {
				return err
			}
			if s.HotelID != in.HotelID {
				return hotel.Invalid("shift_id", "belongs to another hotel")
			}
			entry.ManagerID = s.ManagerID
		}
		entry.RecordedAt = e.now()
		return tx.AppendCashEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	e.observeEntries(*entry)
	e.logger.InfoContext(ctx, "ledger entry recorded",
		"hotel_id", entry.HotelID, "shift_id", entry.ShiftID, "type", entry.Type, "amount", entry.Amount)
	return entry, nil
}
