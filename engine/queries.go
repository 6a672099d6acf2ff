/*
queries.go - Read models

All figures are derived from the ledger on read. Queries run outside write
transactions; a figure may be one commit behind a concurrent writer.

  CurrentState   open shift + running balance, rooms, low stock
  Overview       per-hotel totals over a range, for every visible hotel
  History        shifts, totals and a daily series in the hotel's zone
  ShiftReport    totals by type and method, balance, payout
*/
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/payout"
)

// DefaultHistoryDays is the History range when none is given.
const DefaultHistoryDays = 30

// =============================================================================
// CURRENT STATE
// =============================================================================

type State struct {
	Hotel         *hotel.Hotel
	OpenShift     *hotel.Shift
	Balance       *hotel.ShiftBalance // nil without an open shift
	Rooms         []hotel.Room
	RoomsByStatus map[hotel.RoomStatus]int
	CheckedIn     []hotel.RoomStay
	LowStock      []hotel.Product
}

func (e *Engine) CurrentState(ctx context.Context, hotelID string, p hotel.Principal) (st *State, err error) {
	ctx, done := e.begin(ctx, "CurrentState", attribute.String("hotel.id", hotelID))
	defer done(&err)

	if err := e.canRead(p, hotelID); err != nil {
		return nil, err
	}
	h, err := e.store.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	st = &State{Hotel: h, RoomsByStatus: make(map[hotel.RoomStatus]int)}

	if st.OpenShift, err = e.store.FindOpenShift(ctx, hotelID); err != nil {
		return nil, err
	}
	if st.OpenShift != nil {
		t, err := e.store.SumCashEntries(ctx, hotel.LedgerFilter{ShiftID: st.OpenShift.ID})
		if err != nil {
			return nil, err
		}
		b := hotel.BalanceOf(*st.OpenShift, t)
		st.Balance = &b
	}

	if st.Rooms, err = e.store.ListRooms(ctx, hotelID); err != nil {
		return nil, err
	}
	for _, r := range st.Rooms {
		st.RoomsByStatus[r.Status]++
	}
	if st.CheckedIn, err = e.store.ListStays(ctx, hotel.StayFilter{HotelID: hotelID, Status: hotel.StayCheckedIn}); err != nil {
		return nil, err
	}

	products, err := e.store.ListProducts(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	for _, prod := range products {
		if prod.Active && prod.LowStock() {
			st.LowStock = append(st.LowStock, prod)
		}
	}
	return st, nil
}

// =============================================================================
// OVERVIEW
// =============================================================================

type HotelSummary struct {
	Hotel     hotel.Hotel
	Totals    hotel.Breakdown
	Cash      hotel.Breakdown
	Card      hotel.Breakdown
	OpenShift *hotel.Shift
}

// Overview aggregates [from, to) per hotel for every hotel p can see. Zero
// bounds are open.
func (e *Engine) Overview(ctx context.Context, from, to time.Time, p hotel.Principal) (out []HotelSummary, err error) {
	ctx, done := e.begin(ctx, "Overview")
	defer done(&err)

	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	hotels, err := e.store.ListHotels(ctx)
	if err != nil {
		return nil, err
	}
	out = []HotelSummary{}
	for _, h := range hotels {
		if !e.access.CanAccessHotel(p, h.ID) {
			continue
		}
		t, err := e.store.SumCashEntries(ctx, hotel.LedgerFilter{HotelID: h.ID, From: from, To: to})
		if err != nil {
			return nil, err
		}
		open, err := e.store.FindOpenShift(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, HotelSummary{
			Hotel:     h,
			Totals:    t.Breakdown(),
			Cash:      t.MethodBreakdown(hotel.MethodCash),
			Card:      t.MethodBreakdown(hotel.MethodCard),
			OpenShift: open,
		})
	}
	return out, nil
}

func checkRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return hotel.Invalid("to", "must be after from")
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

type History struct {
	Hotel  *hotel.Hotel
	From   time.Time
	To     time.Time
	Shifts []hotel.Shift
	Totals hotel.Breakdown
	Cash   hotel.Breakdown
	Card   hotel.Breakdown
	Days   []hotel.DayBucket
}

// HotelZone returns the hotel's time zone for a principal allowed to read
// it. Access is checked before the lookup so a missing hotel and a
// forbidden one look the same.
func (e *Engine) HotelZone(ctx context.Context, hotelID string, p hotel.Principal) (*time.Location, error) {
	if err := e.canRead(p, hotelID); err != nil {
		return nil, err
	}
	h, err := e.store.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	return h.Location(), nil
}

// History reports [from, to). Without bounds it covers the last
// DefaultHistoryDays calendar days in the hotel's zone, today included.
func (e *Engine) History(ctx context.Context, hotelID string, from, to time.Time, p hotel.Principal) (hist *History, err error) {
	ctx, done := e.begin(ctx, "History", attribute.String("hotel.id", hotelID))
	defer done(&err)

	if err := e.canRead(p, hotelID); err != nil {
		return nil, err
	}
	h, err := e.store.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	loc := h.Location()
	if to.IsZero() {
		_, to = hotel.DayRange(e.now(), loc)
	}
	if from.IsZero() {
		end := hotel.StartOfDay(to.Add(-time.Nanosecond), loc)
		from = end.AddDate(0, 0, -(DefaultHistoryDays - 1))
	}
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	filter := hotel.LedgerFilter{HotelID: hotelID, From: from, To: to}
	totals, err := e.store.SumCashEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ListCashEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	shifts, err := e.store.ListShifts(ctx, hotel.ShiftFilter{HotelID: hotelID, From: from, To: to})
	if err != nil {
		return nil, err
	}

	return &History{
		Hotel:  h,
		From:   from,
		To:     to,
		Shifts: shifts,
		Totals: totals.Breakdown(),
		Cash:   totals.MethodBreakdown(hotel.MethodCash),
		Card:   totals.MethodBreakdown(hotel.MethodCard),
		Days:   hotel.DailySeries(entries, loc, from, to),
	}, nil
}

// =============================================================================
// SHIFT REPORT
// =============================================================================

type ShiftReport struct {
	Shift   *hotel.Shift
	Hotel   *hotel.Hotel
	Totals  hotel.Totals
	Balance hotel.ShiftBalance
	Cash    hotel.Breakdown
	Card    hotel.Breakdown
	Entries []hotel.CashEntry
	Sales   []hotel.ProductSale
	Payout  payout.Result
	Bonus   *payout.Result // set when the hotel's bonus table has a matching tier
}

func (e *Engine) ShiftReport(ctx context.Context, shiftID string, p hotel.Principal) (rep *ShiftReport, err error) {
	ctx, done := e.begin(ctx, "ShiftReport", attribute.String("shift.id", shiftID))
	defer done(&err)

	s, err := e.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if err := e.canRead(p, s.HotelID); err != nil {
		return nil, err
	}
	h, err := e.store.GetHotel(ctx, s.HotelID)
	if err != nil {
		return nil, err
	}

	filter := hotel.LedgerFilter{ShiftID: s.ID}
	totals, err := e.store.SumCashEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ListCashEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	sales, err := e.store.ListSales(ctx, hotel.SaleFilter{ShiftID: s.ID})
	if err != nil {
		return nil, err
	}
	terms, err := e.payoutTerms(ctx, h, s.ManagerID)
	if err != nil {
		return nil, err
	}

	agg := payout.Aggregate{
		CashIn:      totals.SumFor(hotel.EntryCashIn),
		AlreadyPaid: totals.SumFor(hotel.EntryManagerPayout),
	}
	rep = &ShiftReport{
		Shift:   s,
		Hotel:   h,
		Totals:  totals,
		Balance: hotel.BalanceOf(*s, totals),
		Cash:    totals.MethodBreakdown(hotel.MethodCash),
		Card:    totals.MethodBreakdown(hotel.MethodCard),
		Entries: entries,
		Sales:   sales,
		Payout:  payout.Calculate(agg, terms),
	}
	if bonus, ok := payout.CalculateTiered(agg, h.BonusTiers); ok {
		rep.Bonus = &bonus
	}
	return rep, nil
}

// payoutTerms reads the manager's assignment terms. A zero share falls back
// to the hotel default; a manager without an active assignment gets the
// hotel default share and no fixed pay.
func (e *Engine) payoutTerms(ctx context.Context, h *hotel.Hotel, managerID string) (payout.Terms, error) {
	terms := payout.Terms{ShareBps: h.ShareBps}
	a, err := e.store.GetActiveAssignment(ctx, h.ID, managerID)
	if hotel.IsNotFound(err) {
		return terms, nil
	}
	if err != nil {
		return terms, err
	}
	terms.FixedAmount = a.ShiftPay
	if a.ShareBps > 0 {
		terms.ShareBps = a.ShareBps
	}
	return terms, nil
}
