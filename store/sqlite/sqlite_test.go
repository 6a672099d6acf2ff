package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/store/sqlite"
	"github.com/warp/hotel-backoffice/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var t0 = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlstore.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seed creates hotel h1, manager u1, room r101 and product p1 (stock 3).
func seed(t *testing.T, store hotel.Store) {
	t.Helper()
	err := store.WithTx(context.Background(), func(tx hotel.Tx) error {
		ctx := context.Background()
		if err := tx.CreateHotel(ctx, &hotel.Hotel{ID: "h1", Name: "Alpha", Timezone: "Europe/Moscow", Currency: "RUB", CreatedAt: t0}); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, &hotel.User{ID: "u1", Email: "anna@example.com", Name: "Anna", Role: hotel.RoleManager, Active: true, CreatedAt: t0}); err != nil {
			return err
		}
		if err := tx.CreateRoom(ctx, &hotel.Room{ID: "r101", HotelID: "h1", Label: "101", Floor: 1, Status: hotel.RoomAvailable, Active: true, CreatedAt: t0}); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, &hotel.Product{ID: "p1", HotelID: "h1", Name: "Water", Unit: "btl", SellPrice: 150, Stock: 3, Active: true, CreatedAt: t0})
	})
	require.NoError(t, err)
}

func openShift(ctx context.Context, store hotel.Store, id string) (*hotel.Shift, error) {
	sh := &hotel.Shift{ID: id, HotelID: "h1", ManagerID: "u1", OpenedAt: t0, OpeningCash: 10000, Status: hotel.ShiftOpen}
	err := store.WithTx(ctx, func(tx hotel.Tx) error { return tx.InsertShift(ctx, sh) })
	return sh, err
}

func closeShift(t *testing.T, store hotel.Store, sh *hotel.Shift) {
	t.Helper()
	ctx := context.Background()
	closedAt := t0.Add(8 * time.Hour)
	sh.Status = hotel.ShiftClosed
	sh.ClosedAt = &closedAt
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.UpdateShift(ctx, sh) }))
}

// =============================================================================
// SINGLE OPEN SHIFT
// =============================================================================

func TestStore_SecondOpenShift_RejectedByIndex(t *testing.T) {
	// GIVEN: Hotel with an open shift
	// WHEN: Inserting another open shift directly (no application check)
	// THEN: The partial unique index rejects it as ErrShiftAlreadyOpen

	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	_, err := openShift(ctx, store, "s1")
	require.NoError(t, err)

	_, err = openShift(ctx, store, "s2")
	assert.ErrorIs(t, err, hotel.ErrShiftAlreadyOpen)
	assert.ErrorIs(t, err, hotel.ErrStateConflict)

	open, err := store.FindOpenShift(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "s1", open.ID)
}

func TestStore_ConcurrentOpens_ExactlyOneWins(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := openShift(ctx, store, fmt.Sprintf("s%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, hotel.ErrShiftAlreadyOpen):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)
}

// =============================================================================
// SHIFT NUMBERING
// =============================================================================

func TestStore_ShiftNumbers_NotReusedAfterHistoryDelete(t *testing.T) {
	// GIVEN: Shifts #1 and #2 closed, with a cash entry on #1
	// WHEN: Closed history is deleted and a new shift opened
	// THEN: The new shift is #3 and the cash entry survives, detached

	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	s1, err := openShift(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, s1.Number)

	entry := &hotel.CashEntry{ID: "e1", HotelID: "h1", ShiftID: "s1", ManagerID: "u1",
		Type: hotel.EntryCashIn, Method: hotel.MethodCash, Amount: 500, RecordedAt: t0.Add(time.Hour)}
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.AppendCashEntry(ctx, entry) }))
	closeShift(t, store, s1)

	s2, err := openShift(ctx, store, "s2")
	require.NoError(t, err)
	assert.Equal(t, 2, s2.Number)
	closeShift(t, store, s2)

	var deleted int
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error {
		deleted, err = tx.DeleteClosedShifts(ctx, "h1")
		return err
	}))
	assert.Equal(t, 2, deleted)

	s3, err := openShift(ctx, store, "s3")
	require.NoError(t, err)
	assert.Equal(t, 3, s3.Number)

	entries, err := store.ListCashEntries(ctx, hotel.LedgerFilter{HotelID: "h1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ShiftID)
	assert.Equal(t, hotel.Money(500), entries[0].Amount)
}

// =============================================================================
// STOCK GUARD
// =============================================================================

func TestStore_AdjustStock_GuardedDecrement(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	var level int
	err := store.WithTx(ctx, func(tx hotel.Tx) error {
		var err error
		level, err = tx.AdjustStock(ctx, "p1", -2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	err = store.WithTx(ctx, func(tx hotel.Tx) error {
		_, err := tx.AdjustStock(ctx, "p1", -2)
		return err
	})
	assert.ErrorIs(t, err, hotel.ErrStockConflict)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)

	err = store.WithTx(ctx, func(tx hotel.Tx) error {
		_, err := tx.AdjustStock(ctx, "missing", -1)
		return err
	})
	assert.True(t, hotel.IsNotFound(err))
}

func TestStore_FailedTx_RollsBackEverything(t *testing.T) {
	// GIVEN: A transaction that appends a cash entry then fails the stock guard
	// WHEN: The transaction returns the guard error
	// THEN: Neither the entry nor any stock change is visible

	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx hotel.Tx) error {
		if err := tx.AppendCashEntry(ctx, &hotel.CashEntry{ID: "e1", HotelID: "h1", ManagerID: "u1",
			Type: hotel.EntryCashIn, Method: hotel.MethodCash, Amount: 750, RecordedAt: t0}); err != nil {
			return err
		}
		_, err := tx.AdjustStock(ctx, "p1", -5)
		return err
	})
	require.ErrorIs(t, err, hotel.ErrStockConflict)

	entries, err := store.ListCashEntries(ctx, hotel.LedgerFilter{HotelID: "h1"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// LEDGER AGGREGATION
// =============================================================================

func TestStore_SumCashEntries_MatchesRowRecomputation(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	entries := []hotel.CashEntry{
		{ID: "e1", Type: hotel.EntryCashIn, Method: hotel.MethodCash, Amount: 3000, RecordedAt: t0},
		{ID: "e2", Type: hotel.EntryCashIn, Method: hotel.MethodCard, Amount: 2000, RecordedAt: t0.Add(time.Hour)},
		{ID: "e3", Type: hotel.EntryCashOut, Method: hotel.MethodCash, Amount: 400, RecordedAt: t0.Add(2 * time.Hour)},
		{ID: "e4", Type: hotel.EntryManagerPayout, Method: hotel.MethodCash, Amount: 1000, RecordedAt: t0.Add(26 * time.Hour)},
		{ID: "e5", Type: hotel.EntryAdjustment, Method: hotel.MethodCash, Amount: 50, RecordedAt: t0.Add(27 * time.Hour)},
	}
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error {
		for i := range entries {
			entries[i].HotelID = "h1"
			entries[i].ManagerID = "u1"
			if err := tx.AppendCashEntry(ctx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	ranges := []struct{ from, to time.Time }{
		{},
		{from: t0.Add(time.Hour)},
		{to: t0.Add(2 * time.Hour)},
		{from: t0.Add(30 * time.Minute), to: t0.Add(26 * time.Hour)},
		{from: t0.Add(26 * time.Hour), to: t0.Add(26*time.Hour + time.Microsecond)},
	}
	for _, r := range ranges {
		f := hotel.LedgerFilter{HotelID: "h1", From: r.from, To: r.to}
		totals, err := store.SumCashEntries(ctx, f)
		require.NoError(t, err)

		var want hotel.Money
		for _, e := range entries {
			if (!r.from.IsZero() && e.RecordedAt.Before(r.from)) || (!r.to.IsZero() && !e.RecordedAt.Before(r.to)) {
				continue
			}
			switch e.Type {
			case hotel.EntryCashIn, hotel.EntryAdjustment:
				want += e.Amount
			default:
				want -= e.Amount
			}
		}
		assert.Equal(t, want, totals.Net(), "range %v..%v", r.from, r.to)

		listed, err := store.ListCashEntries(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, totals.Net(), hotel.TotalsOf(listed).Net())
		assert.Equal(t, len(listed), totals.Count())
	}
}

// =============================================================================
// ROOMS & CASCADE
// =============================================================================

func TestStore_DeleteRoom_WithCurrentStay_Rejected(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	room, err := store.GetRoom(ctx, "r101")
	require.NoError(t, err)
	room.Status = hotel.RoomOccupied
	room.CurrentStayID = "st1"
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.UpdateRoom(ctx, room) }))

	err = store.WithTx(ctx, func(tx hotel.Tx) error { return tx.DeleteRoom(ctx, "r101") })
	assert.ErrorIs(t, err, hotel.ErrRoomHasStay)

	err = store.WithTx(ctx, func(tx hotel.Tx) error { return tx.DeleteRoom(ctx, "nope") })
	assert.True(t, hotel.IsNotFound(err))
}

func TestStore_ListStays_ActualCheckInFirst(t *testing.T) {
	// GIVEN: Two checked-in stays on r101; the booking was scheduled later
	// but its guest arrived first
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	scheduled := t0.Add(48 * time.Hour)
	early, late := t0.Add(time.Hour), t0.Add(2*time.Hour)
	stays := []*hotel.RoomStay{
		{ID: "booked", RoomID: "r101", HotelID: "h1", Status: hotel.StayCheckedIn, ScheduledCheckIn: &scheduled, ActualCheckIn: &early, CreatedAt: t0, UpdatedAt: t0},
		{ID: "walk-in", RoomID: "r101", HotelID: "h1", Status: hotel.StayCheckedIn, ActualCheckIn: &late, CreatedAt: t0, UpdatedAt: t0},
	}
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error {
		for _, st := range stays {
			if err := tx.InsertStay(ctx, st); err != nil {
				return err
			}
		}
		return nil
	}))

	// WHEN
	got, err := store.ListStays(ctx, hotel.StayFilter{RoomID: "r101", Status: hotel.StayCheckedIn})

	// THEN: The most recent arrival comes first
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "walk-in", got[0].ID)
	assert.Equal(t, "booked", got[1].ID)
}

func TestStore_DuplicateActiveAssignment_Rejected(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	a := &hotel.HotelAssignment{ID: "a1", HotelID: "h1", UserID: "u1", Role: hotel.RoleManager, Active: true, CreatedAt: t0}
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.CreateAssignment(ctx, a) }))

	dup := &hotel.HotelAssignment{ID: "a2", HotelID: "h1", UserID: "u1", Role: hotel.RoleObserver, Active: true, CreatedAt: t0}
	err := store.WithTx(ctx, func(tx hotel.Tx) error { return tx.CreateAssignment(ctx, dup) })
	assert.ErrorIs(t, err, hotel.ErrDuplicateAssignment)

	// An inactive duplicate is allowed.
	dup.Active = false
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.CreateAssignment(ctx, dup) }))
}

func TestStore_DeleteHotel_Cascades(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	_, err := openShift(ctx, store, "s1")
	require.NoError(t, err)

	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.DeleteHotel(ctx, "h1") }))

	_, err = store.GetRoom(ctx, "r101")
	assert.True(t, hotel.IsNotFound(err))
	_, err = store.GetShift(ctx, "s1")
	assert.True(t, hotel.IsNotFound(err))
	_, err = store.GetProduct(ctx, "p1")
	assert.True(t, hotel.IsNotFound(err))
}

func TestStore_Hotel_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)

	h, err := store.GetHotel(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", h.Name)
	assert.Equal(t, "Europe/Moscow", h.Location().String())
	assert.True(t, h.CreatedAt.Equal(t0))
}
