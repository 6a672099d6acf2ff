package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/payout"
)

func sampleReport() *engine.ShiftReport {
	opened := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	h := &hotel.Hotel{ID: "alpha", Name: "Alpha", Timezone: "Europe/Moscow", Currency: "RUB"}
	s := &hotel.Shift{ID: "s1", HotelID: "alpha", ManagerID: "anna", Number: 7, OpenedAt: opened, OpeningCash: 10000, Status: hotel.ShiftOpen}
	entries := []hotel.CashEntry{
		{Type: hotel.EntryCashIn, Method: hotel.MethodCash, Amount: 12345, RecordedAt: opened.Add(time.Hour), Note: "Room 101 check-in"},
		{Type: hotel.EntryCashOut, Method: hotel.MethodCash, Amount: 500, RecordedAt: opened.Add(2 * time.Hour), Note: "soap"},
	}
	totals := hotel.TotalsOf(entries)
	return &engine.ShiftReport{
		Shift:   s,
		Hotel:   h,
		Totals:  totals,
		Balance: hotel.BalanceOf(*s, totals),
		Entries: entries,
		Sales: []hotel.ProductSale{
			{ProductID: "water", Quantity: 2, UnitPrice: 150, Total: 300, Method: hotel.MethodCash, Type: hotel.SaleCounter, SoldAt: opened.Add(3 * time.Hour)},
		},
		Payout: payout.Result{Expected: 1235, Pending: 1235},
	}
}

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	out, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestShiftWorkbook(t *testing.T) {
	// GIVEN: A shift report with two ledger lines and a sale
	// WHEN: Rendering and reading the workbook back
	// THEN: Sheets exist, times are local, amounts are in major units

	f, err := ShiftWorkbook(sampleReport())
	require.NoError(t, err)
	wb := reopen(t, f)

	assert.Equal(t, []string{"Summary", "Ledger", "Sales"}, wb.GetSheetList())

	v, err := wb.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	// 06:00 UTC is 09:00 in Moscow.
	v, err = wb.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10 09:00", v)

	v, err = wb.GetCellValue("Ledger", "D2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "123.45", v)

	v, err = wb.GetCellValue("Ledger", "D3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "-5", v)

	v, err = wb.GetCellValue("Sales", "B2")
	require.NoError(t, err)
	assert.Equal(t, "water", v)
}

func TestHistoryWorkbook_DaysSheet(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	from := time.Date(2025, time.March, 10, 0, 0, 0, 0, loc)
	entries := []hotel.CashEntry{
		{Type: hotel.EntryCashIn, Method: hotel.MethodCard, Amount: 1000, RecordedAt: from.Add(26 * time.Hour)},
	}
	h := &engine.History{
		Hotel: &hotel.Hotel{Name: "Alpha", Timezone: "Europe/Moscow", Currency: "RUB"},
		From:  from,
		To:    from.AddDate(0, 0, 3),
		Days:  hotel.DailySeries(entries, loc, from, from.AddDate(0, 0, 3)),
	}

	f, err := HistoryWorkbook(h)
	require.NoError(t, err)
	wb := reopen(t, f)

	rows, err := wb.GetRows("Days")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "2025-03-11", rows[2][0])

	v, err := wb.GetCellValue("Days", "B3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "10", v)
}

func TestParseRange(t *testing.T) {
	loc := time.UTC
	from, to, err := ParseRange("2025-03-01", "2025-03-31", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, loc), to)

	_, _, err = ParseRange("03/01/2025", "", loc)
	assert.ErrorIs(t, err, hotel.ErrValidation)

	assert.Equal(t, "alpha-shift-7.xlsx", Filename("alpha", "shift", 7))
}
