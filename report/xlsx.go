/*
Package report renders read models as Excel workbooks.

WORKBOOKS:
  ShiftWorkbook    Summary / Ledger / Sales sheets for one shift
  HistoryWorkbook  Summary / Days / Shifts sheets for a hotel and range

Amounts are written as numbers in major units (minor / 100) with a
two-decimal format, so totals can be recomputed in the spreadsheet. Times
are shown in the hotel's zone.
*/
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	timeLayout = "2006-01-02 15:04"
	dayLayout  = "2006-01-02"
)

// =============================================================================
// SHIFT
// =============================================================================

func ShiftWorkbook(rep *engine.ShiftReport) (*excelize.File, error) {
	b, err := newBuilder("Summary")
	if err != nil {
		return nil, err
	}
	loc := rep.Hotel.Location()
	s := rep.Shift

	closedAt := ""
	if s.ClosedAt != nil {
		closedAt = s.ClosedAt.In(loc).Format(timeLayout)
	}
	rows := [][]any{
		{"Hotel", rep.Hotel.Name},
		{"Shift", s.Number},
		{"Status", string(s.Status)},
		{"Manager", s.ManagerID},
		{"Opened", s.OpenedAt.In(loc).Format(timeLayout)},
		{"Closed", closedAt},
		{"Currency", rep.Hotel.Currency},
		{},
		{"Opening cash", money(s.OpeningCash)},
		{"Cash in", money(rep.Balance.CashIn)},
		{"Cash out", money(rep.Balance.CashOut)},
		{"Payouts", money(rep.Balance.Payouts)},
		{"Adjustments", money(rep.Balance.Adjustments)},
		{"Net", money(rep.Balance.Net)},
		{"Balance", money(rep.Balance.Balance)},
		{"Drawer (cash)", money(rep.Balance.Drawer)},
	}
	if s.ClosingCash != nil {
		rows = append(rows, []any{"Closing cash", money(*s.ClosingCash)})
	}
	if s.HandoverCash != nil {
		rows = append(rows, []any{"Handover cash", money(*s.HandoverCash)})
	}
	rows = append(rows,
		[]any{},
		[]any{"Payout expected", money(rep.Payout.Expected)},
		[]any{"Payout paid", money(rep.Payout.AlreadyPaid)},
		[]any{"Payout pending", money(rep.Payout.Pending)},
	)
	if rep.Bonus != nil {
		rows = append(rows, []any{"Tier bonus", money(rep.Bonus.Expected)})
	}
	if err := b.table("Summary", nil, rows, []float64{20, 28}); err != nil {
		return nil, err
	}

	ledger := make([][]any, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		ledger = append(ledger, []any{
			e.RecordedAt.In(loc).Format(timeLayout), string(e.Type), string(e.Method), money(signed(e)), e.Note, e.ManagerID,
		})
	}
	if err := b.table("Ledger", []string{"Time", "Type", "Method", "Amount", "Note", "Manager"}, ledger, []float64{18, 16, 10, 14, 40, 20}); err != nil {
		return nil, err
	}

	sales := make([][]any, 0, len(rep.Sales))
	for _, sale := range rep.Sales {
		sales = append(sales, []any{
			sale.SoldAt.In(loc).Format(timeLayout), sale.ProductID, sale.Quantity, money(sale.UnitPrice), money(sale.Total), string(sale.Method), string(sale.Type),
		})
	}
	if err := b.table("Sales", []string{"Time", "Product", "Qty", "Unit price", "Total", "Method", "Type"}, sales, []float64{18, 28, 8, 14, 14, 10, 10}); err != nil {
		return nil, err
	}
	return b.f, nil
}

// signed returns the entry's effect on net cash.
func signed(e hotel.CashEntry) hotel.Money {
	switch e.Type {
	case hotel.EntryCashOut, hotel.EntryManagerPayout:
		return -e.Amount
	}
	return e.Amount
}

// =============================================================================
// HISTORY
// =============================================================================

func HistoryWorkbook(h *engine.History) (*excelize.File, error) {
	b, err := newBuilder("Summary")
	if err != nil {
		return nil, err
	}
	loc := h.Hotel.Location()

	summary := [][]any{
		{"Hotel", h.Hotel.Name},
		{"From", h.From.In(loc).Format(dayLayout)},
		{"To (exclusive)", h.To.In(loc).Format(dayLayout)},
		{"Currency", h.Hotel.Currency},
		{},
		{"", "Total", "Cash", "Card"},
		{"Cash in", money(h.Totals.CashIn), money(h.Cash.CashIn), money(h.Card.CashIn)},
		{"Cash out", money(h.Totals.CashOut), money(h.Cash.CashOut), money(h.Card.CashOut)},
		{"Payouts", money(h.Totals.Payouts), money(h.Cash.Payouts), money(h.Card.Payouts)},
		{"Adjustments", money(h.Totals.Adjustments), money(h.Cash.Adjustments), money(h.Card.Adjustments)},
		{"Net", money(h.Totals.Net), money(h.Cash.Net), money(h.Card.Net)},
	}
	if err := b.table("Summary", nil, summary, []float64{18, 16, 16, 16}); err != nil {
		return nil, err
	}

	days := make([][]any, 0, len(h.Days))
	for _, d := range h.Days {
		bd := d.Totals.Breakdown()
		days = append(days, []any{
			d.Day.Format(dayLayout), money(bd.CashIn), money(bd.CashOut), money(bd.Payouts), money(bd.Adjustments), money(bd.Net),
		})
	}
	if err := b.table("Days", []string{"Day", "Cash in", "Cash out", "Payouts", "Adjustments", "Net"}, days, []float64{12, 14, 14, 14, 14, 14}); err != nil {
		return nil, err
	}

	shifts := make([][]any, 0, len(h.Shifts))
	for _, s := range h.Shifts {
		closed := ""
		if s.ClosedAt != nil {
			closed = s.ClosedAt.In(loc).Format(timeLayout)
		}
		shifts = append(shifts, []any{
			s.Number, s.ManagerID, string(s.Status), s.OpenedAt.In(loc).Format(timeLayout), closed, money(s.OpeningCash),
		})
	}
	if err := b.table("Shifts", []string{"#", "Manager", "Status", "Opened", "Closed", "Opening cash"}, shifts, []float64{6, 20, 10, 18, 18, 14}); err != nil {
		return nil, err
	}
	return b.f, nil
}

// Write streams the workbook and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	return f.Write(w)
}

// Filename builds a download name such as "alpha-shift-12.xlsx".
func Filename(parts ...any) string {
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += "-"
		}
		name += fmt.Sprint(p)
	}
	return name + ".xlsx"
}

// =============================================================================
// BUILDER
// =============================================================================

type builder struct {
	f      *excelize.File
	header int
	amount int
	first  string
}

func newBuilder(first string) (*builder, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	format := "#,##0.00"
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return nil, err
	}
	return &builder{f: f, header: header, amount: amount, first: first}, nil
}

// table writes an optional header row followed by rows. Amount cells get
// the number format.
func (b *builder) table(sheet string, header []string, rows [][]any, widths []float64) error {
	if sheet != b.first {
		if _, err := b.f.NewSheet(sheet); err != nil {
			return err
		}
	}

	row := 1
	if header != nil {
		for c, v := range header {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := b.f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(header), row)
		if err := b.f.SetCellStyle(sheet, first, last, b.header); err != nil {
			return err
		}
		row++
	}

	for _, values := range rows {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if a, ok := v.(amount); ok {
				if err := b.f.SetCellValue(sheet, cell, a.Float()); err != nil {
					return err
				}
				if err := b.f.SetCellStyle(sheet, cell, cell, b.amount); err != nil {
					return err
				}
				continue
			}
			if err := b.f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	for c, w := range widths {
		col, _ := excelize.ColumnNumberToName(c + 1)
		if err := b.f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// amount marks a minor-unit value for number formatting.
type amount struct{ d decimal.Decimal }

func money(minor hotel.Money) amount { return amount{d: decimal.New(minor, -2)} }

func (a amount) Float() float64 { return a.d.InexactFloat64() }

func (a amount) String() string { return a.d.StringFixed(2) }

// =============================================================================
// DAY RANGE
// =============================================================================

// ParseRange reads optional YYYY-MM-DD bounds in loc. to is inclusive on
// input and returned as the next local midnight.
func ParseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time
	if from != "" {
		d, err := hotel.ParseDay(from, loc)
		if err != nil {
			return start, end, hotel.Invalid("from", "must be YYYY-MM-DD")
		}
		start = d
	}
	if to != "" {
		d, err := hotel.ParseDay(to, loc)
		if err != nil {
			return start, end, hotel.Invalid("to", "must be YYYY-MM-DD")
		}
		end = hotel.NextDay(d)
	}
	return start, end, nil
}
