/*
ledger.go - Cash ledger aggregation

PURPOSE:
  The ledger is the source of truth for every cash figure shown anywhere.
  Nothing here is stored: totals, balances and day series are recomputed
  from CashEntry rows (or from the store's GROUP BY, which must agree).

NET CASH:
  net = cashIn - cashOut - payouts + adjustments

  Amounts on entries are magnitudes; the entry type gives the sign.

SHIFT BALANCE:
  balance = openingCash + net             (all methods)
  drawer  = openingCash + net(method=cash) (what should be in the till)

MISSING BUCKETS:
  Totals.SumFor is total: an entry type that never occurred sums to zero.

SEE ALSO:
  - time.go: day boundaries in the hotel's zone
  - store.go: SumCashEntries
*/
package hotel

import (
	"sort"
	"time"
)

// =============================================================================
// TOTALS
// =============================================================================

type totalsKey struct {
	Type   EntryType
	Method PaymentMethod
}

// Totals holds ledger sums keyed by entry type and payment method. The zero
// value is an empty, usable Totals.
type Totals struct {
	sums  map[totalsKey]Money
	count int
}

// Add accumulates one entry's magnitude.
func (t *Totals) Add(typ EntryType, method PaymentMethod, amount Money) {
	t.AddCount(typ, method, amount, 1)
}

// AddCount accumulates a pre-aggregated row (used by SQL GROUP BY scans).
func (t *Totals) AddCount(typ EntryType, method PaymentMethod, amount Money, n int) {
	if t.sums == nil {
		t.sums = make(map[totalsKey]Money)
	}
	t.sums[totalsKey{Type: typ, Method: method}] += amount
	t.count += n
}

// TotalsOf aggregates entries in memory.
func TotalsOf(entries []CashEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.Add(e.Type, e.Method, e.Amount)
	}
	return t
}

// SumFor returns the total for an entry type across methods, zero if absent.
func (t Totals) SumFor(typ EntryType) Money {
	var sum Money
	for k, v := range t.sums {
		if k.Type == typ {
			sum += v
		}
	}
	return sum
}

// SumForMethod returns the total for one (type, method) bucket.
func (t Totals) SumForMethod(typ EntryType, method PaymentMethod) Money {
	return t.sums[totalsKey{Type: typ, Method: method}]
}

// Count is the number of entries aggregated.
func (t Totals) Count() int { return t.count }

// Net applies the net cash formula across all methods.
func (t Totals) Net() Money {
	return netOf(t.SumFor)
}

// NetFor applies the net cash formula to one payment method.
func (t Totals) NetFor(method PaymentMethod) Money {
	return netOf(func(typ EntryType) Money { return t.SumForMethod(typ, method) })
}

func netOf(sum func(EntryType) Money) Money {
	return sum(EntryCashIn) - sum(EntryCashOut) - sum(EntryManagerPayout) + sum(EntryAdjustment)
}

// Merge returns the sum of two Totals.
func (t Totals) Merge(o Totals) Totals {
	var out Totals
	for k, v := range t.sums {
		out.AddCount(k.Type, k.Method, v, 0)
	}
	for k, v := range o.sums {
		out.AddCount(k.Type, k.Method, v, 0)
	}
	out.count = t.count + o.count
	return out
}

// Breakdown is the flat view of Totals for reporting.
type Breakdown struct {
	CashIn      Money
	CashOut     Money
	Payouts     Money
	Adjustments Money
	Net         Money
}

func (t Totals) Breakdown() Breakdown {
	return Breakdown{
		CashIn:      t.SumFor(EntryCashIn),
		CashOut:     t.SumFor(EntryCashOut),
		Payouts:     t.SumFor(EntryManagerPayout),
		Adjustments: t.SumFor(EntryAdjustment),
		Net:         t.Net(),
	}
}

// MethodBreakdown restricts the breakdown to one payment method.
func (t Totals) MethodBreakdown(method PaymentMethod) Breakdown {
	return Breakdown{
		CashIn:      t.SumForMethod(EntryCashIn, method),
		CashOut:     t.SumForMethod(EntryCashOut, method),
		Payouts:     t.SumForMethod(EntryManagerPayout, method),
		Adjustments: t.SumForMethod(EntryAdjustment, method),
		Net:         t.NetFor(method),
	}
}

// =============================================================================
// SHIFT BALANCE
// =============================================================================

type ShiftBalance struct {
	OpeningCash Money
	Breakdown
	Balance Money // opening + net, all methods
	Drawer  Money // opening + net of cash-method entries
}

// BalanceOf computes a shift's running position from its ledger totals.
func BalanceOf(s Shift, t Totals) ShiftBalance {
	return ShiftBalance{
		OpeningCash: s.OpeningCash,
		Breakdown:   t.Breakdown(),
		Balance:     s.OpeningCash + t.Net(),
		Drawer:      s.OpeningCash + t.NetFor(MethodCash),
	}
}

// =============================================================================
// DAY SERIES
// =============================================================================

// DayBucket holds the totals of one calendar day in the hotel's zone.
type DayBucket struct {
	Day    time.Time // local midnight
	Totals Totals
}

// DailySeries groups entries by calendar day in loc. Every day in
// [from, to) gets a bucket, empty days included. When from is zero the
// series starts at the first entry; when to is zero it ends after the last.
func DailySeries(entries []CashEntry, loc *time.Location, from, to time.Time) []DayBucket {
	if loc == nil {
		loc = time.UTC
	}
	sorted := append([]CashEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RecordedAt.Before(sorted[j].RecordedAt) })

	if from.IsZero() {
		if len(sorted) == 0 {
			return nil
		}
		from = sorted[0].RecordedAt
	}
	if to.IsZero() {
		if len(sorted) == 0 {
			return nil
		}
		to = sorted[len(sorted)-1].RecordedAt.Add(time.Nanosecond)
	}

	var buckets []DayBucket
	index := make(map[int64]int)
	for day := StartOfDay(from, loc); day.Before(to); day = NextDay(day) {
		index[day.Unix()] = len(buckets)
		buckets = append(buckets, DayBucket{Day: day})
	}

	for _, e := range sorted {
		if e.RecordedAt.Before(from) || !e.RecordedAt.Before(to) {
			continue
		}
		i, ok := index[StartOfDay(e.RecordedAt, loc).Unix()]
		if !ok {
			continue
		}
		buckets[i].Totals.Add(e.Type, e.Method, e.Amount)
	}
	return buckets
}
