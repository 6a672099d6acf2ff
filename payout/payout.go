/*
Package payout computes what a manager is owed for a shift.

PURPOSE:
  A pure calculator over a shift's ledger aggregate and the manager's
  compensation terms. It never reads or writes storage.

FORMULAS:
  Share mode:
    expected = FixedAmount + round(CashIn * ShareBps / 10000)
  Tier mode:
    tier     = highest tier with Threshold <= revenue (revenue = CashIn)
    expected = tier.FixedBonus + round(revenue * tier.BonusBps / 10000)
  Both:
    pending  = max(0, expected - AlreadyPaid)

ROUNDING:
  Half-up to the nearest minor unit. Amounts are non-negative so
  decimal.Round (half away from zero) gives half-up.

SEE ALSO:
  - factory.go: JSON tier tables
  - engine/queries.go: ShiftReport feeds shift totals into Calculate
*/
package payout

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BasisPoints is the denominator for percentage fields.
const BasisPoints = 10000

// Terms are a manager's compensation for one hotel.
type Terms struct {
	FixedAmount int64 // per-shift pay, minor units
	ShareBps    int   // revenue share in basis points
}

// Aggregate is the slice of a shift's ledger that payouts depend on.
type Aggregate struct {
	CashIn      int64
	AlreadyPaid int64
}

// Tier is one row of a bonus table.
type Tier struct {
	Threshold  int64 `json:"threshold"`
	FixedBonus int64 `json:"fixed_bonus"`
	BonusBps   int   `json:"bonus_bps"`
}

// Result is the expected-vs-paid figure for a shift.
type Result struct {
	Expected    int64
	AlreadyPaid int64
	Pending     int64
	Tier        *Tier // set in tier mode
}

// Calculate applies fixed + revenue-share terms.
func Calculate(agg Aggregate, terms Terms) Result {
	expected := terms.FixedAmount + share(agg.CashIn, terms.ShareBps)
	return settle(expected, agg.AlreadyPaid)
}

// CalculateTiered selects the highest tier whose threshold does not exceed
// revenue. ok is false when no tiers are configured or revenue is below all
// thresholds.
func CalculateTiered(agg Aggregate, tiers []Tier) (Result, bool) {
	tier, ok := SelectTier(tiers, agg.CashIn)
	if !ok {
		return Result{}, false
	}
	res := settle(tier.FixedBonus+share(agg.CashIn, tier.BonusBps), agg.AlreadyPaid)
	res.Tier = &tier
	return res, true
}

// SelectTier returns the highest-threshold tier with Threshold <= revenue.
// The input does not need to be sorted.
func SelectTier(tiers []Tier, revenue int64) (Tier, bool) {
	var best Tier
	found := false
	for _, t := range tiers {
		if t.Threshold > revenue {
			continue
		}
		if !found || t.Threshold > best.Threshold {
			best = t
			found = true
		}
	}
	return best, found
}

// Share returns round(amount * bps / 10000), half-up.
func Share(amount int64, bps int) int64 { return share(amount, bps) }

func share(amount int64, bps int) int64 {
	if amount == 0 || bps == 0 {
		return 0
	}
	v := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(BasisPoints)).
		Round(0)
	return v.IntPart()
}

func settle(expected, paid int64) Result {
	pending := expected - paid
	if pending < 0 {
		pending = 0
	}
	return Result{Expected: expected, AlreadyPaid: paid, Pending: pending}
}

func sortTiers(tiers []Tier) {
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Threshold < tiers[j].Threshold })
}
