package payout

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNegativeTier  = errors.New("tier values must not be negative")
	ErrDuplicateTier = errors.New("duplicate tier threshold")
	ErrBpsOutOfRange = errors.New("bonus_bps must be between 0 and 10000")
)

// TierTableJSON is the stored form of a hotel's bonus table:
//
//	{"tiers": [{"threshold": 0, "fixed_bonus": 100000, "bonus_bps": 0},
//	           {"threshold": 5000000, "fixed_bonus": 150000, "bonus_bps": 250}]}
type TierTableJSON struct {
	Tiers []Tier `json:"tiers"`
}

// ParseTiers decodes and validates a tier table. The result is sorted by
// threshold ascending. An empty string yields an empty table.
func ParseTiers(raw string) ([]Tier, error) {
	if raw == "" {
		return nil, nil
	}
	var tj TierTableJSON
	if err := json.Unmarshal([]byte(raw), &tj); err != nil {
		return nil, fmt.Errorf("failed to parse tier table JSON: %w", err)
	}
	if err := ValidateTiers(tj.Tiers); err != nil {
		return nil, err
	}
	tiers := append([]Tier(nil), tj.Tiers...)
	sortTiers(tiers)
	return tiers, nil
}

// EncodeTiers is the inverse of ParseTiers.
func EncodeTiers(tiers []Tier) (string, error) {
	if len(tiers) == 0 {
		return "", nil
	}
	b, err := json.Marshal(TierTableJSON{Tiers: tiers})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ValidateTiers checks signs, basis-point range and threshold uniqueness.
func ValidateTiers(tiers []Tier) error {
	seen := make(map[int64]bool, len(tiers))
	for _, t := range tiers {
		if t.Threshold < 0 || t.FixedBonus < 0 {
			return ErrNegativeTier
		}
		if t.BonusBps < 0 || t.BonusBps > BasisPoints {
			return ErrBpsOutOfRange
		}
		if seen[t.Threshold] {
			return fmt.Errorf("%w: %d", ErrDuplicateTier, t.Threshold)
		}
		seen[t.Threshold] = true
	}
	return nil
}
