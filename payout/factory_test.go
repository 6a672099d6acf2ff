package payout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/payout"
)

func TestParseTiers(t *testing.T) {
	t.Run("sorted by threshold", func(t *testing.T) {
		raw := `{"tiers": [
			{"threshold": 5000000, "fixed_bonus": 150000, "bonus_bps": 250},
			{"threshold": 0, "fixed_bonus": 100000, "bonus_bps": 0}
		]}`

		tiers, err := payout.ParseTiers(raw)

		require.NoError(t, err)
		require.Len(t, tiers, 2)
		assert.Equal(t, int64(0), tiers[0].Threshold)
		assert.Equal(t, int64(5000000), tiers[1].Threshold)
		assert.Equal(t, 250, tiers[1].BonusBps)
	})

	t.Run("empty string is an empty table", func(t *testing.T) {
		tiers, err := payout.ParseTiers("")
		require.NoError(t, err)
		assert.Empty(t, tiers)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := payout.ParseTiers(`{"tiers": [`)
		assert.Error(t, err)
	})

	t.Run("invalid rows", func(t *testing.T) {
		cases := []struct {
			name string
			raw  string
			want error
		}{
			{"negative threshold", `{"tiers":[{"threshold":-1}]}`, payout.ErrNegativeTier},
			{"negative bonus", `{"tiers":[{"threshold":0,"fixed_bonus":-5}]}`, payout.ErrNegativeTier},
			{"bps above 100%", `{"tiers":[{"threshold":0,"bonus_bps":10001}]}`, payout.ErrBpsOutOfRange},
			{"negative bps", `{"tiers":[{"threshold":0,"bonus_bps":-1}]}`, payout.ErrBpsOutOfRange},
			{"duplicate threshold", `{"tiers":[{"threshold":10},{"threshold":10}]}`, payout.ErrDuplicateTier},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := payout.ParseTiers(tc.raw)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})
}

func TestEncodeTiers(t *testing.T) {
	// GIVEN no tiers
	raw, err := payout.EncodeTiers(nil)

	// THEN nothing is stored
	require.NoError(t, err)
	assert.Equal(t, "", raw)

	// GIVEN a table
	raw, err = payout.EncodeTiers([]payout.Tier{{Threshold: 0, FixedBonus: 100000}})
	require.NoError(t, err)

	// THEN ParseTiers accepts it back
	tiers, err := payout.ParseTiers(raw)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, int64(100000), tiers[0].FixedBonus)
}
