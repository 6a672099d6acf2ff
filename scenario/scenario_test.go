package scenario_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/scenario"
	"github.com/warp/hotel-backoffice/store/sqlite"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return engine.New(store, engine.Options{})
}

func TestList_BuiltinScenarios(t *testing.T) {
	list, err := scenario.List()
	require.NoError(t, err)

	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID)
		assert.NotEmpty(t, s.Name)
	}
	assert.Equal(t, []string{"alpha", "two-hotels"}, ids)

	_, err = scenario.Get("nope")
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := scenario.Parse([]byte("id: x\nhotels:\n  - id: h\n    nmae: typo\n"))
	assert.Error(t, err)

	_, err = scenario.Parse([]byte("name: no id\n"))
	assert.Error(t, err)
}

func TestApply_Alpha(t *testing.T) {
	// GIVEN: An empty database
	// WHEN: Applying the alpha scenario twice
	// THEN: The second run resets the hotel and yields the same state

	eng := newEngine(t)
	ctx := context.Background()
	sc, err := scenario.Get("alpha")
	require.NoError(t, err)

	res, err := scenario.Apply(ctx, eng, sc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Hotels)
	assert.Equal(t, 4, res.Users)
	assert.Equal(t, 4, res.Rooms)
	assert.Equal(t, 3, res.Products)
	assert.Equal(t, 1, res.Shifts)
	assert.Equal(t, 6, res.Entries)

	res, err = scenario.Apply(ctx, eng, sc)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Users)

	st, err := eng.CurrentState(ctx, "alpha", engine.SystemPrincipal)
	require.NoError(t, err)
	require.NotNil(t, st.OpenShift)
	assert.Equal(t, 1, st.OpenShift.Number)
	assert.Equal(t, "anna", st.OpenShift.ManagerID)
	assert.Equal(t, 2, st.RoomsByStatus[hotel.RoomOccupied])
	assert.Equal(t, 2, st.RoomsByStatus[hotel.RoomAvailable])

	// 1500.00 cash from the check-in + 150.00 water - 250.00 supplies.
	assert.Equal(t, hotel.Money(1000000+150000+15000-25000), st.Balance.Drawer)

	require.Len(t, st.LowStock, 1)
	assert.Equal(t, "alpha-water", st.LowStock[0].ID)

	h, err := eng.Store().GetHotel(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, h.BonusTiers, 2)
}

func TestApply_TwoHotels(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	sc, err := scenario.Get("two-hotels")
	require.NoError(t, err)

	_, err = scenario.Apply(ctx, eng, sc)
	require.NoError(t, err)

	assignments, err := eng.Store().ListUserAssignments(ctx, "anna")
	require.NoError(t, err)
	assert.Len(t, assignments, 2)

	a, err := eng.ResolveManagerPIN(ctx, "beta", "333333")
	require.NoError(t, err)
	assert.Equal(t, "anna", a.UserID)
}
