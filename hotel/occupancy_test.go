package hotel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/hotel"
)

func freeRoom() hotel.Room {
	return hotel.Room{ID: "r101", HotelID: "alpha", Label: "101", Status: hotel.RoomAvailable, Active: true}
}

func scheduledStay(id string) hotel.RoomStay {
	return hotel.RoomStay{ID: id, RoomID: "r101", HotelID: "alpha", Status: hotel.StayScheduled}
}

// =============================================================================
// STAY TRANSITIONS
// =============================================================================

func TestCanTransitionStay(t *testing.T) {
	allowed := [][2]hotel.StayStatus{
		{hotel.StayScheduled, hotel.StayCheckedIn},
		{hotel.StayScheduled, hotel.StayCancelled},
		{hotel.StayScheduled, hotel.StayNoShow},
		{hotel.StayCheckedIn, hotel.StayCheckedOut},
	}
	for _, e := range allowed {
		assert.True(t, hotel.CanTransitionStay(e[0], e[1]), "%s -> %s", e[0], e[1])
	}

	refused := [][2]hotel.StayStatus{
		{hotel.StayCheckedIn, hotel.StayCancelled},
		{hotel.StayCheckedIn, hotel.StayScheduled},
		{hotel.StayCheckedOut, hotel.StayCheckedIn},
		{hotel.StayCancelled, hotel.StayCheckedIn},
		{hotel.StayNoShow, hotel.StayScheduled},
		{hotel.StayScheduled, hotel.StayCheckedOut},
	}
	for _, e := range refused {
		assert.False(t, hotel.CanTransitionStay(e[0], e[1]), "%s -> %s", e[0], e[1])
	}
}

func TestApplyStayTransition_FullCycle(t *testing.T) {
	room := freeRoom()
	stay := scheduledStay("st1")
	in := t0
	out := t0.Add(20 * time.Hour)

	// WHEN the guest checks in
	changed, err := hotel.ApplyStayTransition(&room, &stay, hotel.StayCheckedIn, in)

	// THEN the room is occupied by this stay
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, hotel.RoomOccupied, room.Status)
	assert.Equal(t, "st1", room.CurrentStayID)
	require.NotNil(t, stay.ActualCheckIn)
	assert.Equal(t, in, *stay.ActualCheckIn)
	assert.NoError(t, room.Validate(&stay))

	// WHEN the guest checks out
	changed, err = hotel.ApplyStayTransition(&room, &stay, hotel.StayCheckedOut, out)

	// THEN the room needs cleaning and has no current stay
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, hotel.StayCheckedOut, stay.Status)
	assert.Equal(t, hotel.RoomDirty, room.Status)
	assert.Empty(t, room.CurrentStayID)
	require.NotNil(t, stay.ActualCheckOut)
	assert.Equal(t, out, stay.UpdatedAt)
	assert.NoError(t, room.Validate(nil))
}

func TestApplyStayTransition_CheckInRefused(t *testing.T) {
	cases := []struct {
		name string
		room func() hotel.Room
		want error
	}{
		{"maintenance", func() hotel.Room { r := freeRoom(); r.Status = hotel.RoomMaintenance; return r }, hotel.ErrRoomUnavailable},
		{"inactive", func() hotel.Room { r := freeRoom(); r.Active = false; return r }, hotel.ErrRoomUnavailable},
		{"dirty", func() hotel.Room { r := freeRoom(); r.Status = hotel.RoomDirty; return r }, hotel.ErrRoomNeedsCleaning},
		{"occupied", func() hotel.Room {
			r := freeRoom()
			r.Status, r.CurrentStayID = hotel.RoomOccupied, "other"
			return r
		}, hotel.ErrRoomOccupied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN
			room := tc.room()
			before := room
			stay := scheduledStay("st1")

			// WHEN
			changed, err := hotel.ApplyStayTransition(&room, &stay, hotel.StayCheckedIn, t0)

			// THEN nothing is modified
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, changed)
			assert.Equal(t, before, room)
			assert.Equal(t, hotel.StayScheduled, stay.Status)
			assert.Nil(t, stay.ActualCheckIn)
		})
	}
}

func TestApplyStayTransition_CheckOutWithoutCheckIn(t *testing.T) {
	room := freeRoom()
	stay := scheduledStay("st1")

	_, err := hotel.ApplyStayTransition(&room, &stay, hotel.StayCheckedOut, t0)

	assert.ErrorIs(t, err, hotel.ErrStayNotCheckedIn)
	assert.ErrorIs(t, err, hotel.ErrStateConflict)
}

func TestApplyStayTransition_TerminalStatesAreFinal(t *testing.T) {
	room := freeRoom()
	stay := scheduledStay("st1")
	stay.Status = hotel.StayCancelled

	_, err := hotel.ApplyStayTransition(&room, &stay, hotel.StayCheckedIn, t0)

	assert.ErrorIs(t, err, hotel.ErrInvalidTransition)
	assert.Equal(t, hotel.RoomAvailable, room.Status)
}

func TestApplyStayTransition_StaleCancelKeepsNewerOccupant(t *testing.T) {
	// GIVEN a room occupied by another stay
	room := freeRoom()
	room.Status, room.CurrentStayID = hotel.RoomOccupied, "newer"
	stale := scheduledStay("older")

	// WHEN the older reservation is cancelled
	changed, err := hotel.ApplyStayTransition(&room, &stale, hotel.StayCancelled, t0)

	// THEN the stay is cancelled but the room is left alone
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, hotel.StayCancelled, stale.Status)
	assert.Equal(t, hotel.RoomOccupied, room.Status)
	assert.Equal(t, "newer", room.CurrentStayID)
}

func TestApplyStayTransition_NoShowFreesOwnedRoom(t *testing.T) {
	room := freeRoom()
	room.CurrentStayID = "st1"
	stay := scheduledStay("st1")

	changed, err := hotel.ApplyStayTransition(&room, &stay, hotel.StayNoShow, t0)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, hotel.RoomAvailable, room.Status)
	assert.Empty(t, room.CurrentStayID)
}

// =============================================================================
// ROOM STATUS
// =============================================================================

func TestCheckRoomStatusChange(t *testing.T) {
	cases := []struct {
		from      hotel.RoomStatus
		to        hotel.RoomStatus
		wantErr   bool
		wantAdmin bool
	}{
		{hotel.RoomDirty, hotel.RoomAvailable, false, false},
		{hotel.RoomAvailable, hotel.RoomDirty, false, false},
		{hotel.RoomAvailable, hotel.RoomMaintenance, false, true},
		{hotel.RoomDirty, hotel.RoomMaintenance, false, true},
		{hotel.RoomMaintenance, hotel.RoomAvailable, false, true},
		{hotel.RoomAvailable, hotel.RoomOccupied, true, false},
		{hotel.RoomOccupied, hotel.RoomDirty, true, false},
		{hotel.RoomDirty, hotel.RoomDirty, true, false},
	}
	for _, tc := range cases {
		room := freeRoom()
		room.Status = tc.from

		ch, err := hotel.CheckRoomStatusChange(room, tc.to)

		if tc.wantErr {
			assert.ErrorIs(t, err, hotel.ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
			continue
		}
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.wantAdmin, ch.RequiresAdmin, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.from, ch.From)
		assert.Equal(t, tc.to, ch.To)
	}
}

func TestCheckRoomStatusChange_AttachedStayBlocksEdits(t *testing.T) {
	room := freeRoom()
	room.CurrentStayID = "st1"

	_, err := hotel.CheckRoomStatusChange(room, hotel.RoomMaintenance)

	assert.ErrorIs(t, err, hotel.ErrInvalidTransition)
}

func TestRoom_Validate(t *testing.T) {
	checkedIn := hotel.RoomStay{ID: "st1", Status: hotel.StayCheckedIn}

	occupied := freeRoom()
	occupied.Status, occupied.CurrentStayID = hotel.RoomOccupied, "st1"
	assert.NoError(t, occupied.Validate(&checkedIn))

	// occupied without a checked-in stay
	assert.Error(t, occupied.Validate(nil))
	gone := checkedIn
	gone.Status = hotel.StayCheckedOut
	assert.Error(t, occupied.Validate(&gone))

	// a checked-in stay on a room not marked occupied
	dirty := freeRoom()
	dirty.Status, dirty.CurrentStayID = hotel.RoomDirty, "st1"
	assert.Error(t, dirty.Validate(&checkedIn))

	assert.NoError(t, freeRoom().Validate(nil))
}
