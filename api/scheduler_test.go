package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/notify"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Dispatch(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type countingSweeper struct{ n int }

func (c *countingSweeper) Sweep() { c.n++ }

func TestMaintenanceScheduler_AlertsOverdueShiftOnce(t *testing.T) {
	// GIVEN: Alpha's shift, opened just now
	ts := newTestServer(t)
	rec := &recordingNotifier{}
	sweeper := &countingSweeper{}
	ms := NewMaintenanceScheduler(ts.engine, rec, sweeper, discardLogger())

	// WHEN: Checked before the limit
	assert.Equal(t, 0, ms.RunOnce(context.Background()))

	// AND: Checked after the limit, twice
	ms.now = func() time.Time { return time.Now().Add(ms.MaxShiftAge + time.Hour) }
	assert.Equal(t, 1, ms.RunOnce(context.Background()))
	assert.Equal(t, 0, ms.RunOnce(context.Background()))

	// THEN: One alert for shift #1, and the limiter was swept every pass
	require.Len(t, rec.events, 1)
	assert.Equal(t, notify.KindShiftOverdue, rec.events[0].Kind)
	assert.Equal(t, "alpha", rec.events[0].HotelID)
	assert.Equal(t, 1, rec.events[0].Shift)
	assert.Equal(t, 3, sweeper.n)
}

func TestMaintenanceScheduler_StartStop(t *testing.T) {
	ts := newTestServer(t)
	sweeper := &countingSweeper{}
	ms := NewMaintenanceScheduler(ts.engine, nil, sweeper, discardLogger())
	ms.CheckInterval = time.Hour

	ms.Start()
	ms.Start() // no second goroutine
	ms.Stop()
	ms.Stop()

	// The immediate pass ran before Stop returned.
	assert.Equal(t, 1, sweeper.n)
}
