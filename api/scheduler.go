/*
scheduler.go - Periodic maintenance

PURPOSE:
  Runs housekeeping that no request triggers:
  - Raises a shift_overdue alert once per shift that stays open longer
    than MaxShiftAge (a manager forgot the handover).
  - Sweeps expired windows from the in-memory login limiter.

DESIGN:
  - One background goroutine with a configurable check interval
  - Runs immediately on Start, then on every tick
  - Alerted shift ids are remembered in memory until the shift closes;
    a restart may alert once more for the same shift

CONFIGURATION:
  - CheckInterval: How often to check (default: 10 minutes)
  - MaxShiftAge:   Open duration that counts as overdue (default: 26 hours)
  - Enabled:       Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewMaintenanceScheduler(eng, dispatcher, memoryBackend, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - notify/notify.go: KindShiftOverdue
  - ratelimit/memory.go: MemoryBackend.Sweep
*/
package api

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/notify"
)

// Sweeper drops expired state. *ratelimit.MemoryBackend implements it.
type Sweeper interface {
	Sweep()
}

// MaintenanceScheduler handles periodic housekeeping.
type MaintenanceScheduler struct {
	CheckInterval time.Duration
	MaxShiftAge   time.Duration
	Enabled       bool

	engine   *engine.Engine
	notifier engine.Notifier
	sweeper  Sweeper
	logger   *slog.Logger
	now      func() time.Time

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	alerted map[string]bool // shift id -> overdue alert sent
}

// NewMaintenanceScheduler creates a new scheduler. notifier and sweeper may
// be nil.
func NewMaintenanceScheduler(eng *engine.Engine, notifier engine.Notifier, sweeper Sweeper, logger *slog.Logger) *MaintenanceScheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MaintenanceScheduler{
		CheckInterval: 10 * time.Minute,
		MaxShiftAge:   26 * time.Hour,
		Enabled:       true,
		engine:        eng,
		notifier:      notifier,
		sweeper:       sweeper,
		logger:        logger,
		now:           time.Now,
		alerted:       make(map[string]bool),
	}
}

// Start begins the scheduler.
func (ms *MaintenanceScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.logger.Info("maintenance scheduler disabled")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.stop = make(chan struct{})
	ms.wg.Add(1)

	go ms.run(ms.ticker.C, ms.stop)

	ms.logger.Info("maintenance scheduler started", "interval", ms.CheckInterval, "max_shift_age", ms.MaxShiftAge)
}

// Stop stops the scheduler and waits for a running check to finish.
func (ms *MaintenanceScheduler) Stop() {
	ms.mu.Lock()
	if ms.ticker == nil {
		ms.mu.Unlock()
		return
	}
	ms.ticker.Stop()
	close(ms.stop)
	ms.ticker = nil
	ms.mu.Unlock()

	ms.wg.Wait()
	ms.logger.Info("maintenance scheduler stopped")
}

func (ms *MaintenanceScheduler) run(ticks <-chan time.Time, stop <-chan struct{}) {
	defer ms.wg.Done()

	ms.RunOnce(context.Background())

	for {
		select {
		case <-ticks:
			ms.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce performs one maintenance pass and returns the number of overdue
// alerts raised.
func (ms *MaintenanceScheduler) RunOnce(ctx context.Context) int {
	if ms.sweeper != nil {
		ms.sweeper.Sweep()
	}

	store := ms.engine.Store()
	hotels, err := store.ListHotels(ctx)
	if err != nil {
		ms.logger.ErrorContext(ctx, "maintenance: list hotels", "error", err)
		return 0
	}

	now := ms.now()
	open := make(map[string]bool, len(hotels))
	raised := 0

	for _, h := range hotels {
		s, err := store.FindOpenShift(ctx, h.ID)
		if err != nil {
			ms.logger.ErrorContext(ctx, "maintenance: find open shift", "hotel_id", h.ID, "error", err)
			continue
		}
		if s == nil {
			continue
		}
		open[s.ID] = true
		if now.Sub(s.OpenedAt) < ms.MaxShiftAge || ms.wasAlerted(s.ID) {
			continue
		}

		ms.logger.WarnContext(ctx, "shift overdue",
			"hotel_id", h.ID,
			"shift_id", s.ID,
			"shift_number", s.Number,
			"manager_id", s.ManagerID,
			"opened_at", s.OpenedAt,
		)
		if ms.notifier != nil {
			ms.notifier.Dispatch(notify.Event{
				Kind:      notify.KindShiftOverdue,
				HotelID:   h.ID,
				HotelName: h.Name,
				Shift:     s.Number,
				At:        s.OpenedAt,
			})
		}
		ms.markAlerted(s.ID)
		raised++
	}

	ms.forgetClosed(open)
	return raised
}

func (ms *MaintenanceScheduler) wasAlerted(shiftID string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.alerted[shiftID]
}

func (ms *MaintenanceScheduler) markAlerted(shiftID string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.alerted[shiftID] = true
}

// forgetClosed drops alert marks for shifts that are no longer open.
func (ms *MaintenanceScheduler) forgetClosed(open map[string]bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for id := range ms.alerted {
		if !open[id] {
			delete(ms.alerted, id)
		}
	}
}
