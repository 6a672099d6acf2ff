/*
Package notify delivers operational alerts (guest check-in, room needs
cleaning, product low on stock).

DELIVERY:
  Fire-and-forget. Dispatcher.Dispatch returns immediately; the send runs
  in its own goroutine with a bounded timeout, detached from the request
  context so a finished HTTP request does not cancel it. Failures are
  logged and counted, never returned to the caller.

SINKS:
  LogSink:      writes the event to slog (always safe, used in tests)
  TelegramSink: Bot API sendMessage to the hotel's channel
  Fanout:       sends to several sinks, joining their errors
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/hotel-backoffice/metrics"
)

type Kind string

const (
	KindCheckIn  Kind = "check_in"
	KindCleaning Kind = "cleaning"
	KindLowStock Kind = "low_stock"

	// KindShiftOverdue is raised by the maintenance scheduler.
	KindShiftOverdue Kind = "shift_overdue"
)

// Event is a denormalized alert: sinks never query the store.
type Event struct {
	Kind      Kind
	HotelID   string
	HotelName string
	Channel   string // sink-specific destination, e.g. Telegram chat id
	RoomLabel string
	GuestName string
	Amount    int64
	Currency  string
	Product   string
	Stock     int
	Shift     int // shift number
	At        time.Time
}

// Text renders the event as a one-line human message.
func (e Event) Text() string {
	switch e.Kind {
	case KindCheckIn:
		guest := e.GuestName
		if guest == "" {
			guest = "guest"
		}
		return fmt.Sprintf("%s: room %s checked in (%s), paid %s", e.HotelName, e.RoomLabel, guest, FormatMoney(e.Amount, e.Currency))
	case KindCleaning:
		return fmt.Sprintf("%s: room %s needs cleaning", e.HotelName, e.RoomLabel)
	case KindLowStock:
		return fmt.Sprintf("%s: %s is low on stock (%d left)", e.HotelName, e.Product, e.Stock)
	case KindShiftOverdue:
		return fmt.Sprintf("%s: shift #%d open since %s UTC", e.HotelName, e.Shift, e.At.UTC().Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("%s: %s", e.HotelName, e.Kind)
}

// Sink delivers one event.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// =============================================================================
// SINKS
// =============================================================================

// LogSink logs events at info level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Send(ctx context.Context, ev Event) error {
	s.Logger.InfoContext(ctx, "notification",
		slog.String("kind", string(ev.Kind)),
		slog.String("hotel_id", ev.HotelID),
		slog.String("text", ev.Text()),
	)
	return nil
}

// Fanout sends to every sink and joins the failures.
type Fanout []Sink

func (f Fanout) Send(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher runs sends in the background.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sink: sink, logger: logger, timeout: timeout}
}

// Dispatch schedules ev for delivery and returns immediately.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil || d.sink == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification sink panicked", slog.String("kind", string(ev.Kind)), slog.Any("panic", r))
				metrics.ObserveNotification(string(ev.Kind), "error")
			}
		}()

		if err := d.sink.Send(ctx, ev); err != nil {
			d.logger.Warn("notification failed",
				slog.String("kind", string(ev.Kind)),
				slog.String("hotel_id", ev.HotelID),
				slog.Any("error", err),
			)
			metrics.ObserveNotification(string(ev.Kind), "error")
			return
		}
		metrics.ObserveNotification(string(ev.Kind), "ok")
	}()
}

// Wait blocks until every dispatched send has finished.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
