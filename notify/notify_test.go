package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type sinkFunc func(ctx context.Context, ev Event) error

func (f sinkFunc) Send(ctx context.Context, ev Event) error { return f(ctx, ev) }

func TestEvent_Text(t *testing.T) {
	ev := Event{Kind: KindCheckIn, HotelName: "Alpha", RoomLabel: "101", GuestName: "Ivanov", Amount: 350000, Currency: "RUB"}
	assert.Equal(t, "Alpha: room 101 checked in (Ivanov), paid 3500.00 RUB", ev.Text())

	ev = Event{Kind: KindCleaning, HotelName: "Alpha", RoomLabel: "101"}
	assert.Equal(t, "Alpha: room 101 needs cleaning", ev.Text())

	ev = Event{Kind: KindShiftOverdue, HotelName: "Alpha", Shift: 7, At: time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)}
	assert.Equal(t, "Alpha: shift #7 open since 2026-03-01 06:30 UTC", ev.Text())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "0.05 USD", FormatMoney(5, "USD"))
	assert.Equal(t, "-12.30", FormatMoney(-1230, ""))
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	// GIVEN: A sink that always fails
	// WHEN: Dispatching an event
	// THEN: Dispatch returns immediately and the failure never surfaces

	var calls atomic.Int32
	d := NewDispatcher(sinkFunc(func(ctx context.Context, ev Event) error {
		calls.Add(1)
		return errors.New("chat unreachable")
	}), discardLogger(), time.Second)

	d.Dispatch(Event{Kind: KindCleaning})
	d.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcher_DetachedFromCaller(t *testing.T) {
	var deadline atomic.Bool
	d := NewDispatcher(sinkFunc(func(ctx context.Context, ev Event) error {
		_, ok := ctx.Deadline()
		deadline.Store(ok && ctx.Err() == nil)
		return nil
	}), discardLogger(), time.Second)

	d.Dispatch(Event{Kind: KindCheckIn})
	d.Wait()
	assert.True(t, deadline.Load())
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Event{Kind: KindCheckIn})
	d.Wait()
}

func TestFanout_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	f := Fanout{
		LogSink{Logger: discardLogger()},
		sinkFunc(func(context.Context, Event) error { return boom }),
	}
	assert.ErrorIs(t, f.Send(context.Background(), Event{Kind: KindLowStock}), boom)
}

func TestTelegramSink_SendsMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSink("TOKEN", "fallback")
	s.BaseURL = srv.URL

	err := s.Send(context.Background(), Event{Kind: KindCleaning, HotelName: "Alpha", RoomLabel: "7", Channel: "-100"})
	require.NoError(t, err)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "Alpha: room 7 needs cleaning", got.Text)
}

func TestTelegramSink_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	s := NewTelegramSink("TOKEN", "42")
	s.BaseURL = srv.URL

	err := s.Send(context.Background(), Event{Kind: KindCheckIn})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramSink_NoChat_Skips(t *testing.T) {
	s := NewTelegramSink("TOKEN", "")
	s.BaseURL = "http://127.0.0.1:1"
	assert.NoError(t, s.Send(context.Background(), Event{Kind: KindCheckIn}))
}
