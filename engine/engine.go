/*
Package engine implements the Shift Engine.

PURPOSE:
  Every mutation of shifts, occupancy, stock and the cash ledger goes
  through here. An operation validates input, checks the principal's
  access, pre-checks state, then performs exactly one Store.WithTx. Rules
  that must hold under concurrency (single open shift, non-negative stock)
  are re-enforced inside the transaction by the storage layer.

OPERATION SHAPE:
  func (e *Engine) Op(ctx, input, principal) (result, error)

  Errors are *hotel.Error values (validation, access, not found, conflict)
  or wrapped storage failures. Nothing is partially applied.

SIDE EFFECTS:
  Notifications are dispatched after commit and never affect the result.

ROLES:
  admin     every hotel, every operation
  manager   hotels with an active assignment (from the token snapshot)
  observer  read-only

SEE ALSO:
  - hotel/occupancy.go: room and stay state machine
  - hotel/ledger.go: totals and balances
  - payout: shift payout calculation
*/
package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/metrics"
	"github.com/warp/hotel-backoffice/notify"
	"github.com/warp/hotel-backoffice/tracing"
)

// Notifier receives post-commit events. *notify.Dispatcher implements it.
type Notifier interface {
	Dispatch(ev notify.Event)
}

type Options struct {
	Access   hotel.AccessPolicy
	Notifier Notifier
	Logger   *slog.Logger
	Clock    func() time.Time
	// AllowAdminOnBehalf lets admins record sales on a manager's open shift.
	AllowAdminOnBehalf bool
}

type Engine struct {
	store    hotel.Store
	access   hotel.AccessPolicy
	notifier Notifier
	logger   *slog.Logger
	clock    func() time.Time
	tracer   trace.Tracer

	allowAdminOnBehalf bool
}

func New(store hotel.Store, opts Options) *Engine {
	e := &Engine{
		store:              store,
		access:             opts.Access,
		notifier:           opts.Notifier,
		logger:             opts.Logger,
		clock:              opts.Clock,
		tracer:             tracing.Tracer("github.com/warp/hotel-backoffice/engine"),
		allowAdminOnBehalf: opts.AllowAdminOnBehalf,
	}
	if e.access == nil {
		e.access = hotel.DefaultAccess{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// Store exposes the underlying store for read-only callers (exports).
func (e *Engine) Store() hotel.Store { return e.store }

// SystemPrincipal is used by the seed loader and maintenance tooling.
var SystemPrincipal = hotel.Principal{UserID: "system", Role: hotel.RoleAdmin}

// =============================================================================
// OPERATION PLUMBING
// =============================================================================

func (e *Engine) now() time.Time { return e.clock().UTC().Truncate(time.Microsecond) }

func newID() string { return uuid.NewString() }

// begin opens a span for op. The returned func must be deferred with the
// operation's named error.
func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := e.tracer.Start(ctx, "engine."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(errp *error) {
		err := *errp
		tracing.End(span, err)
		metrics.ObserveOperation(op, resultLabel(err), time.Since(start))
		if hotel.IsFatal(err) {
			e.logger.ErrorContext(ctx, "operation failed", slog.String("op", op), slog.Any("error", err))
		}
	}
}

func resultLabel(err error) string {
	switch hotel.KindOf(err) {
	case nil:
		if err != nil {
			return "error"
		}
		return "ok"
	case hotel.ErrValidation:
		return "invalid"
	case hotel.ErrAccessDenied:
		return "denied"
	case hotel.ErrNotFound:
		return "not_found"
	default:
		return "conflict"
	}
}

func (e *Engine) notify(ev notify.Event) {
	if e.notifier != nil {
		e.notifier.Dispatch(ev)
	}
}

func (e *Engine) observeEntries(entries ...hotel.CashEntry) {
	for _, en := range entries {
		metrics.ObserveLedgerEntry(string(en.Type), string(en.Method), en.Amount)
	}
}

// =============================================================================
// ACCESS
// =============================================================================

func (e *Engine) canRead(p hotel.Principal, hotelID string) error {
	if !e.access.CanAccessHotel(p, hotelID) {
		return hotel.ErrForbidden
	}
	return nil
}

func (e *Engine) canWrite(p hotel.Principal, hotelID string) error {
	if p.IsObserver() {
		return hotel.ErrReadOnly
	}
	return e.canRead(p, hotelID)
}

func (e *Engine) requireAdmin(p hotel.Principal) error {
	if !e.access.IsHotelAdmin(p) {
		return hotel.ErrAdminOnly
	}
	return nil
}

// managerAssignment returns p's active manager assignment on hotelID.
func managerAssignment(ctx context.Context, r hotel.Reader, hotelID, userID string) (*hotel.HotelAssignment, error) {
	a, err := r.GetActiveAssignment(ctx, hotelID, userID)
	if err != nil {
		if hotel.IsNotFound(err) {
			return nil, hotel.ErrForbidden
		}
		return nil, err
	}
	if a.Role != hotel.RoleManager {
		return nil, hotel.ErrForbidden
	}
	return a, nil
}

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

func nonNegative(field string, v hotel.Money) error {
	if v < 0 {
		return hotel.Invalid(field, "must not be negative")
	}
	return nil
}

func positive(field string, v hotel.Money) error {
	if v <= 0 {
		return hotel.Invalid(field, "must be greater than zero")
	}
	return nil
}
