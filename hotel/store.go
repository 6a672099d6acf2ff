/*
store.go - Persistence interfaces

PURPOSE:
  Defines the boundary between the engine and the database. Reads are
  available on the Store directly; every write happens inside WithTx so that
  multi-entity operations (check-in, sale, handover) commit or roll back as a
  unit.

KEY INTERFACES:
  Reader: lookups and ledger aggregation
  Tx:     Reader + writes, valid only inside WithTx
  Store:  Reader + WithTx

LEDGER CONTRACT:
  AppendCashEntry is the only ledger write. There is no UpdateCashEntry and
  no single-entry delete. DeleteClosedShifts detaches entries from the
  deleted shifts; it never removes ledger lines.

STORAGE-ENFORCED INVARIANTS:
  - InsertShift / UpdateShift return ErrShiftAlreadyOpen when a second open
    shift would exist for the hotel (unique partial index).
  - AdjustStock returns ErrStockConflict when the decrement would take stock
    below zero (conditional update, zero rows affected).
  - InsertShift assigns Number from the hotel's sequence in the same tx.

LOOKUPS:
  Get* methods return a NotFound *Error when the row does not exist.
  FindOpenShift returns (nil, nil) when the hotel has no open shift.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (tests, single node)
  - store/postgres: PostgreSQL via pgx

SEE ALSO:
  - store/sqlstore: shared database/sql implementation
*/
package hotel

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

// LedgerFilter selects cash entries. Zero fields are ignored. The time range
// is half-open: From <= RecordedAt < To.
type LedgerFilter struct {
	HotelID string
	ShiftID string
	Type    EntryType
	Method  PaymentMethod
	From    time.Time
	To      time.Time
}

type ShiftFilter struct {
	HotelID string
	Status  ShiftStatus
	From    time.Time // OpenedAt >= From
	To      time.Time // OpenedAt < To
	Limit   int
}

type StayFilter struct {
	HotelID string
	RoomID  string
	ShiftID string
	Status  StayStatus
}

type SaleFilter struct {
	HotelID   string
	ShiftID   string
	ProductID string
}

// =============================================================================
// READER
// =============================================================================

type Reader interface {
	GetHotel(ctx context.Context, id string) (*Hotel, error)
	ListHotels(ctx context.Context) ([]Hotel, error)

	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetActiveAssignment returns the active assignment of userID on hotelID.
	GetActiveAssignment(ctx context.Context, hotelID, userID string) (*HotelAssignment, error)
	ListAssignments(ctx context.Context, hotelID string, activeOnly bool) ([]HotelAssignment, error)
	ListUserAssignments(ctx context.Context, userID string) ([]HotelAssignment, error)

	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context, hotelID string) ([]Room, error)

	GetStay(ctx context.Context, id string) (*RoomStay, error)
	ListStays(ctx context.Context, f StayFilter) ([]RoomStay, error)

	GetShift(ctx context.Context, id string) (*Shift, error)
	FindOpenShift(ctx context.Context, hotelID string) (*Shift, error)
	ListShifts(ctx context.Context, f ShiftFilter) ([]Shift, error)

	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, hotelID string) ([]Product, error)
	ListCategories(ctx context.Context, hotelID string) ([]ProductCategory, error)
	ListInventoryEntries(ctx context.Context, productID string) ([]ProductInventoryEntry, error)
	ListSales(ctx context.Context, f SaleFilter) ([]ProductSale, error)

	// ListCashEntries returns entries ordered by RecordedAt ascending.
	ListCashEntries(ctx context.Context, f LedgerFilter) ([]CashEntry, error)
	// SumCashEntries aggregates by (type, method) in the storage engine.
	SumCashEntries(ctx context.Context, f LedgerFilter) (Totals, error)
}

// =============================================================================
// WRITER / TX
// =============================================================================

type Writer interface {
	CreateHotel(ctx context.Context, h *Hotel) error
	// DeleteHotel removes the hotel and every dependent row.
	DeleteHotel(ctx context.Context, id string) error

	CreateUser(ctx context.Context, u *User) error
	CreateAssignment(ctx context.Context, a *HotelAssignment) error
	UpdateAssignment(ctx context.Context, a *HotelAssignment) error

	CreateRoom(ctx context.Context, r *Room) error
	UpdateRoom(ctx context.Context, r *Room) error
	DeleteRoom(ctx context.Context, id string) error

	InsertStay(ctx context.Context, s *RoomStay) error
	UpdateStay(ctx context.Context, s *RoomStay) error

	InsertShift(ctx context.Context, s *Shift) error
	UpdateShift(ctx context.Context, s *Shift) error
	// DeleteClosedShifts detaches entries, stays and sales from the hotel's
	// closed shifts and deletes those shifts. Returns the number deleted.
	DeleteClosedShifts(ctx context.Context, hotelID string) (int, error)

	AppendCashEntry(ctx context.Context, e *CashEntry) error

	CreateCategory(ctx context.Context, c *ProductCategory) error
	CreateProduct(ctx context.Context, p *Product) error
	// AdjustStock applies delta to stock on hand and returns the new level.
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
	InsertInventoryEntry(ctx context.Context, e *ProductInventoryEntry) error
	InsertSale(ctx context.Context, s *ProductSale) error
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	Reader
	Writer
}

// Store is the root persistence handle.
type Store interface {
	Reader

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping checks connectivity (readiness probes).
	Ping(ctx context.Context) error
	Close() error
}
