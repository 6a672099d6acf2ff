/*
Package hotel provides the domain model of the back office.

PURPOSE:
  This package contains the entities, invariants and pure calculations shared
  by the engine, the stores and the API. It has no knowledge of SQL or HTTP.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: minor currency units (int64), always a positive magnitude on ledger lines
  - Shift: one manager's operating session on one hotel (open -> closed)
  - CashEntry: an immutable ledger line, direction implied by EntryType
  - Room / RoomStay: occupancy, coupled by the state machine in occupancy.go
  - Product / ProductSale / ProductInventoryEntry: retail stock

DESIGN PRINCIPLES:
  1. Immutability: cash entries are never modified, only offset
  2. Derived state: balances are computed from the ledger on read
  3. Storage-enforced invariants: single open shift, non-negative stock

SEE ALSO:
  - ledger.go: Totals and net cash formula
  - occupancy.go: room and stay state machine
  - store.go: persistence interfaces
  - errors.go: error taxonomy
*/
package hotel

import (
	"time"

	"github.com/warp/hotel-backoffice/payout"
)

// Money is an amount in minor currency units (cents, kopecks...).
type Money = int64

// =============================================================================
// HOTEL
// =============================================================================

type Hotel struct {
	ID              string
	Name            string
	Address         string
	Timezone        string // IANA zone, e.g. "Europe/Moscow"
	Currency        string // ISO 4217
	ShareBps        int    // default manager revenue share, basis points of 10000
	CleaningChannel string // chat id for cleaning alerts, optional
	BonusTiers      []payout.Tier
	CreatedAt       time.Time
}

// Location returns the hotel's time zone, falling back to UTC when the zone
// is empty or unknown.
func (h Hotel) Location() *time.Location {
	if h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// USERS & ASSIGNMENTS
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleObserver Role = "observer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleObserver:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// HotelAssignment links a user to a hotel. At most one active assignment
// exists per (hotel, user).
type HotelAssignment struct {
	ID        string
	HotelID   string
	UserID    string
	Role      Role // manager or observer
	Active    bool
	PinHash   string // bcrypt of the 6-digit PIN, managers only
	ShiftPay  Money  // fixed pay per shift
	ShareBps  int    // 0 means "use the hotel default"
	CreatedAt time.Time
}

// =============================================================================
// ROOMS & STAYS
// =============================================================================

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomDirty       RoomStatus = "dirty"
	RoomMaintenance RoomStatus = "maintenance"
)

type Room struct {
	ID            string
	HotelID       string
	Label         string
	Floor         int
	Status        RoomStatus
	Active        bool
	CurrentStayID string // empty when no stay is attached
	CreatedAt     time.Time
}

type StayStatus string

const (
	StayScheduled  StayStatus = "scheduled"
	StayCheckedIn  StayStatus = "checked_in"
	StayCheckedOut StayStatus = "checked_out"
	StayCancelled  StayStatus = "cancelled"
	StayNoShow     StayStatus = "no_show"
)

type RoomStay struct {
	ID                string
	RoomID            string
	HotelID           string
	ShiftID           string // empty when detached or not yet checked in
	GuestName         string
	ScheduledCheckIn  *time.Time
	ScheduledCheckOut *time.Time
	ActualCheckIn     *time.Time
	ActualCheckOut    *time.Time
	Status            StayStatus
	AmountPaid        Money
	CashPaid          Money
	CardPaid          Money
	PaymentMethod     *PaymentMethod // nil means split between cash and card
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// =============================================================================
// SHIFTS
// =============================================================================

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

type Shift struct {
	ID           string
	HotelID      string
	ManagerID    string
	Number       int
	OpenedAt     time.Time
	OpeningCash  Money
	Status       ShiftStatus
	ClosedAt     *time.Time
	ClosingCash  *Money
	HandoverCash *Money
	RecipientID  string
	OpeningNote  string
	ClosingNote  string
	HandoverNote string
}

func (s Shift) IsOpen() bool { return s.Status == ShiftOpen }

// =============================================================================
// LEDGER
// =============================================================================

type EntryType string

const (
	EntryCashIn        EntryType = "cash_in"
	EntryCashOut       EntryType = "cash_out"
	EntryManagerPayout EntryType = "manager_payout"
	EntryAdjustment    EntryType = "adjustment"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryCashIn, EntryCashOut, EntryManagerPayout, EntryAdjustment:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool { return m == MethodCash || m == MethodCard }

// CashEntry is an immutable ledger line. Amount is always a positive
// magnitude; EntryType carries the direction.
type CashEntry struct {
	ID         string
	HotelID    string
	ShiftID    string
	ManagerID  string
	Type       EntryType
	Method     PaymentMethod
	Amount     Money
	Note       string
	SaleID     string
	StayID     string
	RecordedAt time.Time
}

// =============================================================================
// INVENTORY
// =============================================================================

type ProductCategory struct {
	ID      string
	HotelID string
	Name    string
}

type Product struct {
	ID               string
	HotelID          string
	CategoryID       string
	Name             string
	Unit             string
	CostPrice        Money
	SellPrice        Money
	Stock            int
	ReorderThreshold *int
	Active           bool
	CreatedAt        time.Time
}

// LowStock reports whether the product has reached its reorder threshold.
func (p Product) LowStock() bool {
	return p.ReorderThreshold != nil && p.Stock <= *p.ReorderThreshold
}

type InventoryReason string

const (
	ReasonRestock    InventoryReason = "restock"
	ReasonWriteOff   InventoryReason = "write_off"
	ReasonCorrection InventoryReason = "correction"
)

type ProductInventoryEntry struct {
	ID        string
	ProductID string
	HotelID   string
	Delta     int
	Reason    InventoryReason
	UnitCost  *Money
	Note      string
	UserID    string
	CreatedAt time.Time
}

type SaleType string

const (
	SaleCounter SaleType = "counter"
	SaleRoom    SaleType = "room"
)

type ProductSale struct {
	ID          string
	ProductID   string
	HotelID     string
	ShiftID     string
	StayID      string
	Quantity    int
	UnitPrice   Money
	Total       Money
	Method      PaymentMethod
	Type        SaleType
	UserID      string
	CashEntryID string
	SoldAt      time.Time
}
