package engine

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/hotel-backoffice/auth"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/payout"
)

// =============================================================================
// HOTELS
// =============================================================================

// CreateHotel registers a hotel. An empty ID is generated; empty timezone and
// currency default to UTC and USD.
func (e *Engine) CreateHotel(ctx context.Context, h hotel.Hotel, p hotel.Principal) (out *hotel.Hotel, err error) {
	ctx, done := e.begin(ctx, "CreateHotel")
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return nil, hotel.Invalid("name", "is required")
	}
	if h.Timezone == "" {
		h.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(h.Timezone); err != nil {
		return nil, hotel.Invalid("timezone", "unknown time zone")
	}
	if h.Currency == "" {
		h.Currency = "USD"
	}
	if len(h.Currency) != 3 {
		return nil, hotel.Invalid("currency", "must be an ISO 4217 code")
	}
	h.Currency = strings.ToUpper(h.Currency)
	if h.ShareBps < 0 || h.ShareBps > payout.BasisPoints {
		return nil, hotel.Invalid("share_bps", "must be between 0 and 10000")
	}
	if err := payout.ValidateTiers(h.BonusTiers); err != nil {
		return nil, hotel.Invalid("bonus_tiers", err.Error())
	}
	if h.ID == "" {
		h.ID = newID()
	}
	h.CreatedAt = e.now()

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		return tx.CreateHotel(ctx, &h)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "hotel created", "hotel_id", h.ID, "name", h.Name)
	return &h, nil
}

// DeleteHotel removes a hotel with its rooms, shifts, ledger and stock.
func (e *Engine) DeleteHotel(ctx context.Context, hotelID string, p hotel.Principal) (err error) {
	ctx, done := e.begin(ctx, "DeleteHotel", attribute.String("hotel.id", hotelID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return err
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		return tx.DeleteHotel(ctx, hotelID)
	})
	if err != nil {
		return err
	}
	e.logger.WarnContext(ctx, "hotel deleted", "hotel_id", hotelID, "admin_id", p.UserID)
	return nil
}

// =============================================================================
// USERS
// =============================================================================

type UserInput struct {
	ID       string // optional
	Email    string
	Name     string
	Role     hotel.Role
	Password string
}

func (e *Engine) CreateUser(ctx context.Context, in UserInput, p hotel.Principal) (u *hotel.User, err error) {
	ctx, done := e.begin(ctx, "CreateUser")
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, hotel.Invalid("email", "is not a valid address")
	}
	if !in.Role.Valid() {
		return nil, hotel.Invalid("role", "must be admin, manager or observer")
	}
	if len(in.Password) < 8 {
		return nil, hotel.Invalid("password", "must be at least 8 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u = &hotel.User{
		ID:           in.ID,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    e.now(),
	}
	if u.ID == "" {
		u.ID = newID()
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// =============================================================================
// ROOMS & CATALOG
// =============================================================================

type RoomInput struct {
	ID      string // optional
	HotelID string
	Label   string
	Floor   int
}

func (e *Engine) CreateRoom(ctx context.Context, in RoomInput, p hotel.Principal) (r *hotel.Room, err error) {
	ctx, done := e.begin(ctx, "CreateRoom", attribute.String("hotel.id", in.HotelID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, hotel.Invalid("label", "is required")
	}
	r = &hotel.Room{
		ID:        in.ID,
		HotelID:   in.HotelID,
		Label:     label,
		Floor:     in.Floor,
		Status:    hotel.RoomAvailable,
		Active:    true,
		CreatedAt: e.now(),
	}
	if r.ID == "" {
		r.ID = newID()
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		if _, err := tx.GetHotel(ctx, in.HotelID); err != nil {
			return err
		}
		return tx.CreateRoom(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (e *Engine) CreateCategory(ctx context.Context, hotelID, name string, p hotel.Principal) (c *hotel.ProductCategory, err error) {
	ctx, done := e.begin(ctx, "CreateCategory", attribute.String("hotel.id", hotelID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, hotel.Invalid("name", "is required")
	}
	c = &hotel.ProductCategory{ID: newID(), HotelID: hotelID, Name: name}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		if _, err := tx.GetHotel(ctx, hotelID); err != nil {
			return err
		}
		return tx.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

type ProductInput struct {
	ID               string // optional
	HotelID          string
	CategoryID       string
	Name             string
	Unit             string
	CostPrice        hotel.Money
	SellPrice        hotel.Money
	Stock            int
	ReorderThreshold *int
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return hotel.Invalid("name", "is required")
	}
	if err := nonNegative("cost_price", in.CostPrice); err != nil {
		return err
	}
	if err := positive("sell_price", in.SellPrice); err != nil {
		return err
	}
	if in.Stock < 0 {
		return hotel.Invalid("stock", "must not be negative")
	}
	if in.ReorderThreshold != nil && *in.ReorderThreshold < 0 {
		return hotel.Invalid("reorder_threshold", "must not be negative")
	}
	return nil
}

func (e *Engine) CreateProduct(ctx context.Context, in ProductInput, p hotel.Principal) (prod *hotel.Product, err error) {
	ctx, done := e.begin(ctx, "CreateProduct", attribute.String("hotel.id", in.HotelID))
	defer done(&err)

	if err := e.requireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}
	prod = &hotel.Product{
		ID:               in.ID,
		HotelID:          in.HotelID,
		CategoryID:       in.CategoryID,
		Name:             strings.TrimSpace(in.Name),
		Unit:             unit,
		CostPrice:        in.CostPrice,
		SellPrice:        in.SellPrice,
		Stock:            in.Stock,
		ReorderThreshold: in.ReorderThreshold,
		Active:           true,
		CreatedAt:        e.now(),
	}
	if prod.ID == "" {
		prod.ID = newID()
	}
	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		if _, err := tx.GetHotel(ctx, in.HotelID); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, prod)
	})
	if err != nil {
		return nil, err
	}
	return prod, nil
}
