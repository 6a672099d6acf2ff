/*
sale.go - Product sales and stock movements

SALE TRANSACTION:
  1. re-read the product (price and hotel as committed)
  2. guarded decrement: stock = stock - qty WHERE stock >= qty
  3. insert the sale at sell price x quantity
  4. append a cash_in entry referencing the sale

  If the guard matches no row the whole transaction is rolled back with
  ErrStockConflict. Two sellers racing for the last unit: one wins.

INVENTORY:
  restock     delta > 0
  write_off   delta < 0, guarded like a sale
  correction  either sign
*/
package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/notify"
)

// =============================================================================
// SALES
// =============================================================================

type SaleInput struct {
	ShiftID   string
	ProductID string
	Quantity  int
	Method    hotel.PaymentMethod
	Type      hotel.SaleType // defaults to counter
	StayID    string         // required for room sales
}

type SaleResult struct {
	Sale  *hotel.ProductSale
	Entry *hotel.CashEntry
	Stock int // stock on hand after the sale
}

func (in SaleInput) validate() error {
	if in.Quantity <= 0 {
		return hotel.Invalid("quantity", "must be greater than zero")
	}
	if !in.Method.Valid() {
		return hotel.Invalid("payment_method", "must be cash or card")
	}
	switch in.Type {
	case hotel.SaleCounter:
	case hotel.SaleRoom:
		if in.StayID == "" {
			return hotel.Invalid("stay_id", "is required for room sales")
		}
	default:
		return hotel.Invalid("sale_type", "must be counter or room")
	}
	return nil
}

// RecordSale sells a product on the caller's open shift.
func (e *Engine) RecordSale(ctx context.Context, in SaleInput, p hotel.Principal) (res *SaleResult, err error) {
	ctx, done := e.begin(ctx, "RecordSale", attribute.String("shift.id", in.ShiftID), attribute.String("product.id", in.ProductID))
	defer done(&err)

	if in.Type == "" {
		in.Type = hotel.SaleCounter
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	shift, err := e.store.GetShift(ctx, in.ShiftID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, shift.HotelID); err != nil {
		return nil, err
	}
	if shift.ManagerID != p.UserID && !(e.allowAdminOnBehalf && e.access.IsHotelAdmin(p)) {
		return nil, hotel.ErrNotShiftOwner
	}
	if !shift.IsOpen() {
		return nil, hotel.ErrShiftNotOpen
	}

	product, err := e.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.HotelID != shift.HotelID {
		return nil, hotel.Invalid("product_id", "belongs to another hotel")
	}
	if !product.Active {
		return nil, hotel.ErrProductInactive
	}
	if product.Stock < in.Quantity {
		return nil, hotel.ErrStockConflict
	}
	if in.Type == hotel.SaleRoom {
		if err := roomSaleStay(ctx, e.store, in.StayID, shift.HotelID); err != nil {
			return nil, err
		}
	}

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		cur, err := e.openShiftOf(ctx, tx, in.ShiftID, shift.HotelID)
		if err != nil {
			return err
		}
		product, err = tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !product.Active {
			return hotel.ErrProductInactive
		}
		if in.Type == hotel.SaleRoom {
			if err := roomSaleStay(ctx, tx, in.StayID, shift.HotelID); err != nil {
				return err
			}
		}

		stock, err := tx.AdjustStock(ctx, product.ID, -in.Quantity)
		if err != nil {
			return err
		}

		now := e.now()
		sale := &hotel.ProductSale{
			ID:        newID(),
			ProductID: product.ID,
			HotelID:   product.HotelID,
			ShiftID:   cur.ID,
			StayID:    in.StayID,
			Quantity:  in.Quantity,
			UnitPrice: product.SellPrice,
			Total:     product.SellPrice * hotel.Money(in.Quantity),
			Method:    in.Method,
			Type:      in.Type,
			UserID:    p.UserID,
			SoldAt:    now,
		}
		entry := &hotel.CashEntry{
			ID:         newID(),
			HotelID:    product.HotelID,
			ShiftID:    cur.ID,
			ManagerID:  cur.ManagerID,
			Type:       hotel.EntryCashIn,
			Method:     in.Method,
			Amount:     sale.Total,
			Note:       fmt.Sprintf("Sale: %s x%d", product.Name, in.Quantity),
			SaleID:     sale.ID,
			StayID:     in.StayID,
			RecordedAt: now,
		}
		sale.CashEntryID = entry.ID

		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		if err := tx.AppendCashEntry(ctx, entry); err != nil {
			return err
		}
		product.Stock = stock
		res = &SaleResult{Sale: sale, Entry: entry, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.observeEntries(*res.Entry)
	e.notifyLowStock(ctx, product)
	return res, nil
}

func roomSaleStay(ctx context.Context, r hotel.Reader, stayID, hotelID string) error {
	stay, err := r.GetStay(ctx, stayID)
	if err != nil {
		return err
	}
	if stay.HotelID != hotelID {
		return hotel.Invalid("stay_id", "belongs to another hotel")
	}
	if stay.Status != hotel.StayCheckedIn {
		return hotel.ErrStayNotCheckedIn
	}
	return nil
}

func (e *Engine) notifyLowStock(ctx context.Context, product *hotel.Product) {
	if !product.LowStock() {
		return
	}
	h, err := e.store.GetHotel(ctx, product.HotelID)
	if err != nil {
		e.logger.WarnContext(ctx, "low stock notification skipped", "product_id", product.ID, "error", err)
		return
	}
	e.notify(notify.Event{
		Kind:      notify.KindLowStock,
		HotelID:   h.ID,
		HotelName: h.Name,
		Product:   product.Name,
		Stock:     product.Stock,
		At:        e.now(),
	})
}

// =============================================================================
// INVENTORY
// =============================================================================

type InventoryInput struct {
	ProductID string
	Delta     int
	Reason    hotel.InventoryReason
	UnitCost  *hotel.Money
	Note      string
}

func (in InventoryInput) validate() error {
	if in.Delta == 0 {
		return hotel.Invalid("delta", "must not be zero")
	}
	switch in.Reason {
	case hotel.ReasonRestock:
		if in.Delta < 0 {
			return hotel.Invalid("delta", "a restock must add stock")
		}
	case hotel.ReasonWriteOff:
		if in.Delta > 0 {
			return hotel.Invalid("delta", "a write-off must remove stock")
		}
	case hotel.ReasonCorrection:
	default:
		return hotel.Invalid("reason", "must be restock, write_off or correction")
	}
	if in.UnitCost != nil && *in.UnitCost < 0 {
		return hotel.Invalid("unit_cost", "must not be negative")
	}
	return nil
}

type InventoryResult struct {
	Entry *hotel.ProductInventoryEntry
	Stock int
}

// AdjustInventory records a stock movement outside of sales.
func (e *Engine) AdjustInventory(ctx context.Context, in InventoryInput, p hotel.Principal) (res *InventoryResult, err error) {
	ctx, done := e.begin(ctx, "AdjustInventory", attribute.String("product.id", in.ProductID))
	defer done(&err)

	if err := in.validate(); err != nil {
		return nil, err
	}
	product, err := e.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if err := e.canWrite(p, product.HotelID); err != nil {
		return nil, err
	}
	if product.Stock+in.Delta < 0 {
		return nil, hotel.ErrStockConflict
	}

	err = e.store.WithTx(ctx, func(tx hotel.Tx) error {
		stock, err := tx.AdjustStock(ctx, product.ID, in.Delta)
		if err != nil {
			return err
		}
		entry := &hotel.ProductInventoryEntry{
			ID:        newID(),
			ProductID: product.ID,
			HotelID:   product.HotelID,
			Delta:     in.Delta,
			Reason:    in.Reason,
			UnitCost:  in.UnitCost,
			Note:      in.Note,
			UserID:    p.UserID,
			CreatedAt: e.now(),
		}
		if err := tx.InsertInventoryEntry(ctx, entry); err != nil {
			return err
		}
		res = &InventoryResult{Entry: entry, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Delta < 0 {
		product.Stock = res.Stock
		e.notifyLowStock(ctx, product)
	}
	return res, nil
}
