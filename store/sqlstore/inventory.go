package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/warp/hotel-backoffice/hotel"
)

// =============================================================================
// CATALOG
// =============================================================================

func (c *conn) ListCategories(ctx context.Context, hotelID string) ([]hotel.ProductCategory, error) {
	rows, err := c.query(ctx, `SELECT id, hotel_id, name FROM product_categories WHERE hotel_id = ? ORDER BY name`, hotelID)
	return many(rows, err, func(s scanner) (hotel.ProductCategory, error) {
		var pc hotel.ProductCategory
		err := s.Scan(&pc.ID, &pc.HotelID, &pc.Name)
		return pc, err
	}, "categories")
}

func (c *conn) CreateCategory(ctx context.Context, pc *hotel.ProductCategory) error {
	_, err := c.exec(ctx, `INSERT INTO product_categories (id, hotel_id, name) VALUES (?, ?, ?)`, pc.ID, pc.HotelID, pc.Name)
	return c.translate("create category", err)
}

const productColumns = `id, hotel_id, category_id, name, unit, cost_price, sell_price, stock, reorder_threshold, active, created_at`

func scanProduct(s scanner) (hotel.Product, error) {
	var (
		p         hotel.Product
		category  sql.NullString
		threshold sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.HotelID, &category, &p.Name, &p.Unit, &p.CostPrice, &p.SellPrice, &p.Stock, &threshold, &p.Active, &p.CreatedAt)
	p.CategoryID = category.String
	p.ReorderThreshold = intPtr(threshold)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func (c *conn) GetProduct(ctx context.Context, id string) (*hotel.Product, error) {
	row := c.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return one(row, scanProduct, "product", id)
}

func (c *conn) ListProducts(ctx context.Context, hotelID string) ([]hotel.Product, error) {
	rows, err := c.query(ctx, `SELECT `+productColumns+` FROM products WHERE hotel_id = ? ORDER BY name`, hotelID)
	return many(rows, err, scanProduct, "products")
}

func (c *conn) CreateProduct(ctx context.Context, p *hotel.Product) error {
	_, err := c.exec(ctx, `
		INSERT INTO products (id, hotel_id, category_id, name, unit, cost_price, sell_price, stock, reorder_threshold, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.HotelID, nullString(p.CategoryID), p.Name, p.Unit, p.CostPrice, p.SellPrice, p.Stock,
		nullInt(p.ReorderThreshold), p.Active, ts(p.CreatedAt),
	)
	return c.translate("create product", err)
}

// =============================================================================
// STOCK
// =============================================================================

// AdjustStock applies delta atomically. A decrement is conditional on enough
// stock being on hand; when the condition fails no row is updated and the
// caller gets ErrStockConflict.
func (c *conn) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	var (
		stock int
		err   error
	)
	if delta < 0 {
		err = c.queryRow(ctx, `UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ? RETURNING stock`,
			-delta, productID, -delta).Scan(&stock)
	} else {
		err = c.queryRow(ctx, `UPDATE products SET stock = stock + ? WHERE id = ? RETURNING stock`,
			delta, productID).Scan(&stock)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := c.GetProduct(ctx, productID); gerr != nil {
			return 0, gerr
		}
		return 0, hotel.ErrStockConflict
	}
	if err != nil {
		return 0, c.translate("adjust stock", err)
	}
	return stock, nil
}

func (c *conn) ListInventoryEntries(ctx context.Context, productID string) ([]hotel.ProductInventoryEntry, error) {
	rows, err := c.query(ctx, `
		SELECT id, product_id, hotel_id, delta, reason, unit_cost, note, user_id, created_at
		FROM product_inventory_entries WHERE product_id = ? ORDER BY created_at, id`, productID)
	return many(rows, err, func(s scanner) (hotel.ProductInventoryEntry, error) {
		var (
			e    hotel.ProductInventoryEntry
			cost sql.NullInt64
			note sql.NullString
		)
		err := s.Scan(&e.ID, &e.ProductID, &e.HotelID, &e.Delta, &e.Reason, &cost, &note, &e.UserID, &e.CreatedAt)
		e.UnitCost = moneyPtr(cost)
		e.Note = note.String
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	}, "inventory entries")
}

func (c *conn) InsertInventoryEntry(ctx context.Context, e *hotel.ProductInventoryEntry) error {
	_, err := c.exec(ctx, `
		INSERT INTO product_inventory_entries (id, product_id, hotel_id, delta, reason, unit_cost, note, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProductID, e.HotelID, e.Delta, e.Reason, nullMoney(e.UnitCost), nullString(e.Note), e.UserID, ts(e.CreatedAt),
	)
	return c.translate("insert inventory entry", err)
}

// =============================================================================
// SALES
// =============================================================================

const saleColumns = `id, product_id, hotel_id, shift_id, stay_id, quantity, unit_price, total, method, sale_type, user_id, cash_entry_id, sold_at`

func scanSale(s scanner) (hotel.ProductSale, error) {
	var (
		ps          hotel.ProductSale
		shift, stay sql.NullString
		cashEntryID sql.NullString
	)
	err := s.Scan(&ps.ID, &ps.ProductID, &ps.HotelID, &shift, &stay, &ps.Quantity, &ps.UnitPrice, &ps.Total,
		&ps.Method, &ps.Type, &ps.UserID, &cashEntryID, &ps.SoldAt)
	ps.ShiftID = shift.String
	ps.StayID = stay.String
	ps.CashEntryID = cashEntryID.String
	ps.SoldAt = ps.SoldAt.UTC()
	return ps, err
}

func (c *conn) ListSales(ctx context.Context, f hotel.SaleFilter) ([]hotel.ProductSale, error) {
	var w where
	if f.HotelID != "" {
		w.add("hotel_id = ?", f.HotelID)
	}
	if f.ShiftID != "" {
		w.add("shift_id = ?", f.ShiftID)
	}
	if f.ProductID != "" {
		w.add("product_id = ?", f.ProductID)
	}
	rows, err := c.query(ctx, `SELECT `+saleColumns+` FROM product_sales`+w.String()+` ORDER BY sold_at, id`, w.args...)
	return many(rows, err, scanSale, "sales")
}

func (c *conn) InsertSale(ctx context.Context, s *hotel.ProductSale) error {
	_, err := c.exec(ctx, `
		INSERT INTO product_sales (`+saleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProductID, s.HotelID, nullString(s.ShiftID), nullString(s.StayID), s.Quantity, s.UnitPrice, s.Total,
		s.Method, s.Type, s.UserID, nullString(s.CashEntryID), ts(s.SoldAt),
	)
	return c.translate("insert sale", err)
}
