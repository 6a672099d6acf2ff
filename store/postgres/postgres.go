/*
Package postgres provides the PostgreSQL-backed hotel.Store.

PURPOSE:
  Production storage through the pgx database/sql driver. Queries are
  shared with SQLite via store/sqlstore; this package owns the schema,
  placeholder rebinding and pgconn error classification.

CONCURRENCY:
  Transactions run at READ COMMITTED. Two concurrent OpenShift calls on one
  hotel serialize on the hotels row (shift_seq UPDATE); the loser then hits
  shifts_one_open and gets ErrShiftAlreadyOpen. Stock decrements are
  conditional UPDATEs, so no explicit locking is needed.

SEE ALSO:
  - store/sqlstore: shared implementation
  - store/sqlite: SQLite dialect
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/warp/hotel-backoffice/store/sqlstore"
)

// New connects, verifies and migrates a PostgreSQL database.
func New(ctx context.Context, databaseURL string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return sqlstore.New(db, Dialect{}), nil
}

// Dialect implements sqlstore.Dialect for pgx.
type Dialect struct{}

func (Dialect) Name() string    { return "postgres" }
func (Dialect) Serialize() bool { return false }

// Rebind turns '?' placeholders into $1, $2, ...
func (Dialect) Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Dialect) Classify(err error) (sqlstore.Violation, string) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return sqlstore.NoViolation, ""
	}
	switch pgErr.Code {
	case "23505":
		return sqlstore.UniqueViolation, pgErr.ConstraintName
	case "23514":
		return sqlstore.CheckViolation, pgErr.ConstraintName
	}
	return sqlstore.NoViolation, ""
}

const schema = `
CREATE TABLE IF NOT EXISTS hotels (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	address          TEXT,
	timezone         TEXT NOT NULL DEFAULT 'UTC',
	currency         TEXT NOT NULL DEFAULT 'USD',
	share_bps        INTEGER NOT NULL DEFAULT 0,
	cleaning_channel TEXT,
	bonus_tiers      TEXT,
	shift_seq        INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email ON users(email);

CREATE TABLE IF NOT EXISTS hotel_assignments (
	id         TEXT PRIMARY KEY,
	hotel_id   TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	pin_hash   TEXT,
	shift_pay  BIGINT NOT NULL DEFAULT 0,
	share_bps  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS assignments_one_active
	ON hotel_assignments(hotel_id, user_id) WHERE active;

CREATE TABLE IF NOT EXISTS rooms (
	id              TEXT PRIMARY KEY,
	hotel_id        TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	label           TEXT NOT NULL,
	floor           INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'available',
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	current_stay_id TEXT,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS rooms_hotel_label ON rooms(hotel_id, label);

CREATE TABLE IF NOT EXISTS shifts (
	id            TEXT PRIMARY KEY,
	hotel_id      TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	manager_id    TEXT NOT NULL REFERENCES users(id),
	number        INTEGER NOT NULL,
	opened_at     TIMESTAMPTZ NOT NULL,
	opening_cash  BIGINT NOT NULL CHECK (opening_cash >= 0),
	status        TEXT NOT NULL,
	closed_at     TIMESTAMPTZ,
	closing_cash  BIGINT,
	handover_cash BIGINT,
	recipient_id  TEXT,
	opening_note  TEXT,
	closing_note  TEXT,
	handover_note TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS shifts_hotel_number ON shifts(hotel_id, number);
CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_open ON shifts(hotel_id) WHERE status = 'open';
CREATE INDEX IF NOT EXISTS idx_shifts_hotel_opened ON shifts(hotel_id, opened_at);

CREATE TABLE IF NOT EXISTS room_stays (
	id                  TEXT PRIMARY KEY,
	room_id             TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	hotel_id            TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	shift_id            TEXT REFERENCES shifts(id) ON DELETE SET NULL,
	guest_name          TEXT,
	scheduled_check_in  TIMESTAMPTZ,
	scheduled_check_out TIMESTAMPTZ,
	actual_check_in     TIMESTAMPTZ,
	actual_check_out    TIMESTAMPTZ,
	status              TEXT NOT NULL,
	amount_paid         BIGINT NOT NULL DEFAULT 0,
	cash_paid           BIGINT NOT NULL DEFAULT 0,
	card_paid           BIGINT NOT NULL DEFAULT 0,
	payment_method      TEXT,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	CONSTRAINT stays_paid_split CHECK (amount_paid = cash_paid + card_paid)
);
CREATE INDEX IF NOT EXISTS idx_stays_room_status ON room_stays(room_id, status);

CREATE TABLE IF NOT EXISTS cash_entries (
	id          TEXT PRIMARY KEY,
	hotel_id    TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	shift_id    TEXT REFERENCES shifts(id) ON DELETE SET NULL,
	manager_id  TEXT NOT NULL,
	entry_type  TEXT NOT NULL,
	method      TEXT NOT NULL,
	amount      BIGINT NOT NULL CHECK (amount > 0),
	note        TEXT,
	sale_id     TEXT,
	stay_id     TEXT,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cash_entries_hotel_time ON cash_entries(hotel_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_cash_entries_shift ON cash_entries(shift_id);

CREATE TABLE IF NOT EXISTS product_categories (
	id       TEXT PRIMARY KEY,
	hotel_id TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	name     TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS categories_hotel_name ON product_categories(hotel_id, name);

CREATE TABLE IF NOT EXISTS products (
	id                TEXT PRIMARY KEY,
	hotel_id          TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	category_id       TEXT REFERENCES product_categories(id) ON DELETE SET NULL,
	name              TEXT NOT NULL,
	unit              TEXT NOT NULL DEFAULT 'pcs',
	cost_price        BIGINT NOT NULL DEFAULT 0,
	sell_price        BIGINT NOT NULL,
	stock             INTEGER NOT NULL DEFAULT 0,
	reorder_threshold INTEGER,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL,
	CONSTRAINT products_stock_nonnegative CHECK (stock >= 0)
);

CREATE TABLE IF NOT EXISTS product_inventory_entries (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	hotel_id   TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	delta      INTEGER NOT NULL,
	reason     TEXT NOT NULL,
	unit_cost  BIGINT,
	note       TEXT,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS product_sales (
	id            TEXT PRIMARY KEY,
	product_id    TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	hotel_id      TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	shift_id      TEXT REFERENCES shifts(id) ON DELETE SET NULL,
	stay_id       TEXT REFERENCES room_stays(id) ON DELETE SET NULL,
	quantity      INTEGER NOT NULL CHECK (quantity > 0),
	unit_price    BIGINT NOT NULL,
	total         BIGINT NOT NULL,
	method        TEXT NOT NULL,
	sale_type     TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	cash_entry_id TEXT,
	sold_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sales_shift ON product_sales(shift_id);
`
