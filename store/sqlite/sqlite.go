/*
Package sqlite provides the SQLite-backed hotel.Store.

PURPOSE:
  Tests and single-node deployments. The query code lives in
  store/sqlstore; this package owns the schema, the driver DSN and the
  translation of sqlite3 constraint errors.

STORAGE-ENFORCED INVARIANTS:
  - shifts_one_open:   UNIQUE (hotel_id) WHERE status = 'open'
  - shifts_hotel_number: UNIQUE (hotel_id, number)
  - assignments_one_active: UNIQUE (hotel_id, user_id) WHERE active
  - products_stock_nonnegative: CHECK (stock >= 0)

CONCURRENCY:
  SQLite allows one writer. The pool is capped at one connection (which
  also keeps ":memory:" databases shared) and transactions are serialized
  by the store mutex.

USAGE:
  store, err := sqlite.New(":memory:")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlstore: shared implementation
  - store/postgres: PostgreSQL dialect
*/
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/hotel-backoffice/store/sqlstore"
)

// New opens (and migrates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*sqlstore.Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return sqlstore.New(db, Dialect{}), nil
}

// Dialect implements sqlstore.Dialect for mattn/go-sqlite3.
type Dialect struct{}

func (Dialect) Name() string               { return "sqlite" }
func (Dialect) Rebind(query string) string { return query }
func (Dialect) Serialize() bool            { return true }

// uniqueColumns maps the column list SQLite reports for a UNIQUE failure to
// the constraint name.
var uniqueColumns = map[string]string{
	"shifts.hotel_id":                                       sqlstore.ConstraintOpenShift,
	"shifts.hotel_id, shifts.number":                        sqlstore.ConstraintShiftNumber,
	"hotel_assignments.hotel_id, hotel_assignments.user_id": sqlstore.ConstraintActiveAssignment,
	"users.email":                                           sqlstore.ConstraintUserEmail,
	"rooms.hotel_id, rooms.label":                           sqlstore.ConstraintRoomLabel,
	"product_categories.hotel_id, product_categories.name":  sqlstore.ConstraintCategoryName,
}

func (Dialect) Classify(err error) (sqlstore.Violation, string) {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return sqlstore.NoViolation, ""
	}
	msg := se.Error()
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		_, cols, _ := strings.Cut(msg, "UNIQUE constraint failed: ")
		return sqlstore.UniqueViolation, uniqueColumns[cols]
	case sqlite3.ErrConstraintCheck:
		_, name, _ := strings.Cut(msg, "CHECK constraint failed: ")
		return sqlstore.CheckViolation, name
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
	created_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT,
	active        BOOLEAN NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email ON users(email);

CREATE TABLE IF NOT EXISTS hotel_assignments (
	id         TEXT PRIMARY KEY,
	hotel_id   TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT 1,
	pin_hash   TEXT,
	shift_pay  INTEGER NOT NULL DEFAULT 0,
	share_bps  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS assignments_one_active
	ON hotel_assignments(hotel_id, user_id) WHERE active = 1;

CREATE TABLE IF NOT EXISTS rooms (
	id              TEXT PRIMARY KEY,
	hotel_id        TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	label           TEXT NOT NULL,
	floor           INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'available',
	active          BOOLEAN NOT NULL DEFAULT 1,
	current_stay_id TEXT,
	created_at      TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS rooms_hotel_label ON rooms(hotel_id, label);

CREATE TABLE IF NOT EXISTS shifts (
	id            TEXT PRIMARY KEY,
	hotel_id      TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	manager_id    TEXT NOT NULL REFERENCES users(id),
	number        INTEGER NOT NULL,
	opened_at     TIMESTAMP NOT NULL,
	opening_cash  INTEGER NOT NULL CHECK (opening_cash >= 0),
	status        TEXT NOT NULL,
	closed_at     TIMESTAMP,
	closing_cash  INTEGER,
	handover_cash INTEGER,
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
	scheduled_check_in  TIMESTAMP,
	scheduled_check_out TIMESTAMP,
	actual_check_in     TIMESTAMP,
	actual_check_out    TIMESTAMP,
	status              TEXT NOT NULL,
	amount_paid         INTEGER NOT NULL DEFAULT 0,
	cash_paid           INTEGER NOT NULL DEFAULT 0,
	card_paid           INTEGER NOT NULL DEFAULT 0,
	payment_method      TEXT,
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL,
	CHECK (amount_paid = cash_paid + card_paid)
);
CREATE INDEX IF NOT EXISTS idx_stays_room_status ON room_stays(room_id, status);

CREATE TABLE IF NOT EXISTS cash_entries (
	id          TEXT PRIMARY KEY,
	hotel_id    TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	shift_id    TEXT REFERENCES shifts(id) ON DELETE SET NULL,
	manager_id  TEXT NOT NULL,
	entry_type  TEXT NOT NULL,
	method      TEXT NOT NULL,
	amount      INTEGER NOT NULL CHECK (amount > 0),
	note        TEXT,
	sale_id     TEXT,
	stay_id     TEXT,
	recorded_at TIMESTAMP NOT NULL
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
	cost_price        INTEGER NOT NULL DEFAULT 0,
	sell_price        INTEGER NOT NULL,
	stock             INTEGER NOT NULL DEFAULT 0,
	reorder_threshold INTEGER,
	active            BOOLEAN NOT NULL DEFAULT 1,
	created_at        TIMESTAMP NOT NULL,
	CONSTRAINT products_stock_nonnegative CHECK (stock >= 0)
);

CREATE TABLE IF NOT EXISTS product_inventory_entries (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	hotel_id   TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	delta      INTEGER NOT NULL,
	reason     TEXT NOT NULL,
	unit_cost  INTEGER,
	note       TEXT,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS product_sales (
	id            TEXT PRIMARY KEY,
	product_id    TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	hotel_id      TEXT NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
	shift_id      TEXT REFERENCES shifts(id) ON DELETE SET NULL,
	stay_id       TEXT REFERENCES room_stays(id) ON DELETE SET NULL,
	quantity      INTEGER NOT NULL CHECK (quantity > 0),
	unit_price    INTEGER NOT NULL,
	total         INTEGER NOT NULL,
	method        TEXT NOT NULL,
	sale_type     TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	cash_entry_id TEXT,
	sold_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sales_shift ON product_sales(shift_id);
`
