/*
Package sqlstore implements hotel.Store on database/sql.

PURPOSE:
  One implementation of every Reader and Writer method, shared by the SQLite
  and PostgreSQL packages. A Dialect supplies the handful of things that
  differ: placeholder syntax and constraint-violation classification.

CONCURRENCY:
  Writes happen in WithTx. The single-open-shift and non-negative-stock
  rules are enforced by the schema (partial unique index, CHECK and a
  conditional UPDATE); this package only translates the violations into
  hotel errors. Dialects that cannot run concurrent writers (SQLite) ask
  for serialized transactions.

TIME:
  All timestamps are written in UTC, truncated to microseconds so both
  engines round-trip them identically.

SEE ALSO:
  - hotel/store.go: the contract
  - store/sqlite, store/postgres: dialects and schemas
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warp/hotel-backoffice/hotel"
)

// Violation classifies a driver error.
type Violation int

const (
	NoViolation Violation = iota
	UniqueViolation
	CheckViolation
)

// Constraint names shared by every schema.
const (
	ConstraintOpenShift        = "shifts_one_open"
	ConstraintShiftNumber      = "shifts_hotel_number"
	ConstraintActiveAssignment = "assignments_one_active"
	ConstraintUserEmail        = "users_email"
	ConstraintRoomLabel        = "rooms_hotel_label"
	ConstraintCategoryName     = "categories_hotel_name"
	ConstraintStock            = "products_stock_nonnegative"
)

// Dialect isolates driver differences.
type Dialect interface {
	Name() string
	// Rebind rewrites '?' placeholders into the driver's syntax.
	Rebind(query string) string
	// Classify reports which constraint, if any, err violated.
	Classify(err error) (Violation, string)
	// Serialize reports whether transactions must not overlap.
	Serialize() bool
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs queries against either the pool or an open transaction.
type conn struct {
	q querier
	d Dialect
}

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.Rebind(query), args...)
}

func (c *conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.Rebind(query), args...)
}

func (c *conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.Rebind(query), args...)
}

// translate maps constraint violations to hotel errors and wraps the rest.
func (c *conn) translate(op string, err error) error {
	if err == nil {
		return nil
	}
	v, name := c.d.Classify(err)
	switch {
	case v == UniqueViolation && name == ConstraintOpenShift:
		return hotel.ErrShiftAlreadyOpen
	case v == UniqueViolation && name == ConstraintActiveAssignment:
		return hotel.ErrDuplicateAssignment
	case v == UniqueViolation:
		return hotel.ErrDuplicate
	case v == CheckViolation && name == ConstraintStock:
		return hotel.ErrStockConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

// =============================================================================
// STORE
// =============================================================================

// Store implements hotel.Store.
type Store struct {
	*conn
	db *sql.DB
	mu sync.Mutex
}

var _ hotel.Store = (*Store)(nil)

// New wraps an open pool. The schema must already exist.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{conn: &conn{q: db, d: d}, db: db}
}

// DB exposes the pool for migrations and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.d }

// WithTx executes fn within a database transaction.
// If fn returns error, the transaction is rolled back.
// If fn returns nil, the transaction is committed.
func (s *Store) WithTx(ctx context.Context, fn func(tx hotel.Tx) error) error {
	if s.d.Serialize() {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx, d: s.d}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return s.translate("commit", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func ts(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullMoney(m *hotel.Money) any {
	if m == nil {
		return nil
	}
	return *m
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func moneyPtr(n sql.NullInt64) *hotel.Money {
	if !n.Valid {
		return nil
	}
	m := n.Int64
	return &m
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// one scans a single row, mapping sql.ErrNoRows to a NotFound error.
func one[T any](row *sql.Row, scan func(scanner) (T, error), entity, id string) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hotel.NotFound(entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	return &v, nil
}

// many drains rows through scan.
func many[T any](rows *sql.Rows, err error, scan func(scanner) (T, error), what string) ([]T, error) {
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// affected returns NotFound when an UPDATE/DELETE touched nothing.
func affected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hotel.NotFound(entity, id)
	}
	return nil
}

// where accumulates AND-ed conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	s := " WHERE " + w.conds[0]
	for _, c := range w.conds[1:] {
		s += " AND " + c
	}
	return s
}
