package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/store/postgres"
	"github.com/warp/hotel-backoffice/store/sqlstore"
)

func TestDialect_Rebind(t *testing.T) {
	d := postgres.Dialect{}
	assert.Equal(t, "SELECT 1", d.Rebind("SELECT 1"))
	assert.Equal(t,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $3",
		d.Rebind("UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?"))
}

func TestDialect_Classify(t *testing.T) {
	d := postgres.Dialect{}

	v, name := d.Classify(&pgconn.PgError{Code: "23505", ConstraintName: sqlstore.ConstraintOpenShift})
	assert.Equal(t, sqlstore.UniqueViolation, v)
	assert.Equal(t, sqlstore.ConstraintOpenShift, name)

	v, name = d.Classify(&pgconn.PgError{Code: "23514", ConstraintName: sqlstore.ConstraintStock})
	assert.Equal(t, sqlstore.CheckViolation, v)
	assert.Equal(t, sqlstore.ConstraintStock, name)

	v, _ = d.Classify(assert.AnError)
	assert.Equal(t, sqlstore.NoViolation, v)
}

// The tests below need a disposable database:
//   TEST_DATABASE_URL=postgres://localhost/hotel_test?sslmode=disable go test ./store/postgres/

func newTestStore(t *testing.T) *sqlstore.Store {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := postgres.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgres_SingleOpenShift(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	hotelID := uuid.NewString()
	userID := uuid.NewString()
	require.NoError(t, store.WithTx(ctx, func(tx hotel.Tx) error {
		if err := tx.CreateHotel(ctx, &hotel.Hotel{ID: hotelID, Name: "PG " + hotelID, Timezone: "UTC", Currency: "USD", CreatedAt: now}); err != nil {
			return err
		}
		return tx.CreateUser(ctx, &hotel.User{ID: userID, Email: userID + "@example.com", Name: "M", Role: hotel.RoleManager, Active: true, CreatedAt: now})
	}))
	t.Cleanup(func() {
		_ = store.WithTx(ctx, func(tx hotel.Tx) error { return tx.DeleteHotel(ctx, hotelID) })
	})

	insert := func() (*hotel.Shift, error) {
		sh := &hotel.Shift{ID: uuid.NewString(), HotelID: hotelID, ManagerID: userID, OpenedAt: now, Status: hotel.ShiftOpen}
		return sh, store.WithTx(ctx, func(tx hotel.Tx) error { return tx.InsertShift(ctx, sh) })
	}

	first, err := insert()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)

	_, err = insert()
	assert.ErrorIs(t, err, hotel.ErrShiftAlreadyOpen)
}
