/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Login (password and PIN), token handling, login attempt limiting
- Error kind -> status mapping
- A shift day over HTTP: sale, check-out, handover, report, XLSX export
- Admin endpoints and read models

Every test runs against an in-memory SQLite store seeded with the alpha
scenario through the engine.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/hotel-backoffice/auth"
	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/ratelimit"
	"github.com/warp/hotel-backoffice/report"
	"github.com/warp/hotel-backoffice/scenario"
	"github.com/warp/hotel-backoffice/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testServer struct {
	t       *testing.T
	router  http.Handler
	engine  *engine.Engine
	backend *ratelimit.MemoryBackend
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, engine.Options{Logger: discardLogger()})
	sc, err := scenario.Get("alpha")
	require.NoError(t, err)
	_, err = scenario.Apply(context.Background(), eng, sc)
	require.NoError(t, err)

	backend := ratelimit.NewMemoryBackend()
	limiter := ratelimit.NewLimiter(backend, "login:", 3, time.Minute)
	tokens := auth.NewTokenManager("test-secret", "test", time.Hour)
	h := NewHandler(eng, tokens, limiter, discardLogger())

	return &testServer{
		t:       t,
		router:  NewRouter(h, RouterOptions{EnableScenarios: true}),
		engine:  eng,
		backend: backend,
	}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TokenResponse
	decodeBody(ts.t, rec, &resp)
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	return resp
}

// =============================================================================
// PROBES
// =============================================================================

func TestProbes(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/readyz", "", nil).Code)

	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin_IssuesTokenWithActiveHotels(t *testing.T) {
	// GIVEN: Anna, a manager assigned to alpha
	ts := newTestServer(t)

	// WHEN: She logs in with her password
	rec := ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: " Anna@Alpha.test ", Password: "manager-password"})

	// THEN: The token carries her role and hotels
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TokenResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "anna", resp.User.ID)
	assert.Equal(t, []string{"alpha"}, resp.HotelIDs)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	rec = ts.do(http.MethodGet, "/api/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me MeResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, MeResponse{UserID: "anna", Role: "manager", HotelIDs: []string{"alpha"}}, me)
}

func TestLogin_WrongPassword_IsLimitedPerFingerprint(t *testing.T) {
	// GIVEN: A limit of 3 attempts per minute
	ts := newTestServer(t)
	attempt := func(agent string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(LoginRequest{Email: "anna@alpha.test", Password: "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		req.Header.Set("User-Agent", agent)
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		return rec
	}

	// WHEN: The same client fails three times
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, attempt("desk-1").Code)
	}

	// THEN: The fourth attempt is refused with Retry-After
	rec := attempt("desk-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// AND: Another client fingerprint is not affected
	assert.Equal(t, http.StatusUnauthorized, attempt("desk-2").Code)
}

func TestPINLogin(t *testing.T) {
	ts := newTestServer(t)

	// GIVEN: Boris's PIN on alpha
	rec := ts.do(http.MethodPost, "/api/auth/pin-login", "", PINLoginRequest{HotelID: "alpha", PIN: "222222"})

	// THEN: A token for Boris is issued
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TokenResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "boris", resp.User.ID)

	// AND: An unknown PIN is refused
	rec = ts.do(http.MethodPost, "/api/auth/pin-login", "", PINLoginRequest{HotelID: "alpha", PIN: "999999"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShiftPIN_SharesLoginBudget(t *testing.T) {
	// GIVEN: Anna's open shift and Boris logged in on the same client
	ts := newTestServer(t)
	boris := ts.login("boris@alpha.test", "manager-password")
	st, err := ts.engine.CurrentState(context.Background(), "alpha", engine.SystemPrincipal)
	require.NoError(t, err)
	require.NotNil(t, st.OpenShift)
	path := "/api/shifts/" + st.OpenShift.ID + "/handover"
	guess := HandoverRequest{ClosingCash: 1, HandoverCash: 1, PIN: "999999"}

	// WHEN: Boris guesses Anna's PIN through the handover endpoint
	for i := 0; i < 3; i++ {
		rec := ts.do(http.MethodPost, path, boris, guess)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "invalid_manager_pin", errorOf(t, rec).Code)
	}

	// THEN: The next guess is refused before the PIN is checked
	rec := ts.do(http.MethodPost, path, boris, guess)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// AND: PIN login from the same client is out of budget too
	rec = ts.do(http.MethodPost, "/api/auth/pin-login", "", PINLoginRequest{HotelID: "alpha", PIN: "111111"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// AND: Requests without a PIN are not counted
	rec = ts.do(http.MethodPost, path, boris, HandoverRequest{ClosingCash: 1, HandoverCash: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_shift_owner", errorOf(t, rec).Code)

	shift, err := ts.engine.Store().GetShift(context.Background(), st.OpenShift.ID)
	require.NoError(t, err)
	assert.True(t, shift.IsOpen())
}

func TestAuthenticate_RejectsMissingAndBadTokens(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/hotels/alpha/state", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/hotels/alpha/state", "not-a-jwt", nil).Code)

	other := auth.NewTokenManager("other-secret", "test", time.Hour)
	forged, _, err := other.Issue(engine.SystemPrincipal)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/hotels/alpha/state", forged, nil).Code)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	anna := ts.login("anna@alpha.test", "manager-password")
	boris := ts.login("boris@alpha.test", "manager-password")
	olga := ts.login("olga@alpha.test", "observer-password")

	// Validation -> 400 with field
	rec := ts.do(http.MethodPost, "/api/hotels/alpha/ledger", anna, LedgerRequest{Type: "cash_out", Method: "cash", Amount: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount", errorOf(t, rec).Field)

	// Malformed body -> 400
	req := httptest.NewRequest(http.MethodPost, "/api/hotels/alpha/ledger", bytes.NewBufferString(`{"amount": "ten"}`))
	req.Header.Set("Authorization", "Bearer "+anna)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "body", errorOf(t, rr).Field)

	// Access denied -> 403
	rec = ts.do(http.MethodPost, "/api/hotels/alpha/ledger", olga, LedgerRequest{Type: "cash_out", Method: "cash", Amount: 100})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "read_only", errorOf(t, rec).Code)

	// Not found -> 404
	rec = ts.do(http.MethodGet, "/api/shifts/nope/report", anna, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "shift_not_found", errorOf(t, rec).Code)

	// State conflict -> 409
	rec = ts.do(http.MethodPost, "/api/hotels/alpha/shifts", boris, OpenShiftRequest{OpeningCash: 1000})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "shift_already_open", errorOf(t, rec).Code)
}

func TestStatusOf_FatalIs500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusOf(io.ErrUnexpectedEOF))
}

// =============================================================================
// SHIFT DAY
// =============================================================================

func TestShiftDay_OverHTTP(t *testing.T) {
	ts := newTestServer(t)
	anna := ts.login("anna@alpha.test", "manager-password")

	// GIVEN: Alpha with Anna's open shift
	rec := ts.do(http.MethodGet, "/api/hotels/alpha/state", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st StateResponse
	decodeBody(t, rec, &st)
	require.NotNil(t, st.OpenShift)
	require.NotNil(t, st.Balance)
	shiftID := st.OpenShift.ID
	assert.Equal(t, 1, st.OpenShift.Number)
	assert.Equal(t, int64(1140000), st.Balance.Drawer)
	assert.Equal(t, 2, st.RoomsByStatus["occupied"])

	// WHEN: She sells the next-to-last water for cash
	rec = ts.do(http.MethodPost, "/api/shifts/"+shiftID+"/sales", anna, SaleRequest{ProductID: "alpha-water", Quantity: 1, Method: "cash"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale SaleResponse
	decodeBody(t, rec, &sale)
	assert.Equal(t, 1, sale.Stock)
	assert.Equal(t, int64(15000), sale.Entry.Amount)
	assert.Equal(t, "cash_in", sale.Entry.Type)

	// AND: Checks room 101 out
	rec = ts.do(http.MethodPost, "/api/rooms/alpha-101/check-out", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out StayResponse
	decodeBody(t, rec, &out)
	assert.Equal(t, "checked_out", out.Stay.Status)
	require.NotNil(t, out.Room)
	assert.Equal(t, "dirty", out.Room.Status)

	// AND: A second check-out is a conflict
	rec = ts.do(http.MethodPost, "/api/rooms/alpha-101/check-out", anna, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// AND: Hands the shift over
	rec = ts.do(http.MethodPost, "/api/shifts/"+shiftID+"/handover", anna, HandoverRequest{ClosingCash: 1155000, HandoverCash: 1000000, RecipientID: "boris"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed ShiftDTO
	decodeBody(t, rec, &closed)
	assert.Equal(t, "closed", closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// THEN: The report reflects the day
	rec = ts.do(http.MethodGet, "/api/shifts/"+shiftID+"/report", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep ShiftReportResponse
	decodeBody(t, rec, &rep)
	assert.Equal(t, int64(1155000), rep.Balance.Drawer)
	assert.Len(t, rep.Entries, 7)
	assert.Len(t, rep.Sales, 3)
	assert.Equal(t, "closed", rep.Shift.Status)

	// AND: The XLSX export opens as a workbook
	rec = ts.do(http.MethodGet, "/api/shifts/"+shiftID+"/export.xlsx", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "alpha-shift-1.xlsx")
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Ledger")
}

func TestCheckIn_MixedPaymentOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	anna := ts.login("anna@alpha.test", "manager-password")
	st, err := ts.engine.CurrentState(context.Background(), "alpha", engine.SystemPrincipal)
	require.NoError(t, err)

	// WHEN: A guest pays 1000.00 cash + 500.00 card for room 102
	rec := ts.do(http.MethodPost, "/api/rooms/alpha-102/check-in", anna, CheckInRequest{
		ShiftID:   st.OpenShift.ID,
		GuestName: "Kuznetsov",
		Payment:   PaymentRequest{Method: "mixed", Amount: 150000, Cash: 100000, Card: 50000},
	})

	// THEN: One entry per method, room occupied
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CheckInResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "occupied", resp.Room.Status)
	assert.Equal(t, "mixed", resp.Stay.PaymentMethod)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, int64(150000), resp.Entries[0].Amount+resp.Entries[1].Amount)

	// AND: Parts that do not add up are rejected
	rec = ts.do(http.MethodPost, "/api/rooms/alpha-202/check-in", anna, CheckInRequest{
		ShiftID: st.OpenShift.ID,
		Payment: PaymentRequest{Method: "mixed", Amount: 150000, Cash: 100000, Card: 10000},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "payment", errorOf(t, rec).Field)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login("admin@alpha.test", "admin-password")
	anna := ts.login("anna@alpha.test", "manager-password")

	// Managers cannot create hotels
	rec := ts.do(http.MethodPost, "/api/admin/hotels", anna, CreateHotelRequest{ID: "beta", Name: "Beta"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin_only", errorOf(t, rec).Code)

	// GIVEN: An admin creates a hotel, a room and a product
	rec = ts.do(http.MethodPost, "/api/admin/hotels", admin, CreateHotelRequest{ID: "beta", Name: "Beta", Timezone: "Asia/Yekaterinburg", Currency: "RUB"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/admin/hotels/beta/rooms", admin, CreateRoomRequest{ID: "beta-1", Label: "1", Floor: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	threshold := 2
	rec = ts.do(http.MethodPost, "/api/admin/hotels/beta/products", admin, CreateProductRequest{Name: "Tea", SellPrice: 5000, Stock: 10, ReorderThreshold: &threshold})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prod ProductDTO
	decodeBody(t, rec, &prod)
	assert.Equal(t, "pcs", prod.Unit)

	// WHEN: Boris is assigned with a PIN already used on beta by nobody
	rec = ts.do(http.MethodPost, "/api/admin/hotels/beta/assignments", admin, AssignRequest{UserID: "boris", Role: "manager", PIN: "555555"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: A second active assignment is a conflict
	rec = ts.do(http.MethodPost, "/api/admin/hotels/beta/assignments", admin, AssignRequest{UserID: "boris", Role: "manager", PIN: "666666"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// AND: Boris's new token sees beta, then opens a shift with a restock
	boris := ts.login("boris@alpha.test", "manager-password")
	rec = ts.do(http.MethodPost, "/api/hotels/beta/shifts", boris, OpenShiftRequest{OpeningCash: 5000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var shift ShiftDTO
	decodeBody(t, rec, &shift)
	assert.Equal(t, 1, shift.Number)

	rec = ts.do(http.MethodPost, "/api/products/"+prod.ID+"/inventory", boris, InventoryRequest{Delta: 5, Reason: "restock"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv InventoryResponse
	decodeBody(t, rec, &inv)
	assert.Equal(t, 15, inv.Stock)

	// AND: The admin can close and purge history
	status := "closed"
	rec = ts.do(http.MethodPatch, "/api/admin/shifts/"+shift.ID, admin, ShiftPatchRequest{Status: &status})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/api/admin/hotels/beta/shifts/closed", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var del DeletedResponse
	decodeBody(t, rec, &del)
	assert.Equal(t, 1, del.Deleted)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/admin/hotels/beta/assignments/boris", admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/admin/rooms/beta-1", admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/admin/hotels/beta", admin, nil).Code)
}

// =============================================================================
// READ MODELS
// =============================================================================

func TestOverviewAndHistory(t *testing.T) {
	ts := newTestServer(t)
	olga := ts.login("olga@alpha.test", "observer-password")

	// Observers can read
	rec := ts.do(http.MethodGet, "/api/overview", olga, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var overview []HotelSummaryDTO
	decodeBody(t, rec, &overview)
	require.Len(t, overview, 1)
	assert.Equal(t, "alpha", overview[0].Hotel.ID)
	assert.Equal(t, int64(881000), overview[0].Totals.CashIn)
	assert.NotNil(t, overview[0].OpenShift)

	rec = ts.do(http.MethodGet, "/api/hotels/alpha/history", olga, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var hist HistoryResponse
	decodeBody(t, rec, &hist)
	assert.Len(t, hist.Days, engine.DefaultHistoryDays)
	assert.Len(t, hist.Shifts, 1)
	assert.Equal(t, int64(856000), hist.Totals.Net)

	rec = ts.do(http.MethodGet, "/api/hotels/alpha/history/export.xlsx", olga, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))

	// Bad bounds are validation errors
	rec = ts.do(http.MethodGet, "/api/hotels/alpha/history?from=yesterday", olga, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "from", errorOf(t, rec).Field)

	rec = ts.do(http.MethodGet, "/api/overview?tz=Mars/Olympus", olga, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A hotel outside the principal's list is forbidden whether or not it
	// exists, with or without bounds
	for _, path := range []string{
		"/api/hotels/ghost/history",
		"/api/hotels/ghost/history?from=2026-01-01",
		"/api/hotels/ghost/history/export.xlsx?to=2026-01-31",
	} {
		rec = ts.do(http.MethodGet, path, olga, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "forbidden", errorOf(t, rec).Code, path)
	}
}
