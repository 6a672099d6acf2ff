/*
handlers.go - HTTP API handlers for the hotel back office

PURPOSE:
  Exposes the shift engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates every rule to the engine.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                       Email + password
    POST   /api/auth/pin-login                   Hotel + manager PIN
    GET    /api/me                               Principal of the token

  Shifts:
    POST   /api/hotels/{hotelID}/shifts          Open a shift
    POST   /api/shifts/{shiftID}/handover        Close with cash count
    GET    /api/shifts/{shiftID}/report          Totals, balance, payout
    GET    /api/shifts/{shiftID}/export.xlsx     Same, as a workbook

  Occupancy:
    POST   /api/rooms/{roomID}/check-in          Walk-in with payment
    POST   /api/rooms/{roomID}/check-out         Close the current stay
    POST   /api/rooms/{roomID}/status            Cleaning / maintenance
    POST   /api/hotels/{hotelID}/stays           Booking
    POST   /api/stays/{stayID}/transition        Booking lifecycle

  Money and stock:
    POST   /api/shifts/{shiftID}/sales           Product sale
    POST   /api/hotels/{hotelID}/ledger          Expense, payout, adjustment
    POST   /api/products/{productID}/inventory   Restock, write-off

  Reads:
    GET    /api/hotels/{hotelID}/state           Dashboard
    GET    /api/overview                         Totals per visible hotel
    GET    /api/hotels/{hotelID}/history         Range report + daily series

  Admin: see server.go.

REQUEST FLOW:
  1. Decode JSON body (unknown fields rejected)
  2. Take the principal from the request context
  3. Call one engine operation
  4. Serialize the result through a DTO
  5. Map errors by kind (errors.go)

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: error kind -> status
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/warp/hotel-backoffice/auth"
	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/metrics"
	"github.com/warp/hotel-backoffice/ratelimit"
	"github.com/warp/hotel-backoffice/report"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	engine  *engine.Engine
	tokens  *auth.TokenManager
	limiter *ratelimit.Limiter // login attempts, keyed by client fingerprint
	logger  *slog.Logger
}

// NewHandler creates a handler. limiter may be nil to disable login limiting.
func NewHandler(eng *engine.Engine, tokens *auth.TokenManager, limiter *ratelimit.Limiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{engine: eng, tokens: tokens, limiter: limiter, logger: logger}
}

// =============================================================================
// PROBES
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether the database answers.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.engine.Store().Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	key := fingerprint(r)
	if !h.allowLogin(w, r, "password", key) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := h.engine.Store().GetUserByEmail(r.Context(), email)
	if err != nil && !hotel.IsNotFound(err) {
		h.fail(w, r, err)
		return
	}
	if err != nil || !u.Active || !auth.CheckPassword(u.PasswordHash, req.Password) {
		metrics.ObserveLogin("password", "failure")
		writeError(w, http.StatusUnauthorized, "invalid email or password", nil)
		return
	}
	h.issueToken(w, r, "password", key, u)
}

// PINLogin handles POST /api/auth/pin-login. The PIN identifies the manager
// among the hotel's active assignments.
func (h *Handler) PINLogin(w http.ResponseWriter, r *http.Request) {
	var req PINLoginRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	key := fingerprint(r)
	if !h.allowLogin(w, r, "pin", key) {
		return
	}

	a, err := h.engine.ResolveManagerPIN(r.Context(), req.HotelID, req.PIN)
	if errors.Is(err, hotel.ErrInvalidManagerPin) {
		metrics.ObserveLogin("pin", "failure")
		writeError(w, http.StatusUnauthorized, "invalid PIN", nil)
		return
	}
	if err != nil {
		metrics.ObserveLogin("pin", "failure")
		h.fail(w, r, err)
		return
	}
	u, err := h.engine.Store().GetUser(r.Context(), a.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !u.Active {
		metrics.ObserveLogin("pin", "failure")
		writeError(w, http.StatusUnauthorized, "invalid PIN", nil)
		return
	}
	h.issueToken(w, r, "pin", key, u)
}

// allowLogin counts one attempt. A limiter backend failure lets the attempt
// through so that a Redis outage does not lock every user out.
func (h *Handler) allowLogin(w http.ResponseWriter, r *http.Request, method, key string) bool {
	if h.limiter == nil {
		return true
	}
	res, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login limiter unavailable", "error", err)
		return true
	}
	if !res.Allowed {
		secs := int(math.Ceil(res.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		metrics.ObserveLogin(method, "limited")
		writeError(w, http.StatusTooManyRequests, "too many login attempts", nil)
		return false
	}
	return true
}

// allowPIN counts a manager PIN presented on a shift action against the
// client's login budget, so PIN guessing is limited on every endpoint that
// accepts one.
func (h *Handler) allowPIN(w http.ResponseWriter, r *http.Request, pin string) bool {
	if pin == "" {
		return true
	}
	return h.allowLogin(w, r, "pin", fingerprint(r))
}

// issueToken snapshots the user's active hotels into a signed token.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, method, key string, u *hotel.User) {
	ctx := r.Context()
	assignments, err := h.engine.Store().ListUserAssignments(ctx, u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hotelIDs := []string{}
	for _, a := range assignments {
		if a.Active {
			hotelIDs = append(hotelIDs, a.HotelID)
		}
	}

	token, exp, err := h.tokens.Issue(hotel.Principal{UserID: u.ID, Role: u.Role, HotelIDs: hotelIDs})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, key); err != nil {
			h.logger.WarnContext(ctx, "login limiter reset failed", "error", err)
		}
	}
	metrics.ObserveLogin(method, "success")
	h.logger.InfoContext(ctx, "login", "user_id", u.ID, "method", method)

	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      toUserDTO(*u),
		HotelIDs:  hotelIDs,
	})
}

// Me handles GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	ids := p.HotelIDs
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, MeResponse{UserID: p.UserID, Role: string(p.Role), HotelIDs: ids})
}

// =============================================================================
// SHIFT ENDPOINTS
// =============================================================================

// OpenShift handles POST /api/hotels/{hotelID}/shifts
func (h *Handler) OpenShift(w http.ResponseWriter, r *http.Request) {
	var req OpenShiftRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.allowPIN(w, r, req.PIN) {
		return
	}
	s, err := h.engine.OpenShift(r.Context(), engine.OpenShiftInput{
		HotelID:     chi.URLParam(r, "hotelID"),
		OpeningCash: req.OpeningCash,
		Note:        req.Note,
		PIN:         req.PIN,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(*s))
}

// Handover handles POST /api/shifts/{shiftID}/handover
func (h *Handler) Handover(w http.ResponseWriter, r *http.Request) {
	var req HandoverRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.allowPIN(w, r, req.PIN) {
		return
	}
	s, err := h.engine.Handover(r.Context(), engine.HandoverInput{
		ShiftID:      chi.URLParam(r, "shiftID"),
		ClosingCash:  req.ClosingCash,
		HandoverCash: req.HandoverCash,
		RecipientID:  req.RecipientID,
		Note:         req.Note,
		PIN:          req.PIN,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s))
}

// GetShiftReport handles GET /api/shifts/{shiftID}/report
func (h *Handler) GetShiftReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.ShiftReport(r.Context(), chi.URLParam(r, "shiftID"), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftReportResponse(rep))
}

// ExportShift handles GET /api/shifts/{shiftID}/export.xlsx
func (h *Handler) ExportShift(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.ShiftReport(r.Context(), chi.URLParam(r, "shiftID"), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := report.ShiftWorkbook(rep)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeWorkbook(w, r, f, report.Filename(rep.Hotel.ID, "shift", rep.Shift.Number))
}

// =============================================================================
// OCCUPANCY ENDPOINTS
// =============================================================================

// CheckIn handles POST /api/rooms/{roomID}/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.CheckIn(r.Context(), engine.CheckInInput{
		RoomID:            chi.URLParam(r, "roomID"),
		ShiftID:           req.ShiftID,
		GuestName:         req.GuestName,
		Payment:           req.Payment.toPayment(),
		ScheduledCheckOut: req.ScheduledCheckOut,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CheckInResponse{
		Stay:    toStayDTO(*res.Stay),
		Room:    toRoomDTO(*res.Room),
		Entries: toCashEntryDTOs(res.Entries),
	})
}

// CheckOut handles POST /api/rooms/{roomID}/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.CheckOut(r.Context(), chi.URLParam(r, "roomID"), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStayResponse(res))
}

// SetRoomStatus handles POST /api/rooms/{roomID}/status
func (h *Handler) SetRoomStatus(w http.ResponseWriter, r *http.Request) {
	var req RoomStatusRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	room, err := h.engine.SetRoomStatus(r.Context(), chi.URLParam(r, "roomID"), hotel.RoomStatus(req.Status), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(*room))
}

// ScheduleStay handles POST /api/hotels/{hotelID}/stays
func (h *Handler) ScheduleStay(w http.ResponseWriter, r *http.Request) {
	var req ScheduleStayRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	hotelID := chi.URLParam(r, "hotelID")
	if req.RoomID != "" {
		room, err := h.engine.Store().GetRoom(r.Context(), req.RoomID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if room.HotelID != hotelID {
			h.fail(w, r, hotel.NotFound("room", req.RoomID))
			return
		}
	}
	stay, err := h.engine.ScheduleStay(r.Context(), engine.ScheduleStayInput{
		RoomID:    req.RoomID,
		GuestName: req.GuestName,
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStayDTO(*stay))
}

// TransitionStay handles POST /api/stays/{stayID}/transition
func (h *Handler) TransitionStay(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in := engine.TransitionInput{
		StayID:  chi.URLParam(r, "stayID"),
		To:      hotel.StayStatus(req.To),
		ShiftID: req.ShiftID,
	}
	if req.Payment != nil {
		pay := req.Payment.toPayment()
		in.Payment = &pay
	}
	res, err := h.engine.TransitionStay(r.Context(), in, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStayResponse(res))
}

// =============================================================================
// SALES, LEDGER & INVENTORY ENDPOINTS
// =============================================================================

// RecordSale handles POST /api/shifts/{shiftID}/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.RecordSale(r.Context(), engine.SaleInput{
		ShiftID:   chi.URLParam(r, "shiftID"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Method:    hotel.PaymentMethod(req.Method),
		Type:      hotel.SaleType(req.Type),
		StayID:    req.StayID,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SaleResponse{
		Sale:  toSaleDTO(*res.Sale),
		Entry: toCashEntryDTO(*res.Entry),
		Stock: res.Stock,
	})
}

// RecordLedgerEntry handles POST /api/hotels/{hotelID}/ledger
func (h *Handler) RecordLedgerEntry(w http.ResponseWriter, r *http.Request) {
	var req LedgerRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.engine.RecordLedgerEntry(r.Context(), engine.LedgerInput{
		HotelID: chi.URLParam(r, "hotelID"),
		ShiftID: req.ShiftID,
		Type:    hotel.EntryType(req.Type),
		Method:  hotel.PaymentMethod(req.Method),
		Amount:  req.Amount,
		Note:    req.Note,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCashEntryDTO(*entry))
}

// AdjustInventory handles POST /api/products/{productID}/inventory
func (h *Handler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req InventoryRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.AdjustInventory(r.Context(), engine.InventoryInput{
		ProductID: chi.URLParam(r, "productID"),
		Delta:     req.Delta,
		Reason:    hotel.InventoryReason(req.Reason),
		UnitCost:  req.UnitCost,
		Note:      req.Note,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	e := res.Entry
	writeJSON(w, http.StatusCreated, InventoryResponse{
		Entry: InventoryEntryDTO{
			ID:        e.ID,
			ProductID: e.ProductID,
			Delta:     e.Delta,
			Reason:    string(e.Reason),
			UnitCost:  e.UnitCost,
			Note:      e.Note,
			UserID:    e.UserID,
			CreatedAt: e.CreatedAt,
		},
		Stock: res.Stock,
	})
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

// GetState handles GET /api/hotels/{hotelID}/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.CurrentState(r.Context(), chi.URLParam(r, "hotelID"), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(st))
}

// Overview handles GET /api/overview?from=&to=&tz=
// Days are read in tz (UTC by default).
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := time.UTC
	if tz := q.Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			h.fail(w, r, hotel.Invalid("tz", "unknown time zone"))
			return
		}
		loc = l
	}
	from, to, err := report.ParseRange(q.Get("from"), q.Get("to"), loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summaries, err := h.engine.Overview(r.Context(), from, to, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]HotelSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, HotelSummaryDTO{
			Hotel:     toHotelDTO(s.Hotel),
			Totals:    toBreakdownDTO(s.Totals),
			Cash:      toBreakdownDTO(s.Cash),
			Card:      toBreakdownDTO(s.Card),
			OpenShift: toShiftPtr(s.OpenShift),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetHistory handles GET /api/hotels/{hotelID}/history?from=&to=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.history(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(hist))
}

// ExportHistory handles GET /api/hotels/{hotelID}/history/export.xlsx
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.history(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := report.HistoryWorkbook(hist)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	last := hist.To.Add(-time.Nanosecond).In(hist.Hotel.Location())
	name := report.Filename(hist.Hotel.ID, "history",
		hist.From.In(hist.Hotel.Location()).Format(time.DateOnly), last.Format(time.DateOnly))
	h.writeWorkbook(w, r, f, name)
}

// history reads from/to as days in the hotel's zone.
func (h *Handler) history(r *http.Request) (*engine.History, error) {
	ctx := r.Context()
	hotelID := chi.URLParam(r, "hotelID")
	q := r.URL.Query()

	var from, to time.Time
	if q.Get("from") != "" || q.Get("to") != "" {
		loc, err := h.engine.HotelZone(ctx, hotelID, principal(r))
		if err != nil {
			return nil, err
		}
		if from, to, err = report.ParseRange(q.Get("from"), q.Get("to"), loc); err != nil {
			return nil, err
		}
	}
	return h.engine.History(ctx, hotelID, from, to, principal(r))
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// CreateHotel handles POST /api/admin/hotels
func (h *Handler) CreateHotel(w http.ResponseWriter, r *http.Request) {
	var req CreateHotelRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.engine.CreateHotel(r.Context(), hotel.Hotel{
		ID:              req.ID,
		Name:            req.Name,
		Address:         req.Address,
		Timezone:        req.Timezone,
		Currency:        req.Currency,
		ShareBps:        req.ShareBps,
		CleaningChannel: req.CleaningChannel,
		BonusTiers:      req.BonusTiers,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHotelDTO(*created))
}

// DeleteHotel handles DELETE /api/admin/hotels/{hotelID}
func (h *Handler) DeleteHotel(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteHotel(r.Context(), chi.URLParam(r, "hotelID"), principal(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUser handles POST /api/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.engine.CreateUser(r.Context(), engine.UserInput{
		ID:       req.ID,
		Email:    req.Email,
		Name:     req.Name,
		Role:     hotel.Role(req.Role),
		Password: req.Password,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*u))
}

// CreateRoom handles POST /api/admin/hotels/{hotelID}/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	room, err := h.engine.CreateRoom(r.Context(), engine.RoomInput{
		ID:      req.ID,
		HotelID: chi.URLParam(r, "hotelID"),
		Label:   req.Label,
		Floor:   req.Floor,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(*room))
}

// DeleteRoom handles DELETE /api/admin/rooms/{roomID}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteRoom(r.Context(), chi.URLParam(r, "roomID"), principal(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory handles POST /api/admin/hotels/{hotelID}/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.engine.CreateCategory(r.Context(), chi.URLParam(r, "hotelID"), req.Name, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryDTO{ID: c.ID, HotelID: c.HotelID, Name: c.Name})
}

// CreateProduct handles POST /api/admin/hotels/{hotelID}/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	prod, err := h.engine.CreateProduct(r.Context(), engine.ProductInput{
		ID:               req.ID,
		HotelID:          chi.URLParam(r, "hotelID"),
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Unit:             req.Unit,
		CostPrice:        req.CostPrice,
		SellPrice:        req.SellPrice,
		Stock:            req.Stock,
		ReorderThreshold: req.ReorderThreshold,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*prod))
}

// AssignManager handles POST /api/admin/hotels/{hotelID}/assignments
func (h *Handler) AssignManager(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.engine.AssignManager(r.Context(), engine.AssignInput{
		HotelID:  chi.URLParam(r, "hotelID"),
		UserID:   req.UserID,
		Role:     hotel.Role(req.Role),
		PIN:      req.PIN,
		ShiftPay: req.ShiftPay,
		ShareBps: req.ShareBps,
	}, principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(*a))
}

// DeactivateAssignment handles DELETE /api/admin/hotels/{hotelID}/assignments/{userID}
func (h *Handler) DeactivateAssignment(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeactivateAssignment(r.Context(), chi.URLParam(r, "hotelID"), chi.URLParam(r, "userID"), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForceEditShift handles PATCH /api/admin/shifts/{shiftID}
func (h *Handler) ForceEditShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftPatchRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.engine.AdminForceEditShift(r.Context(), chi.URLParam(r, "shiftID"), req.toPatch(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s))
}

// DeleteClosedShifts handles DELETE /api/admin/hotels/{hotelID}/shifts/closed
func (h *Handler) DeleteClosedShifts(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.AdminDeleteClosedShiftsHistory(r.Context(), chi.URLParam(r, "hotelID"), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// =============================================================================
// HELPERS
// =============================================================================

// principal returns the caller. Routes behind Authenticate always have one;
// the zero principal is refused by the engine.
func principal(r *http.Request) hotel.Principal {
	if p := auth.FromContext(r.Context()); p != nil {
		return *p
	}
	return hotel.Principal{}
}

// decode reads a JSON body into dst. Malformed bodies are validation errors.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return hotel.Invalid("body", "request body is empty")
		}
		return hotel.Invalid("body", err.Error())
	}
	return nil
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, f *excelize.File, name string) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := report.Write(w, f); err != nil {
		// Headers are gone; the client sees a truncated file.
		h.logger.ErrorContext(r.Context(), "workbook write failed", "file", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
