/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model in package hotel from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Every amount is an integer in minor currency units (cents, kopecks).
  Clients format; the API never sends floats.

TIMES:
  RFC 3339 in UTC. Day boundaries in query strings (from/to) are
  YYYY-MM-DD in the hotel's zone.

VALIDATION:
  Validation is done by the engine, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - hotel/types.go: domain entities
*/
package api

import (
	"time"

	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/payout"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PINLoginRequest struct {
	HotelID string `json:"hotel_id"`
	PIN     string `json:"pin"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
	HotelIDs  []string  `json:"hotel_ids"`
}

type MeResponse struct {
	UserID   string   `json:"user_id"`
	Role     string   `json:"role"`
	HotelIDs []string `json:"hotel_ids"`
}

// =============================================================================
// ADMIN REQUESTS
// =============================================================================

type CreateHotelRequest struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Address         string        `json:"address"`
	Timezone        string        `json:"timezone"`
	Currency        string        `json:"currency"`
	ShareBps        int           `json:"share_bps"`
	CleaningChannel string        `json:"cleaning_channel"`
	BonusTiers      []payout.Tier `json:"bonus_tiers"`
}

type CreateUserRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Floor int    `json:"floor"`
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

type CreateProductRequest struct {
	ID               string `json:"id"`
	CategoryID       string `json:"category_id"`
	Name             string `json:"name"`
	Unit             string `json:"unit"`
	CostPrice        int64  `json:"cost_price"`
	SellPrice        int64  `json:"sell_price"`
	Stock            int    `json:"stock"`
	ReorderThreshold *int   `json:"reorder_threshold"`
}

type AssignRequest struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	PIN      string `json:"pin"`
	ShiftPay int64  `json:"shift_pay"`
	ShareBps int    `json:"share_bps"`
}

// ShiftPatchRequest mirrors engine.ShiftPatch: absent fields stay unchanged.
type ShiftPatchRequest struct {
	ManagerID    *string    `json:"manager_id"`
	OpenedAt     *time.Time `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	OpeningCash  *int64     `json:"opening_cash"`
	ClosingCash  *int64     `json:"closing_cash"`
	HandoverCash *int64     `json:"handover_cash"`
	OpeningNote  *string    `json:"opening_note"`
	ClosingNote  *string    `json:"closing_note"`
	HandoverNote *string    `json:"handover_note"`
	Status       *string    `json:"status"`
}

func (r ShiftPatchRequest) toPatch() engine.ShiftPatch {
	patch := engine.ShiftPatch{
		ManagerID:    r.ManagerID,
		OpenedAt:     r.OpenedAt,
		ClosedAt:     r.ClosedAt,
		OpeningCash:  r.OpeningCash,
		ClosingCash:  r.ClosingCash,
		HandoverCash: r.HandoverCash,
		OpeningNote:  r.OpeningNote,
		ClosingNote:  r.ClosingNote,
		HandoverNote: r.HandoverNote,
	}
	if r.Status != nil {
		st := hotel.ShiftStatus(*r.Status)
		patch.Status = &st
	}
	return patch
}

type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// =============================================================================
// OPERATION REQUESTS
// =============================================================================

type OpenShiftRequest struct {
	OpeningCash int64  `json:"opening_cash"`
	Note        string `json:"note"`
	PIN         string `json:"pin"`
}

type HandoverRequest struct {
	ClosingCash  int64  `json:"closing_cash"`
	HandoverCash int64  `json:"handover_cash"`
	RecipientID  string `json:"recipient_id"`
	Note         string `json:"note"`
	PIN          string `json:"pin"`
}

type PaymentRequest struct {
	Method string `json:"method"` // cash, card or mixed
	Amount int64  `json:"amount"`
	Cash   int64  `json:"cash"`
	Card   int64  `json:"card"`
}

func (p PaymentRequest) toPayment() engine.Payment {
	return engine.Payment{Method: p.Method, Amount: p.Amount, Cash: p.Cash, Card: p.Card}
}

type CheckInRequest struct {
	ShiftID           string         `json:"shift_id"`
	GuestName         string         `json:"guest_name"`
	Payment           PaymentRequest `json:"payment"`
	ScheduledCheckOut *time.Time     `json:"scheduled_check_out"`
}

type RoomStatusRequest struct {
	Status string `json:"status"`
}

type ScheduleStayRequest struct {
	RoomID    string    `json:"room_id"`
	GuestName string    `json:"guest_name"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
}

type TransitionRequest struct {
	To      string          `json:"to"`
	ShiftID string          `json:"shift_id"`
	Payment *PaymentRequest `json:"payment"`
}

type SaleRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Method    string `json:"method"`
	Type      string `json:"type"`
	StayID    string `json:"stay_id"`
}

type LedgerRequest struct {
	ShiftID string `json:"shift_id"`
	Type    string `json:"type"`
	Method  string `json:"method"`
	Amount  int64  `json:"amount"`
	Note    string `json:"note"`
}

type InventoryRequest struct {
	Delta    int    `json:"delta"`
	Reason   string `json:"reason"`
	UnitCost *int64 `json:"unit_cost"`
	Note     string `json:"note"`
}

// =============================================================================
// ENTITY DTOs
// =============================================================================

type HotelDTO struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Address         string        `json:"address,omitempty"`
	Timezone        string        `json:"timezone"`
	Currency        string        `json:"currency"`
	ShareBps        int           `json:"share_bps"`
	CleaningChannel string        `json:"cleaning_channel,omitempty"`
	BonusTiers      []payout.Tier `json:"bonus_tiers,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

func toHotelDTO(h hotel.Hotel) HotelDTO {
	return HotelDTO{
		ID:              h.ID,
		Name:            h.Name,
		Address:         h.Address,
		Timezone:        h.Timezone,
		Currency:        h.Currency,
		ShareBps:        h.ShareBps,
		CleaningChannel: h.CleaningChannel,
		BonusTiers:      h.BonusTiers,
		CreatedAt:       h.CreatedAt,
	}
}

type UserDTO struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func toUserDTO(u hotel.User) UserDTO {
	return UserDTO{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), Active: u.Active}
}

// AssignmentDTO never carries the PIN hash.
type AssignmentDTO struct {
	ID       string `json:"id"`
	HotelID  string `json:"hotel_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
	ShiftPay int64  `json:"shift_pay"`
	ShareBps int    `json:"share_bps"`
}

func toAssignmentDTO(a hotel.HotelAssignment) AssignmentDTO {
	return AssignmentDTO{
		ID:       a.ID,
		HotelID:  a.HotelID,
		UserID:   a.UserID,
		Role:     string(a.Role),
		Active:   a.Active,
		ShiftPay: a.ShiftPay,
		ShareBps: a.ShareBps,
	}
}

type RoomDTO struct {
	ID            string `json:"id"`
	HotelID       string `json:"hotel_id"`
	Label         string `json:"label"`
	Floor         int    `json:"floor"`
	Status        string `json:"status"`
	Active        bool   `json:"active"`
	CurrentStayID string `json:"current_stay_id,omitempty"`
}

func toRoomDTO(r hotel.Room) RoomDTO {
	return RoomDTO{
		ID:            r.ID,
		HotelID:       r.HotelID,
		Label:         r.Label,
		Floor:         r.Floor,
		Status:        string(r.Status),
		Active:        r.Active,
		CurrentStayID: r.CurrentStayID,
	}
}

type StayDTO struct {
	ID                string     `json:"id"`
	RoomID            string     `json:"room_id"`
	HotelID           string     `json:"hotel_id"`
	ShiftID           string     `json:"shift_id,omitempty"`
	GuestName         string     `json:"guest_name"`
	Status            string     `json:"status"`
	ScheduledCheckIn  *time.Time `json:"scheduled_check_in,omitempty"`
	ScheduledCheckOut *time.Time `json:"scheduled_check_out,omitempty"`
	ActualCheckIn     *time.Time `json:"actual_check_in,omitempty"`
	ActualCheckOut    *time.Time `json:"actual_check_out,omitempty"`
	AmountPaid        int64      `json:"amount_paid"`
	CashPaid          int64      `json:"cash_paid"`
	CardPaid          int64      `json:"card_paid"`
	PaymentMethod     string     `json:"payment_method,omitempty"`
}

func toStayDTO(s hotel.RoomStay) StayDTO {
	dto := StayDTO{
		ID:                s.ID,
		RoomID:            s.RoomID,
		HotelID:           s.HotelID,
		ShiftID:           s.ShiftID,
		GuestName:         s.GuestName,
		Status:            string(s.Status),
		ScheduledCheckIn:  s.ScheduledCheckIn,
		ScheduledCheckOut: s.ScheduledCheckOut,
		ActualCheckIn:     s.ActualCheckIn,
		ActualCheckOut:    s.ActualCheckOut,
		AmountPaid:        s.AmountPaid,
		CashPaid:          s.CashPaid,
		CardPaid:          s.CardPaid,
	}
	switch {
	case s.PaymentMethod != nil:
		dto.PaymentMethod = string(*s.PaymentMethod)
	case s.AmountPaid > 0:
		dto.PaymentMethod = engine.MethodMixed
	}
	return dto
}

type ShiftDTO struct {
	ID           string     `json:"id"`
	HotelID      string     `json:"hotel_id"`
	ManagerID    string     `json:"manager_id"`
	Number       int        `json:"number"`
	Status       string     `json:"status"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	OpeningCash  int64      `json:"opening_cash"`
	ClosingCash  *int64     `json:"closing_cash,omitempty"`
	HandoverCash *int64     `json:"handover_cash,omitempty"`
	RecipientID  string     `json:"recipient_id,omitempty"`
	OpeningNote  string     `json:"opening_note,omitempty"`
	ClosingNote  string     `json:"closing_note,omitempty"`
	HandoverNote string     `json:"handover_note,omitempty"`
}

func toShiftDTO(s hotel.Shift) ShiftDTO {
	return ShiftDTO{
		ID:           s.ID,
		HotelID:      s.HotelID,
		ManagerID:    s.ManagerID,
		Number:       s.Number,
		Status:       string(s.Status),
		OpenedAt:     s.OpenedAt,
		ClosedAt:     s.ClosedAt,
		OpeningCash:  s.OpeningCash,
		ClosingCash:  s.ClosingCash,
		HandoverCash: s.HandoverCash,
		RecipientID:  s.RecipientID,
		OpeningNote:  s.OpeningNote,
		ClosingNote:  s.ClosingNote,
		HandoverNote: s.HandoverNote,
	}
}

func toShiftPtr(s *hotel.Shift) *ShiftDTO {
	if s == nil {
		return nil
	}
	dto := toShiftDTO(*s)
	return &dto
}

type CashEntryDTO struct {
	ID         string    `json:"id"`
	HotelID    string    `json:"hotel_id"`
	ShiftID    string    `json:"shift_id,omitempty"`
	ManagerID  string    `json:"manager_id"`
	Type       string    `json:"type"`
	Method     string    `json:"method"`
	Amount     int64     `json:"amount"`
	Note       string    `json:"note,omitempty"`
	SaleID     string    `json:"sale_id,omitempty"`
	StayID     string    `json:"stay_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toCashEntryDTO(e hotel.CashEntry) CashEntryDTO {
	return CashEntryDTO{
		ID:         e.ID,
		HotelID:    e.HotelID,
		ShiftID:    e.ShiftID,
		ManagerID:  e.ManagerID,
		Type:       string(e.Type),
		Method:     string(e.Method),
		Amount:     e.Amount,
		Note:       e.Note,
		SaleID:     e.SaleID,
		StayID:     e.StayID,
		RecordedAt: e.RecordedAt,
	}
}

func toCashEntryDTOs(entries []hotel.CashEntry) []CashEntryDTO {
	out := make([]CashEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toCashEntryDTO(e))
	}
	return out
}

type ProductDTO struct {
	ID               string `json:"id"`
	HotelID          string `json:"hotel_id"`
	CategoryID       string `json:"category_id,omitempty"`
	Name             string `json:"name"`
	Unit             string `json:"unit"`
	CostPrice        int64  `json:"cost_price"`
	SellPrice        int64  `json:"sell_price"`
	Stock            int    `json:"stock"`
	ReorderThreshold *int   `json:"reorder_threshold,omitempty"`
	Active           bool   `json:"active"`
	LowStock         bool   `json:"low_stock"`
}

func toProductDTO(p hotel.Product) ProductDTO {
	return ProductDTO{
		ID:               p.ID,
		HotelID:          p.HotelID,
		CategoryID:       p.CategoryID,
		Name:             p.Name,
		Unit:             p.Unit,
		CostPrice:        p.CostPrice,
		SellPrice:        p.SellPrice,
		Stock:            p.Stock,
		ReorderThreshold: p.ReorderThreshold,
		Active:           p.Active,
		LowStock:         p.LowStock(),
	}
}

type CategoryDTO struct {
	ID      string `json:"id"`
	HotelID string `json:"hotel_id"`
	Name    string `json:"name"`
}

type SaleDTO struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ShiftID     string    `json:"shift_id,omitempty"`
	StayID      string    `json:"stay_id,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	Total       int64     `json:"total"`
	Method      string    `json:"method"`
	Type        string    `json:"type"`
	CashEntryID string    `json:"cash_entry_id"`
	SoldAt      time.Time `json:"sold_at"`
}

func toSaleDTO(s hotel.ProductSale) SaleDTO {
	return SaleDTO{
		ID:          s.ID,
		ProductID:   s.ProductID,
		ShiftID:     s.ShiftID,
		StayID:      s.StayID,
		Quantity:    s.Quantity,
		UnitPrice:   s.UnitPrice,
		Total:       s.Total,
		Method:      string(s.Method),
		Type:        string(s.Type),
		CashEntryID: s.CashEntryID,
		SoldAt:      s.SoldAt,
	}
}

type InventoryEntryDTO struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	UnitCost  *int64    `json:"unit_cost,omitempty"`
	Note      string    `json:"note,omitempty"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// OPERATION RESPONSES
// =============================================================================

type CheckInResponse struct {
	Stay    StayDTO        `json:"stay"`
	Room    RoomDTO        `json:"room"`
	Entries []CashEntryDTO `json:"entries"`
}

type StayResponse struct {
	Stay StayDTO  `json:"stay"`
	Room *RoomDTO `json:"room,omitempty"`
}

func toStayResponse(res *engine.StayResult) StayResponse {
	out := StayResponse{Stay: toStayDTO(*res.Stay)}
	if res.Room != nil {
		room := toRoomDTO(*res.Room)
		out.Room = &room
	}
	return out
}

type SaleResponse struct {
	Sale  SaleDTO      `json:"sale"`
	Entry CashEntryDTO `json:"entry"`
	Stock int          `json:"stock"`
}

type InventoryResponse struct {
	Entry InventoryEntryDTO `json:"entry"`
	Stock int               `json:"stock"`
}

// =============================================================================
// READ MODELS
// =============================================================================

// BreakdownDTO is a Totals projection. Net = cash_in - cash_out - payouts
// + adjustments.
type BreakdownDTO struct {
	CashIn      int64 `json:"cash_in"`
	CashOut     int64 `json:"cash_out"`
	Payouts     int64 `json:"manager_payouts"`
	Adjustments int64 `json:"adjustments"`
	Net         int64 `json:"net"`
}

func toBreakdownDTO(b hotel.Breakdown) BreakdownDTO {
	return BreakdownDTO{
		CashIn:      b.CashIn,
		CashOut:     b.CashOut,
		Payouts:     b.Payouts,
		Adjustments: b.Adjustments,
		Net:         b.Net,
	}
}

type BalanceDTO struct {
	OpeningCash int64 `json:"opening_cash"`
	BreakdownDTO
	Balance int64 `json:"balance"`
	Drawer  int64 `json:"drawer"`
}

func toBalanceDTO(b hotel.ShiftBalance) BalanceDTO {
	return BalanceDTO{
		OpeningCash:  b.OpeningCash,
		BreakdownDTO: toBreakdownDTO(b.Breakdown),
		Balance:      b.Balance,
		Drawer:       b.Drawer,
	}
}

type StateResponse struct {
	Hotel         HotelDTO       `json:"hotel"`
	OpenShift     *ShiftDTO      `json:"open_shift"`
	Balance       *BalanceDTO    `json:"balance"`
	Rooms         []RoomDTO      `json:"rooms"`
	RoomsByStatus map[string]int `json:"rooms_by_status"`
	CheckedIn     []StayDTO      `json:"checked_in"`
	LowStock      []ProductDTO   `json:"low_stock"`
}

func toStateResponse(st *engine.State) StateResponse {
	out := StateResponse{
		Hotel:         toHotelDTO(*st.Hotel),
		OpenShift:     toShiftPtr(st.OpenShift),
		Rooms:         make([]RoomDTO, 0, len(st.Rooms)),
		RoomsByStatus: make(map[string]int, len(st.RoomsByStatus)),
		CheckedIn:     make([]StayDTO, 0, len(st.CheckedIn)),
		LowStock:      make([]ProductDTO, 0, len(st.LowStock)),
	}
	if st.Balance != nil {
		b := toBalanceDTO(*st.Balance)
		out.Balance = &b
	}
	for _, r := range st.Rooms {
		out.Rooms = append(out.Rooms, toRoomDTO(r))
	}
	for status, n := range st.RoomsByStatus {
		out.RoomsByStatus[string(status)] = n
	}
	for _, s := range st.CheckedIn {
		out.CheckedIn = append(out.CheckedIn, toStayDTO(s))
	}
	for _, p := range st.LowStock {
		out.LowStock = append(out.LowStock, toProductDTO(p))
	}
	return out
}

type HotelSummaryDTO struct {
	Hotel     HotelDTO     `json:"hotel"`
	Totals    BreakdownDTO `json:"totals"`
	Cash      BreakdownDTO `json:"cash"`
	Card      BreakdownDTO `json:"card"`
	OpenShift *ShiftDTO    `json:"open_shift"`
}

type DayDTO struct {
	Day    string       `json:"day"` // YYYY-MM-DD in the hotel's zone
	Totals BreakdownDTO `json:"totals"`
}

type HistoryResponse struct {
	Hotel  HotelDTO     `json:"hotel"`
	From   time.Time    `json:"from"`
	To     time.Time    `json:"to"`
	Shifts []ShiftDTO   `json:"shifts"`
	Totals BreakdownDTO `json:"totals"`
	Cash   BreakdownDTO `json:"cash"`
	Card   BreakdownDTO `json:"card"`
	Days   []DayDTO     `json:"days"`
}

func toHistoryResponse(h *engine.History) HistoryResponse {
	out := HistoryResponse{
		Hotel:  toHotelDTO(*h.Hotel),
		From:   h.From,
		To:     h.To,
		Shifts: make([]ShiftDTO, 0, len(h.Shifts)),
		Totals: toBreakdownDTO(h.Totals),
		Cash:   toBreakdownDTO(h.Cash),
		Card:   toBreakdownDTO(h.Card),
		Days:   make([]DayDTO, 0, len(h.Days)),
	}
	for _, s := range h.Shifts {
		out.Shifts = append(out.Shifts, toShiftDTO(s))
	}
	for _, d := range h.Days {
		out.Days = append(out.Days, DayDTO{
			Day:    d.Day.Format(time.DateOnly),
			Totals: toBreakdownDTO(d.Totals.Breakdown()),
		})
	}
	return out
}

type PayoutDTO struct {
	Expected    int64        `json:"expected"`
	AlreadyPaid int64        `json:"already_paid"`
	Pending     int64        `json:"pending"`
	Tier        *payout.Tier `json:"tier,omitempty"`
}

func toPayoutDTO(r payout.Result) PayoutDTO {
	return PayoutDTO{Expected: r.Expected, AlreadyPaid: r.AlreadyPaid, Pending: r.Pending, Tier: r.Tier}
}

type ShiftReportResponse struct {
	Shift   ShiftDTO       `json:"shift"`
	Hotel   HotelDTO       `json:"hotel"`
	Balance BalanceDTO     `json:"balance"`
	Cash    BreakdownDTO   `json:"cash"`
	Card    BreakdownDTO   `json:"card"`
	Entries []CashEntryDTO `json:"entries"`
	Sales   []SaleDTO      `json:"sales"`
	Payout  PayoutDTO      `json:"payout"`
	Bonus   *PayoutDTO     `json:"bonus,omitempty"`
}

func toShiftReportResponse(rep *engine.ShiftReport) ShiftReportResponse {
	out := ShiftReportResponse{
		Shift:   toShiftDTO(*rep.Shift),
		Hotel:   toHotelDTO(*rep.Hotel),
		Balance: toBalanceDTO(rep.Balance),
		Cash:    toBreakdownDTO(rep.Cash),
		Card:    toBreakdownDTO(rep.Card),
		Entries: toCashEntryDTOs(rep.Entries),
		Sales:   make([]SaleDTO, 0, len(rep.Sales)),
		Payout:  toPayoutDTO(rep.Payout),
	}
	for _, s := range rep.Sales {
		out.Sales = append(out.Sales, toSaleDTO(s))
	}
	if rep.Bonus != nil {
		b := toPayoutDTO(*rep.Bonus)
		out.Bonus = &b
	}
	return out
}

// =============================================================================
// SCENARIOS
// =============================================================================

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}
