/*
Package scenario seeds the back office from YAML files.

PURPOSE:
  Development and demo data. A scenario lists users, hotels with rooms,
  catalog and staff, and optional activity (an open shift with check-ins,
  sales and ledger lines). Everything goes through the engine, so seeded
  data obeys the same rules as live data.

BUILT-IN SCENARIOS (data/*.yaml):
  alpha       one hotel, open shift, guests and a low-stock product
  two-hotels  two hotels in different zones sharing a manager

APPLYING:
  1. hotels named in the scenario are deleted (cascade) and recreated
  2. users are created unless the email already exists
  3. staff are assigned with their PINs
  4. activity runs as the named manager

  Scenarios delete data. Only use in development/demo environments.

SEE ALSO:
  - api/scenarios.go: HTTP endpoints
  - cmd/server: --seed flag
*/
package scenario

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/payout"
)

//go:embed data/*.yaml
var builtin embed.FS

var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// FILE FORMAT
// =============================================================================

type Scenario struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Users       []User  `yaml:"users"`
	Hotels      []Hotel `yaml:"hotels"`
}

type User struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type Hotel struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Address         string    `yaml:"address"`
	Timezone        string    `yaml:"timezone"`
	Currency        string    `yaml:"currency"`
	ShareBps        int       `yaml:"share_bps"`
	CleaningChannel string    `yaml:"cleaning_channel"`
	BonusTiers      []Tier    `yaml:"bonus_tiers"`
	Rooms           []Room    `yaml:"rooms"`
	Categories      []string  `yaml:"categories"`
	Products        []Product `yaml:"products"`
	Staff           []Staff   `yaml:"staff"`
	Activity        *Activity `yaml:"activity"`
}

type Tier struct {
	Threshold  int64 `yaml:"threshold"`
	FixedBonus int64 `yaml:"fixed_bonus"`
	BonusBps   int   `yaml:"bonus_bps"`
}

type Room struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Floor int    `yaml:"floor"`
}

type Product struct {
	ID               string `yaml:"id"`
	Category         string `yaml:"category"`
	Name             string `yaml:"name"`
	Unit             string `yaml:"unit"`
	CostPrice        int64  `yaml:"cost_price"`
	SellPrice        int64  `yaml:"sell_price"`
	Stock            int    `yaml:"stock"`
	ReorderThreshold *int   `yaml:"reorder_threshold"`
}

type Staff struct {
	User     string `yaml:"user"`
	Role     string `yaml:"role"`
	PIN      string `yaml:"pin"`
	ShiftPay int64  `yaml:"shift_pay"`
	ShareBps int    `yaml:"share_bps"`
}

// Activity is run on an open shift of Manager.
type Activity struct {
	Manager     string    `yaml:"manager"`
	OpeningCash int64     `yaml:"opening_cash"`
	CheckIns    []CheckIn `yaml:"check_ins"`
	Sales       []Sale    `yaml:"sales"`
	Ledger      []Entry   `yaml:"ledger"`
}

type CheckIn struct {
	Room   string `yaml:"room"`
	Guest  string `yaml:"guest"`
	Method string `yaml:"method"`
	Amount int64  `yaml:"amount"`
	Cash   int64  `yaml:"cash"`
	Card   int64  `yaml:"card"`
}

type Sale struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
	Method   string `yaml:"method"`
}

type Entry struct {
	Type   string `yaml:"type"`
	Method string `yaml:"method"`
	Amount int64  `yaml:"amount"`
	Note   string `yaml:"note"`
}

// =============================================================================
// LOADING
// =============================================================================

// Parse decodes a scenario, rejecting unknown keys.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.ID == "" {
		return nil, fmt.Errorf("parse scenario: id is required")
	}
	return &sc, nil
}

func LoadFile(name string) (*Scenario, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Info is the listing view of a scenario.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns the built-in scenarios sorted by id.
func List() ([]Info, error) {
	files, err := builtin.ReadDir("data")
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, f := range files {
		sc, err := builtinFile(f.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, Info{ID: sc.ID, Name: sc.Name, Description: sc.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a built-in scenario by id.
func Get(id string) (*Scenario, error) {
	sc, err := builtinFile(id + ".yaml")
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}
	return sc, err
}

func builtinFile(name string) (*Scenario, error) {
	data, err := builtin.ReadFile(path.Join("data", name))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// =============================================================================
// APPLYING
// =============================================================================

// Result counts what a scenario created.
type Result struct {
	Scenario string `json:"scenario"`
	Hotels   int    `json:"hotels"`
	Users    int    `json:"users"`
	Rooms    int    `json:"rooms"`
	Products int    `json:"products"`
	Shifts   int    `json:"shifts"`
	Entries  int    `json:"entries"`
}

// Apply resets the scenario's hotels and seeds them through eng.
func Apply(ctx context.Context, eng *engine.Engine, sc *Scenario) (*Result, error) {
	sys := engine.SystemPrincipal
	res := &Result{Scenario: sc.ID}

	for _, h := range sc.Hotels {
		err := eng.DeleteHotel(ctx, h.ID, sys)
		if err != nil && !hotel.IsNotFound(err) {
			return nil, fmt.Errorf("reset hotel %s: %w", h.ID, err)
		}
	}

	users := make(map[string]string, len(sc.Users))
	for _, u := range sc.Users {
		existing, err := eng.Store().GetUserByEmail(ctx, strings.ToLower(u.Email))
		switch {
		case err == nil:
			users[u.ID] = existing.ID
			continue
		case !hotel.IsNotFound(err):
			return nil, err
		}
		created, err := eng.CreateUser(ctx, engine.UserInput{
			ID: u.ID, Email: u.Email, Name: u.Name, Role: hotel.Role(u.Role), Password: u.Password,
		}, sys)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		users[u.ID] = created.ID
		res.Users++
	}

	for _, h := range sc.Hotels {
		if err := applyHotel(ctx, eng, h, users, res); err != nil {
			return nil, fmt.Errorf("hotel %s: %w", h.ID, err)
		}
		res.Hotels++
	}
	return res, nil
}

func applyHotel(ctx context.Context, eng *engine.Engine, h Hotel, users map[string]string, res *Result) error {
	sys := engine.SystemPrincipal

	tiers := make([]payout.Tier, 0, len(h.BonusTiers))
	for _, t := range h.BonusTiers {
		tiers = append(tiers, payout.Tier{Threshold: t.Threshold, FixedBonus: t.FixedBonus, BonusBps: t.BonusBps})
	}
	_, err := eng.CreateHotel(ctx, hotel.Hotel{
		ID:              h.ID,
		Name:            h.Name,
		Address:         h.Address,
		Timezone:        h.Timezone,
		Currency:        h.Currency,
		ShareBps:        h.ShareBps,
		CleaningChannel: h.CleaningChannel,
		BonusTiers:      tiers,
	}, sys)
	if err != nil {
		return err
	}

	for _, r := range h.Rooms {
		if _, err := eng.CreateRoom(ctx, engine.RoomInput{ID: r.ID, HotelID: h.ID, Label: r.Label, Floor: r.Floor}, sys); err != nil {
			return fmt.Errorf("room %s: %w", r.Label, err)
		}
		res.Rooms++
	}

	categories := make(map[string]string, len(h.Categories))
	for _, name := range h.Categories {
		c, err := eng.CreateCategory(ctx, h.ID, name, sys)
		if err != nil {
			return fmt.Errorf("category %s: %w", name, err)
		}
		categories[name] = c.ID
	}
	for _, p := range h.Products {
		categoryID, ok := categories[p.Category]
		if p.Category != "" && !ok {
			return fmt.Errorf("product %s: unknown category %q", p.Name, p.Category)
		}
		_, err := eng.CreateProduct(ctx, engine.ProductInput{
			ID:               p.ID,
			HotelID:          h.ID,
			CategoryID:       categoryID,
			Name:             p.Name,
			Unit:             p.Unit,
			CostPrice:        p.CostPrice,
			SellPrice:        p.SellPrice,
			Stock:            p.Stock,
			ReorderThreshold: p.ReorderThreshold,
		}, sys)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.Name, err)
		}
		res.Products++
	}

	for _, s := range h.Staff {
		userID, ok := users[s.User]
		if !ok {
			return fmt.Errorf("staff: unknown user %q", s.User)
		}
		_, err := eng.AssignManager(ctx, engine.AssignInput{
			HotelID:  h.ID,
			UserID:   userID,
			Role:     hotel.Role(s.Role),
			PIN:      s.PIN,
			ShiftPay: s.ShiftPay,
			ShareBps: s.ShareBps,
		}, sys)
		if err != nil {
			return fmt.Errorf("staff %s: %w", s.User, err)
		}
	}

	if h.Activity != nil {
		return applyActivity(ctx, eng, h.ID, *h.Activity, users, res)
	}
	return nil
}

func applyActivity(ctx context.Context, eng *engine.Engine, hotelID string, a Activity, users map[string]string, res *Result) error {
	managerID, ok := users[a.Manager]
	if !ok {
		return fmt.Errorf("activity: unknown manager %q", a.Manager)
	}
	p := hotel.Principal{UserID: managerID, Role: hotel.RoleManager, HotelIDs: []string{hotelID}}

	shift, err := eng.OpenShift(ctx, engine.OpenShiftInput{HotelID: hotelID, OpeningCash: a.OpeningCash}, p)
	if err != nil {
		return fmt.Errorf("open shift: %w", err)
	}
	res.Shifts++

	for _, c := range a.CheckIns {
		ci, err := eng.CheckIn(ctx, engine.CheckInInput{
			RoomID:    c.Room,
			ShiftID:   shift.ID,
			GuestName: c.Guest,
			Payment:   engine.Payment{Method: c.Method, Amount: c.Amount, Cash: c.Cash, Card: c.Card},
		}, p)
		if err != nil {
			return fmt.Errorf("check-in %s: %w", c.Room, err)
		}
		res.Entries += len(ci.Entries)
	}
	for _, s := range a.Sales {
		_, err := eng.RecordSale(ctx, engine.SaleInput{
			ShiftID:   shift.ID,
			ProductID: s.Product,
			Quantity:  s.Quantity,
			Method:    hotel.PaymentMethod(s.Method),
		}, p)
		if err != nil {
			return fmt.Errorf("sale %s: %w", s.Product, err)
		}
		res.Entries++
	}
	for _, e := range a.Ledger {
		_, err := eng.RecordLedgerEntry(ctx, engine.LedgerInput{
			HotelID: hotelID,
			ShiftID: shift.ID,
			Type:    hotel.EntryType(e.Type),
			Method:  hotel.PaymentMethod(e.Method),
			Amount:  e.Amount,
			Note:    e.Note,
		}, p)
		if err != nil {
			return fmt.Errorf("ledger entry: %w", err)
		}
		res.Entries++
	}
	return nil
}
