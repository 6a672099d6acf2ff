package hotel

import "slices"

// Principal is the authenticated caller. It is a snapshot taken when the
// token was issued: hotel access changes apply only after a new token.
type Principal struct {
	UserID   string
	Role     Role
	HotelIDs []string
}

func (p Principal) IsAdmin() bool    { return p.Role == RoleAdmin }
func (p Principal) IsManager() bool  { return p.Role == RoleManager }
func (p Principal) IsObserver() bool { return p.Role == RoleObserver }

// AccessPolicy is the decision function the engine consults.
type AccessPolicy interface {
	CanAccessHotel(p Principal, hotelID string) bool
	IsHotelAdmin(p Principal) bool
}

// DefaultAccess grants admins every hotel and everyone else the hotels
// listed on their principal.
type DefaultAccess struct{}

func (DefaultAccess) CanAccessHotel(p Principal, hotelID string) bool {
	if p.UserID == "" {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return slices.Contains(p.HotelIDs, hotelID)
}

func (DefaultAccess) IsHotelAdmin(p Principal) bool { return p.IsAdmin() }
