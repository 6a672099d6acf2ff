// Package auth issues and validates principal tokens and hashes secrets.
//
// A token is a signed snapshot of the principal (user, role, hotels) taken
// at login. Assignment changes made afterwards are not visible until the
// token is re-issued; TTL bounds that window.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/hotel-backoffice/hotel"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role     string   `json:"role"`
	HotelIDs []string `json:"hotels,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts validated claims into the engine's principal.
func (c *Claims) Principal() hotel.Principal {
	return hotel.Principal{UserID: c.Subject, Role: hotel.Role(c.Role), HotelIDs: c.HotelIDs}
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "hotel-backoffice"
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for p. It returns the token and its expiry.
func (tm *TokenManager) Issue(p hotel.Principal) (string, time.Time, error) {
	if p.UserID == "" || !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("user id and a valid role required")
	}
	now := tm.now()
	exp := now.Add(tm.ttl)
	claims := Claims{
		Role:     string(p.Role),
		HotelIDs: p.HotelIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	return signed, exp, err
}

func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || !hotel.Role(claims.Role).Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
