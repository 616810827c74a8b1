/*
session.go - Login sessions as signed bearer tokens

PURPOSE:
  Replaces the browser-era "currentUser global plus session storage" with
  an explicit session object: login issues an HS256-signed token carrying
  the user id, username and role; the auth middleware parses it, reloads
  the user and stashes it in the request context.

  The login check itself is a plain equality comparison against the
  stored password. That is a faithful placeholder, not a security
  boundary.
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ShuVe1/site-agreement/ledger"
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the user.
func (m *SessionManager) Issue(u ledger.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies the signature and expiry and returns the claims.
func (m *SessionManager) Parse(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// =============================================================================
// REQUEST CONTEXT
// =============================================================================

type ctxKey int

const userKey ctxKey = 0

func withUser(ctx context.Context, u *ledger.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the authenticated user stashed by the auth middleware.
func UserFrom(ctx context.Context) (*ledger.User, bool) {
	u, ok := ctx.Value(userKey).(*ledger.User)
	return u, ok
}
