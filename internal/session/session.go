// Package session issues and verifies the signed tokens that carry the
// logged-in back-office user between requests.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/models"
)

// CookieName is the HTTP-only cookie holding the session token
const CookieName = "session"

const contextKey = "session"

var ErrInvalidToken = errors.New("invalid or expired session")

// Session is the identity of the logged-in user
type Session struct {
	UserID    uint            `json:"id"`
	Username  string          `json:"username"`
	Role      models.UserRole `json:"role"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == models.UserRoleAdmin
}

// TrainerScope returns the trainer whose socios this session is limited to,
// or 0 for administrators.
func (s *Session) TrainerScope() uint {
	if s == nil || s.Role != models.UserRoleTrainer {
		return 0
	}
	return s.UserID
}

type claims struct {
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs sessions with HS256
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue starts a session for user and returns it with its signed token
func (m *Manager) Issue(user *models.User) (string, *Session, error) {
	now := m.now()
	sess := &Session{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: sess.Username,
		Role:     sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, sess, nil
}

// Parse verifies a token and returns its session
func (m *Manager) Parse(tokenString string) (*Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || !c.Role.Valid() {
		return nil, ErrInvalidToken
	}

	sess := &Session{UserID: uint(id), Username: c.Username, Role: c.Role}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess, nil
}

// Refreshed returns a copy of s carrying the account's current username
// and role. Tokens keep their expiry but never outrank the account.
func (s *Session) Refreshed(user *models.User) *Session {
	out := *s
	out.Username = user.Username
	out.Role = user.Role
	return &out
}

// Store attaches the session to the request context
func Store(c echo.Context, s *Session) {
	c.Set(contextKey, s)
}

// FromContext returns the session attached by the auth middleware, or nil
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}
