// Package auth resolves who is making a request: password login, session
// tokens and the gin middleware that attaches the actor to a request.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
)

// ErrNoSession means the token is missing, malformed, expired or revoked.
var ErrNoSession = errors.New("session missing or expired")

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type sessionEntry struct {
	userID    string
	expiresAt time.Time
}

// Manager issues and resolves sessions. The session table lives in process
// memory, so a restart logs everybody out.
type Manager struct {
	store  repository.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	// dummyHash is compared against when the username is unknown so both
	// failure paths pay the same bcrypt cost.
	dummyHash string

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type Option func(*Manager)

// WithClock overrides time.Now for token issue and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager. An empty secret is replaced by a random key.
func NewManager(store repository.Store, secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}

	dummy, err := HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	m := &Manager{
		store:     store,
		secret:    key,
		ttl:       ttl,
		now:       time.Now,
		dummyHash: dummy,
		sessions:  make(map[string]sessionEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Login checks the credentials and opens a session. Unknown usernames and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := repository.FindUserByUsername(ctx, m.store, username)
	if errors.Is(err, domain.ErrNotFound) {
		CheckPassword(m.dummyHash, password)
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login lookup: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return Session{}, domain.ErrInvalidCredentials
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	sid := uuid.NewString()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	m.mu.Lock()
	m.pruneLocked(now)
	m.sessions[sid] = sessionEntry{userID: u.ID, expiresAt: expiresAt}
	m.mu.Unlock()

	return Session{Token: token, User: u, ExpiresAt: expiresAt}, nil
}

// Resolve maps a token to the current user record. The user is re-read from
// the store on every call so permission changes apply immediately.
func (m *Manager) Resolve(ctx context.Context, token string) (domain.User, error) {
	c, err := m.parse(token)
	if err != nil {
		return domain.User{}, ErrNoSession
	}

	m.mu.Lock()
	entry, ok := m.sessions[c.SessionID]
	m.mu.Unlock()
	if !ok || entry.userID != c.Subject || !m.now().Before(entry.expiresAt) {
		return domain.User{}, ErrNoSession
	}

	u, err := m.store.GetUser(ctx, entry.userID)
	if errors.Is(err, domain.ErrNotFound) {
		m.revoke(c.SessionID)
		return domain.User{}, ErrNoSession
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve session: %w", err)
	}
	return u, nil
}

// Logout drops the session. Unknown or invalid tokens are ignored.
func (m *Manager) Logout(token string) {
	c, err := m.parse(token)
	if err != nil {
		return
	}
	m.revoke(c.SessionID)
}

// ActiveSessions reports how many sessions are currently open.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	return len(m.sessions)
}

func (m *Manager) parse(token string) (*claims, error) {
	c := &claims{}
	t, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !t.Valid || c.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

func (m *Manager) revoke(sid string) {
	m.mu.Lock()
	delete(m.sessions, sid)
	m.mu.Unlock()
}

func (m *Manager) pruneLocked(now time.Time) {
	for sid, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, sid)
		}
	}
}
