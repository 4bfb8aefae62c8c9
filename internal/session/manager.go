package session

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// credential holds a user's stored identity and bcrypt password hash.
type credential struct {
	user User
	hash string
}

// entry is an active session token entry.
type entry struct {
	user      User
	expiresAt time.Time
}

// Manager issues and resolves opaque session tokens for configured users.
type Manager struct {
	cookieName string
	ttl        time.Duration

	creds map[string]credential // email -> credential

	mu       sync.RWMutex
	sessions map[string]entry // token -> entry
}

// NewManager creates a session manager from a configuration string in the
// format "email1:hash1,email2:hash2". Each entry must contain exactly one
// colon separating the email from the bcrypt hash. User IDs are derived
// deterministically from the email via uuid.NewSHA1 so they are stable
// across restarts.
func NewManager(usersConfig, cookieName string, ttl time.Duration) (*Manager, error) {
	trimmed := strings.TrimSpace(usersConfig)
	if trimmed == "" {
		return nil, fmt.Errorf("session: users config must not be empty")
	}

	creds := make(map[string]credential)
	entries := strings.Split(trimmed, ",")

	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}

		// Split on the first colon only; bcrypt hashes contain '$' but
		// no additional colons in the email:hash format.
		idx := strings.Index(e, ":")
		if idx < 0 {
			return nil, fmt.Errorf("session: invalid entry format, expected email:hash")
		}

		email := e[:idx]
		hash := e[idx+1:]

		if email == "" || hash == "" {
			return nil, fmt.Errorf("session: email and hash must not be empty")
		}

		creds[email] = credential{
			user: User{
				ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(email)).String(),
				Email: email,
			},
			hash: hash,
		}
	}

	if len(creds) == 0 {
		return nil, fmt.Errorf("session: no valid user entries found")
	}

	return &Manager{
		cookieName: cookieName,
		ttl:        ttl,
		creds:      creds,
		sessions:   make(map[string]entry),
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login verifies the credentials and issues a new session token.
func (m *Manager) Login(email, password string) (string, *User, error) {
	cred, ok := m.creds[email]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.hash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}

	token := uuid.New().String()
	user := cred.user

	m.mu.Lock()
	m.sessions[token] = entry{
		user:      user,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()

	return token, &user, nil
}

// Logout invalidates the given session token. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// UserForToken resolves a session token to its user. Expired sessions are
// removed on access.
func (m *Manager) UserForToken(token string) (*User, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	m.mu.RLock()
	e, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, ErrSessionExpired
	}

	user := e.user
	return &user, nil
}

// UserFromRequest resolves the session cookie on the request to its user.
func (m *Manager) UserFromRequest(r *http.Request) (*User, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.UserForToken(cookie.Value)
}
