// Package session holds the caller's authentication state explicitly instead
// of reading a token from ambient storage. Lifecycle: Init, Refresh, Clear.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed bearer token")

type Session struct {
	mu      sync.RWMutex
	token   string
	subject string
	expires time.Time
	now     func() time.Time
}

// Guest returns a session without credentials.
func Guest() *Session {
	return &Session{now: time.Now}
}

// Init starts a session from a raw token. An empty token yields a guest session.
func Init(token string) (*Session, error) {
	s := Guest()

	if err := s.Refresh(token); err != nil {
		return nil, err
	}

	return s, nil
}

// FromAuthorizationHeader accepts "Bearer <token>". Anything else is a guest.
func FromAuthorizationHeader(header string) (*Session, error) {
	const prefix = "bearer "

	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Guest(), nil
	}

	return Init(strings.TrimSpace(header[len(prefix):]))
}

// Refresh swaps the token, e.g. after the backend re-validated the user.
// Claims are read without signature verification; the backend verifies.
func (s *Session) Refresh(token string) error {
	token = strings.TrimSpace(token)

	var (
		subject string
		expires time.Time
	)

	if token != "" {
		claims := jwt.MapClaims{}

		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return fmt.Errorf("parse token claims: %w", ErrMalformedToken)
		}

		if sub, err := claims.GetSubject(); err == nil {
			subject = sub
		}

		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expires = exp.Time
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.subject = subject
	s.expires = expires

	return nil
}

// Clear drops the credentials (logout or a 401 from the backend).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.subject = ""
	s.expires = time.Time{}
}

// Token returns the bearer token, or "" for guests and expired sessions.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return ""
	}

	if !s.expires.IsZero() && !s.now().Before(s.expires) {
		return ""
	}

	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) Subject() string {
	if s == nil {
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.subject
}
