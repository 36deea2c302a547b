// Package auth issues and validates portal session tokens. Sessions live
// in process memory and are keyed by the SHA-256 of the opaque token, so a
// server restart invalidates every session but the plaintext never sits in
// a table.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/org/svnportal/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const tokenPrefix = "svp_"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Session binds a token hash to a user for a limited time.
type Session struct {
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service manages login and session validation.
type Service struct {
	mu       sync.Mutex
	sessions map[string]Session // keyed by token hash
	ttl      time.Duration
}

// NewService creates a session Service with the given session lifetime.
func NewService(ttl time.Duration) *Service {
	return &Service{sessions: make(map[string]Session), ttl: ttl}
}

// Login verifies the password against the snapshot and returns a fresh
// session token. The plaintext is shown once to the caller.
func (s *Service) Login(snap *models.Snapshot, username, password string) (string, error) {
	user := snap.UserByUsername(username)
	if user == nil || !user.Active || user.PasswordHash == "" {
		// Burn comparable time so unknown users are not distinguishable.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uD1uyCTtIQ0M4zW7yMrcu/kQwsqadVW"), []byte(password)) //nolint:errcheck
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	plaintext := tokenPrefix + base64.RawURLEncoding.EncodeToString(raw)
	now := time.Now().UTC()

	s.mu.Lock()
	s.sessions[hashToken(plaintext)] = Session{
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()
	return plaintext, nil
}

// Validate resolves a plaintext token to the owning user id.
func (s *Service) Validate(plaintext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[hashToken(plaintext)]
	if !ok {
		return "", ErrInvalidSession
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.sessions, hashToken(plaintext))
		return "", ErrInvalidSession
	}
	return sess.UserID, nil
}

// Logout discards the session, if any.
func (s *Service) Logout(plaintext string) {
	s.mu.Lock()
	delete(s.sessions, hashToken(plaintext))
	s.mu.Unlock()
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
