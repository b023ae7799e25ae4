// Package session holds the authenticated agent's identity for the lifetime
// of the process. The bearer token is issued by the helpdesk auth service;
// the client only decodes its claims, it never verifies the signature (the
// server does that on every request).
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"deskline.app/chatsync/internal/model"
)

var ErrLoggedOut = errors.New("session cleared")

// User is the identity carried in the bearer token.
type User struct {
	ID    string
	Name  string
	Email string
	Role  model.Role
}

type claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// FromToken decodes the identity claims from a bearer JWT without verifying
// the signature.
func FromToken(token string) (User, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return User{}, fmt.Errorf("parsing token: %w", err)
	}
	if c.Subject == "" {
		return User{}, fmt.Errorf("token has no subject claim")
	}
	return User{
		ID:    c.Subject,
		Name:  c.Name,
		Email: c.Email,
		Role:  model.Role(c.Role),
	}, nil
}

// Source exposes the current token and user, and supports clearing the
// session when the server rejects the token (HTTP 401).
type Source struct {
	mu      sync.Mutex
	token   string
	user    User
	cleared bool
}

func NewSource(token string) (*Source, error) {
	user, err := FromToken(token)
	if err != nil {
		return nil, err
	}
	return &Source{token: token, user: user}, nil
}

// Token returns the bearer token, or "" once the session has been cleared.
func (s *Source) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared {
		return ""
	}
	return s.token
}

func (s *Source) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Clear drops the persisted token. Subsequent calls through the request
// client fail with an authentication error until a new session is created.
func (s *Source) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	s.token = ""
}

func (s *Source) Cleared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}
