package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apex/log"

	"github.com/franckalain/riceguard/internal/models"
)

// Authenticator is the account side of the backend
type Authenticator interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
}

// SessionStore records the outcome of a login
type SessionStore interface {
	Start(ctx context.Context, auth models.AuthResponse) error
	End(ctx context.Context) error
}

// Shell runs the sign-in, sign-up and sign-out flows
type Shell struct {
	api     Authenticator
	session SessionStore

	mu   sync.Mutex
	busy int
}

// NewShell creates a shell that signs in through api and records the
// outcome in session
func NewShell(api Authenticator, session SessionStore) *Shell {
	return &Shell{api: api, session: session}
}

// Busy reports whether a login or sign-up is in flight
func (s *Shell) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy > 0
}

func (s *Shell) begin() func() {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.busy--
		s.mu.Unlock()
	}
}

// Login validates the form, signs in and starts the session
func (s *Shell) Login(ctx context.Context, email, password string) (*models.User, error) {
	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}
	defer s.begin()()

	return s.login(ctx, strings.TrimSpace(email), password)
}

func (s *Shell) login(ctx context.Context, email, password string) (*models.User, error) {
	auth, err := s.api.Login(ctx, email, password)
	if err != nil {
		log.WithError(err).WithField("email", email).Warn("auth.login.failed")
		return nil, err
	}
	if err := s.session.Start(ctx, *auth); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	log.WithField("email", email).Info("auth.login.done")
	return &auth.User, nil
}

// Signup validates the form, registers the account and signs it in. The
// display name is derived from the email's local part.
func (s *Shell) Signup(ctx context.Context, email, password, confirm string) (*models.User, error) {
	if err := ValidateSignup(email, password, confirm); err != nil {
		return nil, err
	}
	defer s.begin()()

	email = strings.TrimSpace(email)
	if _, err := s.api.Register(ctx, DisplayName(email), email, password); err != nil {
		log.WithError(err).WithField("email", email).Warn("auth.register.failed")
		return nil, err
	}
	log.WithField("email", email).Info("auth.register.done")
	return s.login(ctx, email, password)
}

// Logout ends the session
func (s *Shell) Logout(ctx context.Context) error {
	return s.session.End(ctx)
}

// DisplayName is the part of email before the "@", or "User"
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "User"
	}
	return local
}
