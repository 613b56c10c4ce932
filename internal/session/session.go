// Package session owns the signed-in user's token and profile. It is the
// only reader and writer of the persisted credentials; other components get
// a *Session injected.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/apex/log"

	"github.com/franckalain/riceguard/internal/database"
	"github.com/franckalain/riceguard/internal/models"
)

// Keys under which the session is persisted
const (
	TokenKey = "rg_token"
	UserKey  = "rg_user"
)

// Session is the process-wide authentication state
type Session struct {
	store database.DB

	mu          sync.RWMutex
	token       string
	user        *models.User
	nextID      int
	subscribers map[int]func(authenticated bool)
}

// New creates a signed-out session backed by store. Call Init to restore a
// previously persisted one.
func New(store database.DB) *Session {
	return &Session{store: store, subscribers: map[int]func(bool){}}
}

// Init restores the persisted token and user. A corrupt user record is
// dropped rather than failing start-up.
func (s *Session) Init(ctx context.Context) error {
	token, _, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("reading session token: %w", err)
	}
	raw, ok, err := s.store.Get(ctx, UserKey)
	if err != nil {
		return fmt.Errorf("reading session user: %w", err)
	}

	var user *models.User
	if ok {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			log.WithError(err).Warn("session.user.corrupt")
		} else {
			user = &u
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	log.WithField("authenticated", token != "").Debug("session.init")
	return nil
}

// Start persists a successful login and notifies subscribers
func (s *Session) Start(ctx context.Context, auth models.AuthResponse) error {
	userJSON, err := json.Marshal(auth.User)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	// token and user are written together so Init never sees one without the other
	if err := s.store.SetMany(ctx, map[string]string{
		TokenKey: auth.AccessToken,
		UserKey:  string(userJSON),
	}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	user := auth.User
	s.mu.Lock()
	s.token = auth.AccessToken
	s.user = &user
	s.mu.Unlock()

	log.WithField("user", user.Email).Info("session.started")
	s.notify(auth.AccessToken != "")
	return nil
}

// End removes the persisted credentials and notifies every subscriber. The
// in-memory session is cleared even if storage fails.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	err := s.store.Delete(ctx, TokenKey, UserKey)
	log.Info("session.ended")
	s.notify(false)
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Token returns the access token, "" when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user's profile
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a token is held
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Subscribe registers fn to be told about sign-in and sign-out. The
// returned func removes it.
func (s *Session) Subscribe(fn func(authenticated bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(authenticated bool) {
	s.mu.RLock()
	fns := make([]func(bool), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(authenticated)
	}
}
