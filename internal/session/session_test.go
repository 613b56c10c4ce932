package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/riceguard/internal/database"
	"github.com/franckalain/riceguard/internal/models"
)

func newTestStore(t *testing.T) *database.SQLiteDB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var ana = models.AuthResponse{
	AccessToken: "tok-ana",
	User:        models.User{ID: "u1", Name: "ana", Email: "ana@farm.ph"},
}

func TestStartPersistsAndInitRestores(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := New(store)
	require.NoError(t, s.Init(ctx))
	assert.False(t, s.Authenticated())

	require.NoError(t, s.Start(ctx, ana))
	assert.Equal(t, "tok-ana", s.Token())

	raw, ok, err := store.Get(ctx, UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"u1","name":"ana","email":"ana@farm.ph"}`, raw)

	restored := New(store)
	require.NoError(t, restored.Init(ctx))
	assert.True(t, restored.Authenticated())
	user, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, ana.User, user)
}

func TestEndClearsStorageAndNotifies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s := New(store)
	require.NoError(t, s.Start(ctx, ana))

	var events []bool
	s.Subscribe(func(authenticated bool) { events = append(events, authenticated) })
	var other int
	unsubscribe := s.Subscribe(func(bool) { other++ })

	require.NoError(t, s.End(ctx))
	unsubscribe()
	require.NoError(t, s.Start(ctx, ana))

	assert.Equal(t, []bool{false, true}, events)
	assert.Equal(t, 1, other)

	require.NoError(t, s.End(ctx))
	for _, key := range []string{TokenKey, UserKey} {
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	_, ok := s.User()
	assert.False(t, ok)
}

func TestInitDropsCorruptUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, TokenKey, "tok"))
	require.NoError(t, store.Set(ctx, UserKey, "{not json"))

	s := New(store)
	require.NoError(t, s.Init(ctx))
	assert.Equal(t, "tok", s.Token())
	_, ok := s.User()
	assert.False(t, ok)
}

// brokenStore fails every multi-key write
type brokenStore struct {
	*database.SQLiteDB
}

func (brokenStore) SetMany(context.Context, map[string]string) error {
	return errors.New("disk full")
}

func TestStartFailureLeavesSignedOut(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := New(brokenStore{store})
	var events []bool
	s.Subscribe(func(authenticated bool) { events = append(events, authenticated) })

	require.Error(t, s.Start(ctx, ana))
	assert.False(t, s.Authenticated())
	assert.Empty(t, events)

	restored := New(store)
	require.NoError(t, restored.Init(ctx))
	assert.False(t, restored.Authenticated())
	_, ok := restored.User()
	assert.False(t, ok)
}
