package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "riceguard-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGetMissingKey(t *testing.T) {
	db := newTestDB(t)

	v, ok, err := db.Get(context.Background(), "rg_token")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSetOverwritesAndDeleteRemoves(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "rg_token", "first"))
	require.NoError(t, db.Set(ctx, "rg_token", "second"))
	require.NoError(t, db.Set(ctx, "rg_user", `{"id":"1"}`))

	v, ok, err := db.Get(ctx, "rg_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, db.Delete(ctx, "rg_token", "rg_user", "never_set"))

	_, ok, err = db.Get(ctx, "rg_token")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = db.Get(ctx, "rg_user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	db, err := NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "rg_token", "persisted"))
	require.NoError(t, db.Close())

	db, err = NewSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.Get(ctx, "rg_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestSetManyWritesAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetMany(ctx, map[string]string{"rg_token": "tok", "rg_user": `{"id":"1"}`}))
	v, ok, err := db.Get(ctx, "rg_user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, v)

	require.NoError(t, db.Delete(ctx, "rg_token", "rg_user"))
	_, err = db.db.Exec(`
		CREATE TRIGGER reject_user BEFORE INSERT ON local_storage
		WHEN NEW.key = 'rg_user'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	err = db.SetMany(ctx, map[string]string{"rg_token": "tok", "rg_user": `{"id":"1"}`})
	require.Error(t, err)

	_, ok, err = db.Get(ctx, "rg_token")
	require.NoError(t, err)
	assert.False(t, ok, "token must be rolled back with the user")
}
