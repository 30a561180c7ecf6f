package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/internal/sqlitedb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.CheckpointStore = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	require.NoError(t, err)
	return s
}

func TestStore_GetMissing(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "never-written")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "s1", []byte(`{"v":1}`), map[string]string{"node": "save_message"}))
	require.NoError(t, s.Put(ctx, "s1", []byte(`{"v":2}`), nil))

	cp, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(cp.Snapshot))
	assert.Empty(t, cp.Metadata)
	assert.False(t, cp.UpdatedAt.IsZero())

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM checkpoints`).Scan(&rows))
	assert.Equal(t, 1, rows, "one checkpoint per session")
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "s1", []byte("x"), map[string]string{"k": "v"}))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}
