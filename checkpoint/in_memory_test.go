package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.CheckpointStore = (*InMemoryStore)(nil)

func TestInMemoryStore_GetMissing(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Get(context.Background(), "never-written")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestInMemoryStore_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Put(ctx, "s1", []byte("first"), map[string]string{"turn": "1"}))
	require.NoError(t, s.Put(ctx, "s1", []byte("second"), map[string]string{"turn": "2"}))

	cp, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(cp.Snapshot))
	assert.Equal(t, "2", cp.Metadata["turn"])
	assert.Equal(t, "s1", cp.SessionID)
	assert.False(t, cp.UpdatedAt.IsZero())
}

func TestInMemoryStore_CopiesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	buf := []byte("state")
	require.NoError(t, s.Put(ctx, "s1", buf, nil))
	buf[0] = 'X'

	cp, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "state", string(cp.Snapshot))

	cp.Snapshot[0] = 'Y'
	again, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "state", string(again.Snapshot))
}

func TestInMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Put(ctx, "s1", []byte("x"), nil))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestInMemoryStore_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			for j := 0; j < 10; j++ {
				assert.NoError(t, s.Put(ctx, id, []byte(fmt.Sprintf("%d", j)), nil))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		cp, err := s.Get(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		assert.Equal(t, "9", string(cp.Snapshot))
	}
}
