package convstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/notesbot/internal/model"
)

func pendingState() State {
	return State{
		Flow:    FlowAwaitingNoteCategory,
		Pending: &Pending{CaptureID: "c-1", Kind: model.ContentForwarded, Content: "Milk"},
	}
}

func TestMemoryStoreDefaultsToIdle(t *testing.T) {
	m, err := NewMemoryStore(0)
	require.NoError(t, err)

	st, err := m.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, Idle(), st)
}

func TestMemoryStoreSetGetClear(t *testing.T) {
	m, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, 1, pendingState()))
	st, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, pendingState(), st)

	// other users are unaffected
	other, err := m.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, FlowIdle, other.Flow)

	require.NoError(t, m.Clear(ctx, 1))
	st, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Idle(), st)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	m, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, 1, pendingState()))
	st, err := m.Get(ctx, 1)
	require.NoError(t, err)
	st.Pending.Content = "changed"

	again, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Milk", again.Pending.Content)
}

func TestMemoryStoreRejectsInvalidStates(t *testing.T) {
	m, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	invalid := []State{
		{Flow: "deleting_everything"},
		{Flow: FlowAwaitingNoteCategory},
		{Flow: FlowAwaitingCategoryName, Pending: &Pending{CaptureID: "c", Kind: model.ContentText}},
		{Flow: FlowAwaitingNoteCategory, Pending: &Pending{CaptureID: "c", Kind: "photo"}},
	}
	require.NoError(t, m.Set(ctx, 1, State{Flow: FlowAwaitingCategoryName}))
	for _, st := range invalid {
		require.ErrorIs(t, m.Set(ctx, 1, st), ErrInvalidState)
	}
	got, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, FlowAwaitingCategoryName, got.Flow)
}

func TestMemoryStoreEvictionFallsBackToIdle(t *testing.T) {
	m, err := NewMemoryStore(2)
	require.NoError(t, err)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, m.Set(ctx, id, State{Flow: FlowAwaitingCategoryName}))
	}
	st, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, FlowIdle, st.Flow)
}

func TestMemoryStoreLockSerializesPerUser(t *testing.T) {
	m, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, 7)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, m.locks.size())
}

func TestMemoryStoreLockTimesOut(t *testing.T) {
	m, err := NewMemoryStore(8)
	require.NoError(t, err)

	unlock, err := m.Lock(context.Background(), 7)
	require.NoError(t, err)
	defer unlock()

	// a different user is not blocked
	otherUnlock, err := m.Lock(context.Background(), 8)
	require.NoError(t, err)
	otherUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, 7)
	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "lock", storeErr.Op)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryStoreUnlockIsIdempotent(t *testing.T) {
	m, err := NewMemoryStore(8)
	require.NoError(t, err)

	unlock, err := m.Lock(context.Background(), 7)
	require.NoError(t, err)
	unlock()
	unlock()

	again, err := m.Lock(context.Background(), 7)
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, m.locks.size())
}
