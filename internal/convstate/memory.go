package convstate

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultMemorySize bounds the number of users whose state is kept in memory.
const DefaultMemorySize = 10000

// MemoryStore keeps state in a bounded LRU. Evicted users fall back to Idle(),
// which abandons a flow nobody touched for a long time.
type MemoryStore struct {
	states *lru.Cache
	locks  *lockTable
}

// NewMemoryStore constructs an in-process store holding at most size users.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("convstate: memory store: %w", err)
	}
	return &MemoryStore{states: cache, locks: newLockTable()}, nil
}

// Get returns a copy of the stored state.
func (m *MemoryStore) Get(ctx context.Context, userID int64) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, &Error{Op: "get", Err: err}
	}
	v, ok := m.states.Get(userID)
	if !ok {
		return Idle(), nil
	}
	return clone(v.(State)), nil
}

// Set stores a copy of st.
func (m *MemoryStore) Set(ctx context.Context, userID int64, st State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "set", Err: err}
	}
	if st.Flow == FlowIdle {
		m.states.Remove(userID)
		return nil
	}
	m.states.Add(userID, clone(st))
	return nil
}

// Clear drops the user's state.
func (m *MemoryStore) Clear(ctx context.Context, userID int64) error {
	return m.Set(ctx, userID, Idle())
}

// Lock acquires the per-user lock.
func (m *MemoryStore) Lock(ctx context.Context, userID int64) (func(), error) {
	unlock, err := m.locks.acquire(ctx, userID)
	if err != nil {
		return nil, &Error{Op: "lock", Err: err}
	}
	return unlock, nil
}

func clone(st State) State {
	if st.Pending != nil {
		p := *st.Pending
		st.Pending = &p
	}
	return st
}

type userLock struct {
	sem  chan struct{}
	refs int
}

// lockTable hands out one mutex per user and forgets it once nobody holds or waits on it.
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int64]*userLock)}
}

func (t *lockTable) acquire(ctx context.Context, userID int64) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[userID]
	if !ok {
		l = &userLock{sem: make(chan struct{}, 1)}
		t.locks[userID] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		t.release(userID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			t.release(userID, l)
		})
	}, nil
}

func (t *lockTable) release(userID int64, l *userLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, userID)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
