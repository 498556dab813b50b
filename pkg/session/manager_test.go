package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/aretw0/recalc/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency to provoke race conditions if locking is missing.
type slowStore struct {
	mu   sync.Mutex
	data map[string]*domain.EvaluationResult
}

func (s *slowStore) Save(ctx context.Context, r *domain.EvaluationResult) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.EvaluationResult)
	}
	s.data[r.SessionID] = r
	return nil
}

func (s *slowStore) Load(ctx context.Context, id string) (*domain.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.data[id]; ok {
		return r, nil
	}
	return nil, domain.ErrResultNotFound
}

func (s *slowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *slowStore) List(ctx context.Context) ([]string, error) { return nil, nil }

func TestManager_SerializesPerSession(t *testing.T) {
	mgr := session.NewManager(&slowStore{})
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "same", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestManager_Results(t *testing.T) {
	mgr := session.NewManager(&slowStore{})
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, &domain.EvaluationResult{SessionID: "s1", WorkbookID: "wb"}))
	got, err := mgr.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "wb", got.WorkbookID)

	require.NoError(t, mgr.Delete(ctx, "s1"))
	_, err = mgr.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestManager_LiveSessions(t *testing.T) {
	mgr := session.NewManager(&slowStore{})

	require.NoError(t, mgr.Register("b", &session.Entry{WorkbookID: "wb"}))
	require.NoError(t, mgr.Register("a", &session.Entry{WorkbookID: "wb"}))
	assert.ErrorIs(t, mgr.Register("a", &session.Entry{}), domain.ErrSessionExists)
	assert.Equal(t, []string{"a", "b"}, mgr.Active())

	e, err := mgr.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "wb", e.WorkbookID)

	mgr.Remove("b")
	_, err = mgr.Get("b")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, []string{"a"}, mgr.Active())
}

type fakeLocker struct {
	locked   []string
	unlocked int
	fail     bool
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail {
		return nil, errors.New("busy")
	}
	l.locked = append(l.locked, key)
	return func(context.Context) error {
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &fakeLocker{}
	mgr := session.NewManager(&slowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	called := false
	require.NoError(t, mgr.WithLock(ctx, "s1", func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)

	locker.fail = true
	err := mgr.WithLock(ctx, "s1", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorContains(t, err, "distributed lock")
}
