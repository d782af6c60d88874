package session_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/studio/pkg/adapters/memory"
	redisadapter "github.com/aretw0/studio/pkg/adapters/redis"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/aretw0/studio/pkg/session"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SnapshotStore = (*session.Manager)(nil)

// slowStore records the peak number of concurrent saves.
type slowStore struct {
	ports.SnapshotStore
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowStore) Save(ctx context.Context, id string, entries []domain.JournalEntry) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return s.SnapshotStore.Save(ctx, id, entries)
}

func TestManager_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, session.NewManager(memory.NewStore()))
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		sid := fmt.Sprintf("session-%d", i)
		require.NoError(t, mgr.Save(ctx, sid, []domain.JournalEntry{{ID: 0, Parent: -1}}))
		require.NoError(t, mgr.Delete(ctx, sid))
	}

	assert.Equal(t, 0, mgr.Active(), "idle sessions must not keep a lock entry")
}

func TestManager_SerializesSameSession(t *testing.T) {
	store := &slowStore{SnapshotStore: memory.NewStore()}
	mgr := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries := []domain.JournalEntry{{ID: 0, Parent: -1, Message: fmt.Sprint(i)}}
			assert.NoError(t, mgr.Save(ctx, "shared", entries))
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, store.peak.Load())
	assert.Equal(t, 0, mgr.Active())
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := redisadapter.NewLocker(client, "test:")
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker, time.Minute))
	entries := []domain.JournalEntry{{ID: 0, Parent: -1, Message: "session start"}}
	require.NoError(t, mgr.Save(context.Background(), "s1", entries))

	// Another process is writing s1.
	unlock, err := locker.Lock(context.Background(), "op:s1", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	err = mgr.Save(ctx, "s1", entries)
	assert.ErrorIs(t, err, redisadapter.ErrLockAcquire)

	loaded, err := mgr.Load(context.Background(), "s1")
	require.NoError(t, err, "reads do not wait for the distributed lock")
	assert.Equal(t, entries, loaded)

	require.NoError(t, unlock(context.Background()))
	assert.NoError(t, mgr.Save(context.Background(), "s1", entries))
}
