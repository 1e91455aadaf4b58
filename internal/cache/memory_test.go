package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance store time deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestStoreServesFreshWithoutReload(t *testing.T) {
	store := NewStore[int]()
	clock := newFakeClock()
	store.SetClock(clock.Now)

	var loads int32
	load := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&loads, 1)
		return 42, nil
	}

	for i := 0; i < 5; i++ {
		v, stale, err := store.Get(context.Background(), "k", time.Minute, load)
		require.NoError(t, err)
		assert.False(t, stale)
		assert.Equal(t, 42, v)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}

func TestStoreReloadsAfterTTL(t *testing.T) {
	store := NewStore[int]()
	clock := newFakeClock()
	store.SetClock(clock.Now)

	var loads int32
	load := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&loads, 1)), nil
	}

	v, _, err := store.Get(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(61 * time.Second)

	v, stale, err := store.Get(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, 2, v)
}

func TestStoreServesStaleOnLoadFailure(t *testing.T) {
	store := NewStore[string]()
	clock := newFakeClock()
	store.SetClock(clock.Now)

	_, _, err := store.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
		return "first", nil
	})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	boom := errors.New("upstream down")
	v, stale, err := store.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, stale)
	assert.Equal(t, "first", v)
}

func TestStoreColdStartFailure(t *testing.T) {
	store := NewStore[string]()

	boom := errors.New("upstream down")
	v, stale, err := store.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, stale)
	assert.Empty(t, v)
	assert.Equal(t, 0, store.Len())
}

func TestStoreRecoversAfterFailure(t *testing.T) {
	store := NewStore[int]()
	clock := newFakeClock()
	store.SetClock(clock.Now)

	ctx := context.Background()
	ttl := time.Minute

	_, _, err := store.Get(ctx, "k", ttl, func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, stale, err := store.Get(ctx, "k", ttl, func(ctx context.Context) (int, error) {
		return 0, errors.New("blip")
	})
	require.Error(t, err)
	assert.True(t, stale)

	// A later successful refresh replaces the stale entry.
	v, stale, err := store.Get(ctx, "k", ttl, func(ctx context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, 2, v)
}

func TestStoreSingleflightDedup(t *testing.T) {
	store := NewStore[int]()

	var loads int32
	started := make(chan struct{})
	release := make(chan struct{})

	load := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			close(started)
		}
		<-release
		return 7, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := store.Get(context.Background(), "k", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	// All callers are either blocked on the flight or about to join it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestStoreKeysAreIndependent(t *testing.T) {
	store := NewStore[string]()

	ctx := context.Background()
	a, _, err := store.Get(ctx, "a", time.Minute, func(ctx context.Context) (string, error) { return "A", nil })
	require.NoError(t, err)
	b, _, err := store.Get(ctx, "b", time.Minute, func(ctx context.Context) (string, error) { return "B", nil })
	require.NoError(t, err)

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, 2, store.Len())

	v, ok := store.Peek("a")
	require.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = store.Peek("missing")
	assert.False(t, ok)
}

func TestStoreAge(t *testing.T) {
	store := NewStore[int]()
	clock := newFakeClock()
	store.SetClock(clock.Now)

	_, _, err := store.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	clock.Advance(45 * time.Second)

	age, ok := store.Age("k")
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, age)

	_, ok = store.Age("missing")
	assert.False(t, ok)
}
