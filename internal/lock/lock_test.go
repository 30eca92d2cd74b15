package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Exclusive(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Lock(ctx, "u1/doc-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	r1, err := km.Lock(ctx, "a")
	require.NoError(t, err)
	r2, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, km.Len())

	r1()
	r1()
	r2()
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	km := NewKeyedMutex()
	release, err := km.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = km.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, km.Len())
}

// fakeRedis emulates SET NX and the compare-and-delete release script.
type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{keys: map[string]string{}} }

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0] {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	fr := newFakeRedis()
	l := NewRedisLocker(fr, time.Minute, 100*time.Millisecond)
	ctx := context.Background()

	release, err := l.Lock(ctx, "u1/doc-1")
	require.NoError(t, err)
	assert.Contains(t, fr.keys, "doccatalog:lock:u1/doc-1")

	_, err = l.Lock(ctx, "u1/doc-1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release()
	assert.Empty(t, fr.keys)

	release, err = l.Lock(ctx, "u1/doc-1")
	require.NoError(t, err)
	release()
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	fr := newFakeRedis()
	l := NewRedisLocker(fr, time.Minute, 100*time.Millisecond)

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Lease expired and was taken by another instance.
	fr.keys["doccatalog:lock:k"] = "someone-else"
	release()
	assert.Equal(t, "someone-else", fr.keys["doccatalog:lock:k"])
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	fr := newFakeRedis()
	l := NewRedisLocker(fr, time.Minute, time.Second)

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	r2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	r2()
}

func TestRedisLocker_Errors(t *testing.T) {
	fr := newFakeRedis()
	fr.err = assert.AnError
	l := NewRedisLocker(fr, time.Minute, time.Second)

	_, err := l.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, assert.AnError)

	fr.err = nil
	held, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer held()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
