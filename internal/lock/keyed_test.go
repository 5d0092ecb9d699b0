package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedAcquireRelease(t *testing.T) {
	locks := NewKeyed()

	release, ok := locks.Acquire(context.Background(), "f1|2026-09-07", time.Second)
	require.True(t, ok)
	release()

	release, ok = locks.Acquire(context.Background(), "f1|2026-09-07", time.Second)
	require.True(t, ok)
	release()
}

func TestKeyedContention(t *testing.T) {
	locks := NewKeyed()

	release, ok := locks.Acquire(context.Background(), "slot", time.Second)
	require.True(t, ok)

	_, ok = locks.Acquire(context.Background(), "slot", 20*time.Millisecond)
	assert.False(t, ok)

	release()

	release2, ok := locks.Acquire(context.Background(), "slot", time.Second)
	require.True(t, ok)
	release2()
}

func TestKeyedDisjointKeysDoNotBlock(t *testing.T) {
	locks := NewKeyed()

	releaseA, ok := locks.Acquire(context.Background(), "f1|2026-09-07", time.Second)
	require.True(t, ok)
	defer releaseA()

	releaseB, ok := locks.Acquire(context.Background(), "f2|2026-09-07", 10*time.Millisecond)
	require.True(t, ok)
	releaseB()
}

func TestKeyedContextCancellation(t *testing.T) {
	locks := NewKeyed()

	release, ok := locks.Acquire(context.Background(), "slot", time.Second)
	require.True(t, ok)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = locks.Acquire(ctx, "slot", time.Minute)
	assert.False(t, ok)
}

func TestKeyedSerializesWriters(t *testing.T) {
	locks := NewKeyed()

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, ok := locks.Acquire(context.Background(), "shared", 5*time.Second)
			if !ok {
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}
