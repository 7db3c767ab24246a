package workpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/backyonatan-alt/partnersync/internal/workpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const capacity = 3
	pool := workpool.New(capacity)
	defer pool.Close()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Do(context.Background(), func(context.Context) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(capacity))
	assert.Positive(t, peak.Load())
	assert.Equal(t, capacity, pool.Capacity())
}

func TestPool_Close(t *testing.T) {
	t.Parallel()

	t.Run("waits for running tasks", func(t *testing.T) {
		t.Parallel()

		pool := workpool.New(1)
		started := make(chan struct{})
		var finished atomic.Bool
		go func() {
			_ = pool.Do(context.Background(), func(context.Context) {
				close(started)
				time.Sleep(20 * time.Millisecond)
				finished.Store(true)
			})
		}()
		<-started

		pool.Close()
		assert.True(t, finished.Load())
	})

	t.Run("rejects tasks after close", func(t *testing.T) {
		t.Parallel()

		pool := workpool.New(1)
		pool.Close()

		ran := false
		err := pool.Do(context.Background(), func(context.Context) { ran = true })
		require.ErrorIs(t, err, workpool.ErrClosed)
		assert.False(t, ran)
	})
}

func TestPool_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	pool := workpool.New(1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Do(ctx, func(context.Context) { t.Error("task must not run") })
	require.ErrorIs(t, err, context.Canceled)

	close(release)
}

func TestNew_NonPositiveCapacity(t *testing.T) {
	t.Parallel()

	pool := workpool.New(0)
	defer pool.Close()
	assert.Equal(t, 1, pool.Capacity())
}
