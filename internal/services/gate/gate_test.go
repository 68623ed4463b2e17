package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForWaiters polls until n callers are queued on key
func waitForWaiters(t *testing.T, g *Gate[string], key string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return g.Waiting(key) == n }, time.Second, time.Millisecond)
}

func TestAcquireUncontended(t *testing.T) {
	g := New[string]()

	release, err := g.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, g.Held("p1"))

	release()
	assert.False(t, g.Held("p1"))
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New[string]()
	release, _ := g.Acquire(context.Background(), "p1")
	release()
	release()

	// A second double-release must not hand ownership to anyone else
	r2, _ := g.Acquire(context.Background(), "p1")
	done := make(chan struct{})
	go func() {
		r3, _ := g.Acquire(context.Background(), "p1")
		close(done)
		r3()
	}()
	waitForWaiters(t, g, "p1", 1)
	release()
	select {
	case <-done:
		t.Fatal("stale release handed ownership to a waiter")
	case <-time.After(20 * time.Millisecond):
	}
	r2()
	<-done
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	g := New[string]()
	r1, _ := g.Acquire(context.Background(), "p1")
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := g.Acquire(ctx, "p2")
	require.NoError(t, err)
	r2()
}

func TestWaitersAreServedInArrivalOrder(t *testing.T) {
	g := New[string]()
	first, _ := g.Acquire(context.Background(), "p1")

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := g.Acquire(context.Background(), "p1")
			if err != nil {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			release()
		}(i)
		// Make arrival order deterministic
		waitForWaiters(t, g, "p1", i+1)
	}

	first()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.False(t, g.Held("p1"))
}

func TestMutualExclusion(t *testing.T) {
	g := New[string]()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background(), "p1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(100 * time.Microsecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestCancelledWaiterLeavesQueue(t *testing.T) {
	g := New[string]()
	holder, _ := g.Acquire(context.Background(), "p1")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := g.Acquire(ctx, "p1")
		errCh <- err
	}()
	waitForWaiters(t, g, "p1", 1)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, 0, g.Waiting("p1"))

	holder()
	assert.False(t, g.Held("p1"))
}
