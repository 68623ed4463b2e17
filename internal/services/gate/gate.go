// Package gate serializes work per key.
//
// A Gate hands out ownership of a key to one caller at a time, in the order
// the callers arrived. Ownership is passed directly from the releasing
// holder to the next waiter, so no later arrival can overtake a queued one.
package gate

import (
	"context"
	"sync"
)

// Gate is a keyed FIFO mutex
type Gate[K comparable] struct {
	mu     sync.Mutex
	queues map[K]*queue
}

// queue exists while a key is held; waiters are served from the front
type queue struct {
	waiters []chan struct{}
}

// New creates an empty gate
func New[K comparable]() *Gate[K] {
	return &Gate[K]{queues: make(map[K]*queue)}
}

// Acquire blocks until the caller owns key or ctx is done. The returned
// release function must be called exactly once ownership is no longer
// needed; extra calls are ignored.
func (g *Gate[K]) Acquire(ctx context.Context, key K) (func(), error) {
	g.mu.Lock()
	q, held := g.queues[key]
	if !held {
		g.queues[key] = &queue{}
		g.mu.Unlock()
		return g.releaser(key), nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	g.mu.Unlock()

	select {
	case <-ch:
		return g.releaser(key), nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.removeWaiter(key, ch) {
			g.mu.Unlock()
			return nil, ctx.Err()
		}
		g.mu.Unlock()
		// Ownership was handed over while we were giving up; pass it on.
		g.release(key)
		return nil, ctx.Err()
	}
}

// Waiting returns the number of callers queued behind the current holder
func (g *Gate[K]) Waiting(key K) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if q, ok := g.queues[key]; ok {
		return len(q.waiters)
	}
	return 0
}

// Held reports whether key currently has an owner
func (g *Gate[K]) Held(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.queues[key]
	return ok
}

func (g *Gate[K]) releaser(key K) func() {
	var once sync.Once
	return func() {
		once.Do(func() { g.release(key) })
	}
}

func (g *Gate[K]) release(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()

	q, ok := g.queues[key]
	if !ok {
		return
	}
	if len(q.waiters) == 0 {
		delete(g.queues, key)
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(next)
}

// removeWaiter must be called with g.mu held
func (g *Gate[K]) removeWaiter(key K, ch chan struct{}) bool {
	q, ok := g.queues[key]
	if !ok {
		return false
	}
	for i, w := range q.waiters {
		if w == ch {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}
