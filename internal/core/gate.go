package core

import (
	"context"
	"sync"
)

// Gate coordinates store readers with destructive maintenance. Any number of
// shared holders may be inside at once; an exclusive holder is alone. Waiting
// exclusive holders block new shared entries so maintenance cannot starve.
// All waits give up when their context is cancelled.
type Gate struct {
	mu             sync.Mutex
	cond           *sync.Cond
	shared         int
	exclusive      bool
	waitingWriters int
}

// NewGate creates an open Gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Enter acquires shared access. Returns false if ctx ended first.
func (g *Gate) Enter(ctx context.Context) bool {
	stop := g.wakeOnDone(ctx)
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.exclusive || g.waitingWriters > 0 {
		if ctx.Err() != nil {
			return false
		}
		g.cond.Wait()
	}
	if ctx.Err() != nil {
		return false
	}
	g.shared++
	return true
}

// Leave releases shared access.
func (g *Gate) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shared > 0 {
		g.shared--
	}
	g.cond.Broadcast()
}

// Lock acquires exclusive access. Returns false if ctx ended first.
func (g *Gate) Lock(ctx context.Context) bool {
	stop := g.wakeOnDone(ctx)
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.waitingWriters++
	defer func() { g.waitingWriters-- }()
	for g.exclusive || g.shared > 0 {
		if ctx.Err() != nil {
			g.cond.Broadcast()
			return false
		}
		g.cond.Wait()
	}
	if ctx.Err() != nil {
		g.cond.Broadcast()
		return false
	}
	g.exclusive = true
	return true
}

// Unlock releases exclusive access.
func (g *Gate) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exclusive = false
	g.cond.Broadcast()
}

// Busy reports whether an exclusive holder is inside or waiting.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exclusive || g.waitingWriters > 0
}

// wakeOnDone broadcasts when ctx ends so blocked waiters re-check it.
func (g *Gate) wakeOnDone(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.cond.Broadcast()
	})
}
