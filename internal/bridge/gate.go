package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/snakebridge/internal/model"
)

// gate serializes calls of one kind. Waiters are admitted in arrival order
// and leave the queue when their context ends. The gate also records the
// pending call that currently holds it.
type gate struct {
	kind model.Kind
	sem  *semaphore.Weighted

	mu      sync.Mutex
	pending *pendingCall
}

func newGate(kind model.Kind) *gate {
	return &gate{
		kind: kind,
		sem:  semaphore.NewWeighted(1),
	}
}

func (g *gate) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waiting := gateWaiting.WithLabelValues(string(g.kind))
	waiting.Inc()
	defer waiting.Dec()

	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	gateWaitDuration.WithLabelValues(string(g.kind)).Observe(time.Since(start).Seconds())
	return nil
}

func (g *gate) release() {
	g.sem.Release(1)
}

// hold records p as the call owning the gate. Only the gate holder may call it.
func (g *gate) hold(p *pendingCall) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		panic(fmt.Sprintf("bridge: %s gate already has a pending call", g.kind))
	}
	g.pending = p
}

func (g *gate) clear(p *pendingCall) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == p {
		g.pending = nil
	}
}

func (g *gate) current() *pendingCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}
