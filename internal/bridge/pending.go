package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/seantiz/snakebridge/internal/model"
)

// pendingCall is the bookkeeping for one call awaiting its reply.
type pendingCall struct {
	kind    model.Kind
	created time.Time

	mu       sync.Mutex
	state    string
	listener int
	seq      uint64
}

func newPendingCall(kind model.Kind) *pendingCall {
	return &pendingCall{
		kind:     kind,
		created:  time.Now(),
		state:    model.CallCreated,
		listener: -1,
	}
}

// transition moves the call to state to. It panics on an illegal transition:
// a terminal call being resolved twice is a bridge bug, not an engine fault.
func (p *pendingCall) transition(to string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !model.ValidCallTransition(p.state, to) {
		panic(fmt.Sprintf("bridge: pending %s call cannot go from %s to %s", p.kind, p.state, to))
	}
	p.state = to
}

func (p *pendingCall) listen(listener int) {
	p.mu.Lock()
	p.listener = listener
	p.mu.Unlock()
	p.transition(model.CallListening)
}

func (p *pendingCall) expect(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq = seq
}

// PendingInfo describes the call currently listening on a kind.
type PendingInfo struct {
	Kind     model.Kind `json:"kind"`
	State    string     `json:"state"`
	Listener int        `json:"listener"`
	Seq      uint64     `json:"seq"`
	Age      string     `json:"age"`
}

func (p *pendingCall) info() PendingInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PendingInfo{
		Kind:     p.kind,
		State:    p.state,
		Listener: p.listener,
		Seq:      p.seq,
		Age:      time.Since(p.created).Round(time.Millisecond).String(),
	}
}
