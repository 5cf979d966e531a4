package port

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when sending on a closed port.
var ErrClosed = errors.New("port closed")

// Message is a payload stamped with its 1-based position in the port's
// sequence.
type Message struct {
	Seq     uint64
	Payload []byte
}

// Inbound is a caller-to-engine port. Sends are accepted one at a time and
// numbered in acceptance order.
type Inbound struct {
	name  string
	mu    sync.Mutex
	seq   uint64
	queue chan Message

	closeOnce sync.Once
	done      chan struct{}
}

// NewInbound creates an inbound port that buffers up to size messages.
func NewInbound(name string, size int) *Inbound {
	if size < 0 {
		size = 0
	}
	return &Inbound{
		name:  name,
		queue: make(chan Message, size),
		done:  make(chan struct{}),
	}
}

// Name returns the port name.
func (p *Inbound) Name() string {
	return p.name
}

// Send queues payload for the engine and returns its sequence number. It
// blocks while the queue is full, until ctx ends or the port closes.
func (p *Inbound) Send(ctx context.Context, payload []byte) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := Message{Seq: p.seq + 1, Payload: payload}
	select {
	case p.queue <- msg:
		p.seq = msg.Seq
		return msg.Seq, nil
	case <-p.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Receive exposes queued messages to the engine. The channel is never closed;
// consumers watch Done to learn that the port has shut.
func (p *Inbound) Receive() <-chan Message {
	return p.queue
}

// Done is closed when the port is closed.
func (p *Inbound) Done() <-chan struct{} {
	return p.done
}

// Sent returns the sequence number of the last accepted message.
func (p *Inbound) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// Close stops the port from accepting sends. Safe to call more than once.
func (p *Inbound) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
