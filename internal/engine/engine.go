package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/seantiz/snakebridge/internal/model"
	"github.com/seantiz/snakebridge/internal/port"
)

// DefaultQueueSize is the inbound buffer used when none is configured.
const DefaultQueueSize = 16

// Port names.
const (
	PortStartRequest  = "startRequest"
	PortMoveRequest   = "moveRequest"
	PortEndRequest    = "endRequest"
	PortStartResponse = "startResponse"
	PortMoveResponse  = "moveResponse"
)

var (
	// ErrUnavailable is returned when the engine is not running.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrNoPort is returned for a kind the engine has no port for.
	ErrNoPort = errors.New("no such port")

	errAlreadyStarted = errors.New("engine already started")
)

const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

// Engine is the process-wide game engine. Create it once with New, run it
// with Run, and talk to it only through Send and Outbound.
type Engine struct {
	decider  Decider
	logger   *slog.Logger
	state    atomic.Int32
	inbound  map[model.Kind]*port.Inbound
	outbound map[model.Kind]*port.Outbound
}

// New creates an engine around decider. queueSize bounds each inbound port;
// values below 1 use DefaultQueueSize.
func New(decider Decider, logger *slog.Logger, queueSize int) *Engine {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Engine{
		decider: decider,
		logger:  logger,
		inbound: map[model.Kind]*port.Inbound{
			model.KindStart: port.NewInbound(PortStartRequest, queueSize),
			model.KindMove:  port.NewInbound(PortMoveRequest, queueSize),
			model.KindEnd:   port.NewInbound(PortEndRequest, queueSize),
		},
		outbound: map[model.Kind]*port.Outbound{
			model.KindStart: port.NewOutbound(PortStartResponse),
			model.KindMove:  port.NewOutbound(PortMoveResponse),
		},
	}
}

// Run processes inbound messages until ctx ends. When Run returns, every port
// is closed and the engine stays unavailable.
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(stateCreated, stateRunning) {
		return errAlreadyStarted
	}
	defer e.stop()

	e.logger.Info("engine running")

	start := e.inbound[model.KindStart].Receive()
	move := e.inbound[model.KindMove].Receive()
	end := e.inbound[model.KindEnd].Receive()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-start:
			e.handle(ctx, model.KindStart, msg)
		case msg := <-move:
			e.handle(ctx, model.KindMove, msg)
		case msg := <-end:
			e.handle(ctx, model.KindEnd, msg)
		}
	}
}

// Ready reports whether the engine is accepting messages.
func (e *Engine) Ready() bool {
	return e.state.Load() == stateRunning
}

// Send queues payload on the inbound port for kind and returns its sequence
// number on that port.
func (e *Engine) Send(ctx context.Context, kind model.Kind, payload []byte) (uint64, error) {
	p, ok := e.inbound[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoPort, kind)
	}
	if !e.Ready() {
		return 0, ErrUnavailable
	}

	seq, err := p.Send(ctx, payload)
	if errors.Is(err, port.ErrClosed) {
		return 0, fmt.Errorf("%w: %s closed", ErrUnavailable, p.Name())
	}
	return seq, err
}

// Outbound returns the reply port for kind.
func (e *Engine) Outbound(kind model.Kind) (*port.Outbound, error) {
	o, ok := e.outbound[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no reply port", ErrNoPort, kind)
	}
	return o, nil
}

func (e *Engine) handle(ctx context.Context, kind model.Kind, msg port.Message) {
	messagesTotal.WithLabelValues(string(kind)).Inc()

	var (
		reply []byte
		err   error
	)
	switch kind {
	case model.KindStart:
		reply, err = e.decider.Start(ctx, msg.Payload)
	case model.KindMove:
		reply, err = e.decider.Move(ctx, msg.Payload)
	case model.KindEnd:
		if err := e.decider.End(ctx, msg.Payload); err != nil {
			deciderErrorsTotal.WithLabelValues(string(kind)).Inc()
			e.logger.Error("decider end failed", "seq", msg.Seq, "error", err)
		}
		return
	}

	if err != nil {
		deciderErrorsTotal.WithLabelValues(string(kind)).Inc()
		e.logger.Error("decider failed, sending fallback reply", "kind", kind, "seq", msg.Seq, "error", err)
		reply = fallbackReplies[kind]
	}

	e.outbound[kind].Publish(reply)
}

func (e *Engine) stop() {
	e.state.Store(stateStopped)
	for _, p := range e.inbound {
		p.Close()
	}
	for _, o := range e.outbound {
		o.Close()
	}
	e.logger.Info("engine stopped")
}
