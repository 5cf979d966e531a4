package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/seantiz/snakebridge/internal/model"
	"github.com/seantiz/snakebridge/internal/port"
)

var tracer = otel.Tracer("github.com/seantiz/snakebridge/internal/bridge")

// Engine is the bridge's view of the engine. The bridge never owns it.
type Engine interface {
	// Send queues payload on the inbound port for kind and returns the
	// payload's sequence number on that port.
	Send(ctx context.Context, kind model.Kind, payload []byte) (uint64, error)

	// Outbound returns the reply port for kind.
	Outbound(kind model.Kind) (*port.Outbound, error)
}

// Bridge exposes the engine's port pairs as blocking calls. It is safe for
// concurrent use.
type Bridge struct {
	engine Engine
	logger *slog.Logger
	gates  map[model.Kind]*gate
}

// New creates a bridge over eng.
func New(eng Engine, logger *slog.Logger) *Bridge {
	b := &Bridge{
		engine: eng,
		logger: logger,
		gates:  make(map[model.Kind]*gate, len(model.ReplyKinds)),
	}
	for _, k := range model.ReplyKinds {
		b.gates[k] = newGate(k)
		if out, err := eng.Outbound(k); err == nil {
			out.OnDrop(b.unclaimed(k))
			out.OnEvict(b.evicted(k))
		}
	}
	return b
}

// Call sends payload to the engine on kind's inbound port and waits for the
// matching reply. Calls of the same kind are served one at a time in arrival
// order. When Call returns, its listener is no longer registered.
func (b *Bridge) Call(ctx context.Context, kind model.Kind, payload []byte) (reply []byte, err error) {
	g, ok := b.gates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: call %s", ErrUnsupportedKind, kind)
	}

	ctx, span := tracer.Start(ctx, "bridge.call",
		trace.WithAttributes(attribute.String("bridge.kind", string(kind))))
	start := time.Now()
	defer func() {
		observeCall(kind, start, err)
		endSpan(span, err)
	}()

	if err := g.acquire(ctx); err != nil {
		return nil, cancelled(err)
	}
	defer g.release()

	out, err := b.engine.Outbound(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	pc := newPendingCall(kind)
	sub := out.Subscribe()
	g.hold(pc)
	defer func() {
		sub.Unsubscribe()
		g.clear(pc)
	}()
	pc.listen(sub.ID())

	seq, err := b.engine.Send(ctx, kind, payload)
	if err != nil {
		if ctx.Err() != nil {
			pc.transition(model.CallCancelled)
			return nil, cancelled(ctx.Err())
		}
		pc.transition(model.CallFailed)
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	pc.expect(seq)
	span.SetAttributes(attribute.Int64("bridge.seq", int64(seq)))

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				pc.transition(model.CallFailed)
				return nil, fmt.Errorf("%w: %s closed while waiting", ErrEngineUnavailable, out.Name())
			}
			if msg.Seq < seq {
				droppedReplies.WithLabelValues(string(kind), reasonStale).Inc()
				b.logger.Debug("stale reply discarded", "kind", kind, "seq", msg.Seq, "want", seq)
				continue
			}
			if msg.Seq > seq {
				pc.transition(model.CallFailed)
				b.logger.Error("engine skipped a reply", "kind", kind, "seq", msg.Seq, "want", seq)
				return nil, fmt.Errorf("%w: %s reply %d arrived while waiting for %d", ErrProtocolViolation, kind, msg.Seq, seq)
			}
			pc.transition(model.CallResolved)
			return msg.Payload, nil
		case <-ctx.Done():
			pc.transition(model.CallCancelled)
			return nil, cancelled(ctx.Err())
		}
	}
}

// Notify sends payload on kind's inbound port without waiting for the engine
// to process it. Only end is a notification kind.
func (b *Bridge) Notify(ctx context.Context, kind model.Kind, payload []byte) (err error) {
	if kind != model.KindEnd {
		return fmt.Errorf("%w: notify %s", ErrUnsupportedKind, kind)
	}

	ctx, span := tracer.Start(ctx, "bridge.notify",
		trace.WithAttributes(attribute.String("bridge.kind", string(kind))))
	start := time.Now()
	defer func() {
		observeCall(kind, start, err)
		endSpan(span, err)
	}()

	if _, err := b.engine.Send(ctx, kind, payload); err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return nil
}

// Ping is a liveness check. It never touches the engine.
func (b *Bridge) Ping() error {
	return nil
}

// KindStatus is a snapshot of one reply kind.
type KindStatus struct {
	Kind      model.Kind   `json:"kind"`
	Listeners int          `json:"listeners"`
	Pending   *PendingInfo `json:"pending,omitempty"`
}

// Status reports the listener count and the pending call, if any, for every
// reply kind.
func (b *Bridge) Status() []KindStatus {
	statuses := make([]KindStatus, 0, len(model.ReplyKinds))
	for _, k := range model.ReplyKinds {
		st := KindStatus{Kind: k}
		if out, err := b.engine.Outbound(k); err == nil {
			st.Listeners = out.Listeners()
		}
		if pc := b.gates[k].current(); pc != nil {
			info := pc.info()
			st.Pending = &info
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// unclaimed returns the drop hook for kind's reply port. A reply published
// while no call listens is almost always the late answer to a cancelled call;
// it is counted and discarded.
func (b *Bridge) unclaimed(kind model.Kind) func(port.Message) {
	return func(msg port.Message) {
		droppedReplies.WithLabelValues(string(kind), reasonUnclaimed).Inc()
		b.logger.Debug("late reply with no pending call dropped", "kind", kind, "seq", msg.Seq)
	}
}

// evicted returns the eviction hook for kind's reply port. Only replies older
// than the listening call's own are ever evicted, so they are stale.
func (b *Bridge) evicted(kind model.Kind) func(port.Message) {
	return func(msg port.Message) {
		droppedReplies.WithLabelValues(string(kind), reasonStale).Inc()
		b.logger.Debug("stale reply evicted", "kind", kind, "seq", msg.Seq)
	}
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
