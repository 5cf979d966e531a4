package port

import "sync"

// listenerBufferSize is the channel buffer for each listener. A listener that
// falls this far behind loses its oldest buffered messages, never the newest.
const listenerBufferSize = 64

// Outbound is an engine-to-caller port. Every published message goes to all
// listeners registered at that instant; there is no replay for late
// listeners. It is safe for concurrent use.
type Outbound struct {
	name string

	mu      sync.Mutex
	subs    map[int]chan Message
	nextID  int
	seq     uint64
	closed  bool
	onDrop  func(Message)
	onEvict func(Message)
}

// Subscription is one registered listener on an Outbound port.
type Subscription struct {
	id   int
	ch   chan Message
	port *Outbound
	once sync.Once
}

// NewOutbound creates an outbound port.
func NewOutbound(name string) *Outbound {
	return &Outbound{
		name: name,
		subs: make(map[int]chan Message),
	}
}

// Name returns the port name.
func (o *Outbound) Name() string {
	return o.name
}

// OnDrop sets a hook that is called with every message published while no
// listener is registered. The hook runs outside the port lock.
func (o *Outbound) OnDrop(fn func(Message)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onDrop = fn
}

// OnEvict sets a hook that is called with every buffered message discarded to
// make room for a newer one on a full listener. The hook runs outside the port
// lock.
func (o *Outbound) OnEvict(fn func(Message)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onEvict = fn
}

// Subscribe registers a listener. On a closed port the returned subscription's
// channel is already closed.
func (o *Outbound) Subscribe() *Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan Message, listenerBufferSize)
	if o.closed {
		close(ch)
		return &Subscription{id: -1, ch: ch, port: o}
	}

	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	return &Subscription{id: id, ch: ch, port: o}
}

// Publish broadcasts payload to all current listeners and returns its
// sequence number. It never blocks: a full listener drops its oldest buffered
// message to take the new one. Publish on a closed port is a no-op and
// returns 0.
func (o *Outbound) Publish(payload []byte) uint64 {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return 0
	}

	o.seq++
	msg := Message{Seq: o.seq, Payload: payload}
	var evicted []Message
	for _, ch := range o.subs {
		select {
		case ch <- msg:
			continue
		default:
		}
		// Only Publish sends, under the lock, so one receive makes room.
		select {
		case old := <-ch:
			evicted = append(evicted, old)
		default:
		}
		ch <- msg
	}
	drop, evict := o.onDrop, o.onEvict
	unheard := len(o.subs) == 0
	o.mu.Unlock()

	if unheard && drop != nil {
		drop(msg)
	}
	if evict != nil {
		for _, m := range evicted {
			evict(m)
		}
	}
	return msg.Seq
}

// Listeners returns the number of registered listeners.
func (o *Outbound) Listeners() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Published returns the sequence number of the last published message.
func (o *Outbound) Published() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq
}

// Close closes every listener channel. Later subscriptions receive a closed
// channel and later publishes are ignored.
func (o *Outbound) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
}

// ID returns the listener token. Subscriptions made on a closed port have
// ID -1.
func (s *Subscription) ID() int {
	return s.id
}

// C returns the channel that receives published messages.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Unsubscribe removes the listener. Messages already buffered stay readable;
// no new message is delivered once Unsubscribe returns. Safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.port.mu.Lock()
		defer s.port.mu.Unlock()
		delete(s.port.subs, s.id)
	})
}
