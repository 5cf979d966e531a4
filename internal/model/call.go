package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind names an interaction between the HTTP layer and the engine.
type Kind string

// Interaction kinds.
const (
	KindStart Kind = "start"
	KindMove  Kind = "move"
	KindEnd   Kind = "end"
	KindPing  Kind = "ping"
)

// Kinds lists every interaction kind in route order.
var Kinds = []Kind{KindStart, KindMove, KindEnd, KindPing}

// ReplyKinds lists the kinds whose engine ports produce a reply.
var ReplyKinds = []Kind{KindStart, KindMove}

// ExpectsReply reports whether the engine answers messages of this kind.
func (k Kind) ExpectsReply() bool {
	return k == KindStart || k == KindMove
}

// Valid reports whether k is a known interaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStart, KindMove, KindEnd, KindPing:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Pending call states.
const (
	CallCreated   = "created"
	CallListening = "listening"
	CallResolved  = "resolved"
	CallFailed    = "failed"
	CallCancelled = "cancelled"
)

// validCallTransitions maps each pending call state to the states it may move
// to. Resolved, failed and cancelled are terminal.
var validCallTransitions = map[string]map[string]bool{
	CallCreated: {
		CallListening: true,
		CallFailed:    true,
		CallCancelled: true,
	},
	CallListening: {
		CallResolved:  true,
		CallFailed:    true,
		CallCancelled: true,
	},
}

// ValidCallTransition reports whether a pending call may move between states.
func ValidCallTransition(from, to string) bool {
	targets, ok := validCallTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// StatusAccepted is the journal status for a fire-and-forget notification or
// ping that the engine (or the server) accepted.
const StatusAccepted = "accepted"

// Call is a journal record of one handled request.
type Call struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Status     string    `json:"status"`
	GameID     string    `json:"game_id,omitempty"`
	Turn       *int      `json:"turn,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	DurationMS int       `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewID returns a ULID for a journal record.
func NewID() string {
	return ulid.Make().String()
}
