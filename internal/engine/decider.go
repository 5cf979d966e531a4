package engine

import (
	"context"
	"encoding/json"

	"github.com/seantiz/snakebridge/internal/model"
)

// Decider produces the engine's replies. The engine calls it from a single
// goroutine, so implementations need not be safe for concurrent use unless
// they are shared between engines.
type Decider interface {
	// Start handles the beginning of a game and returns the snake's
	// configuration.
	Start(ctx context.Context, payload []byte) ([]byte, error)

	// Move returns the next move for the board in payload.
	Move(ctx context.Context, payload []byte) ([]byte, error)

	// End handles the end of a game. It has no reply.
	End(ctx context.Context, payload []byte) error
}

// fallbackReplies are published when the decider fails, so every request
// still gets exactly one reply.
var fallbackReplies = map[model.Kind][]byte{
	model.KindStart: []byte(`{}`),
	model.KindMove:  []byte(`{"move":"up"}`),
}

// Echo replies to every start and move with the payload it received.
type Echo struct{}

func (Echo) Start(_ context.Context, payload []byte) ([]byte, error) { return payload, nil }

func (Echo) Move(_ context.Context, payload []byte) ([]byte, error) { return payload, nil }

func (Echo) End(context.Context, []byte) error { return nil }

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
