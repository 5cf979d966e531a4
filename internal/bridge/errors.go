package bridge

import "errors"

var (
	// ErrEngineUnavailable is returned when the engine refuses a send or stops
	// while a call is waiting.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrCancelled is returned when the caller's context ends before a reply
	// arrives. The context error is wrapped alongside it.
	ErrCancelled = errors.New("call cancelled")

	// ErrProtocolViolation is returned when the engine's replies stop matching
	// its requests.
	ErrProtocolViolation = errors.New("engine protocol violation")

	// ErrUnsupportedKind is returned when an operation is used with a kind it
	// does not serve.
	ErrUnsupportedKind = errors.New("unsupported interaction kind")
)
