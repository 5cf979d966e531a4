// Package bridge turns the engine's asynchronous port pairs into ordinary
// blocking calls.
//
// A reply port is a broadcast with no correlation data, so the bridge keeps at
// most one listener per kind: each kind has a FIFO gate, and a call holds the
// gate from the moment it subscribes until its listener is removed. Calls of
// different kinds proceed independently.
//
// The bridge relies on two properties of the engine that it cannot enforce:
// each request on a kind produces exactly one reply, and replies come back in
// the order requests were accepted. Under those properties the reply to the
// n-th accepted request is the n-th message on the reply port, which lets the
// bridge discard replies that belong to calls abandoned after cancellation.
// A reply that arrives past the expected position means the engine broke the
// contract and is reported as ErrProtocolViolation.
package bridge
