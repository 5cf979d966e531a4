// Package engine provides the long-lived game engine. The engine is reachable
// only through its ports: payloads sent on startRequest, moveRequest and
// endRequest are processed one at a time by a single worker goroutine, and
// every start or move message produces exactly one message on startResponse
// or moveResponse, in the order the requests were accepted. Replies carry no
// reference to the request that caused them.
package engine
