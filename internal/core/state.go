// Package core holds the contracts shared by the client SDK and the
// gateway: the event union, control frames and connection lifecycle states.
package core

// ConnState is the lifecycle state of the single live connection.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	// StateClosed is terminal: the retry budget is exhausted and the
	// manager will not dial again without an explicit Connect.
	StateClosed ConnState = "closed"
)
