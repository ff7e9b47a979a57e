package model

// SessionState is the connection/session lifecycle state.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateSending
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSending:
		return "sending"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Transient reports whether the state wraps an in-flight call.
func (s SessionState) Transient() bool {
	return s == StateConnecting || s == StateSending
}
