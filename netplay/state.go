package netplay

// ConnectionState represents the current state of the netplay connection.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the client is establishing a connection.
	StateConnecting

	// StateConnected means the channel is open but not yet authenticated.
	StateConnected

	// StateAuthenticated means the handshake completed and the session is live.
	StateAuthenticated

	// StateError means the last connection attempt failed.
	StateError
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}

// Session is the authenticated identity bound to the current connection.
// Derived state: Authenticated is true only while the connection state is
// StateAuthenticated, and the whole struct is cleared atomically on
// disconnect.
type Session struct {
	Token         string
	UserID        string
	Authenticated bool
}
