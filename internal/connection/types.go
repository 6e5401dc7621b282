package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrAlreadyRunning   = errors.New("controller already running")
	ErrRetriesExhausted = errors.New("reconnection attempts exhausted")
)

// State is the lifecycle state of the feed connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind identifies what happened to a connection.
type EventKind int

const (
	EventOpened EventKind = iota
	EventClosed
	EventError
	EventPong

	// eventRetry fires when a backoff delay has elapsed.
	eventRetry
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	case EventPong:
		return "pong"
	case eventRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Event is delivered to the controller's transition function.
type Event struct {
	Kind EventKind
	Gen  uint64 // connection generation that produced the event
	Conn Conn   // set for EventOpened
	Err  error  // set for EventClosed and EventError
}

// Stats is a snapshot of controller counters.
type Stats struct {
	State           State
	Attempt         int
	Connects        int64
	Failures        int64
	Subscriptions   int
	Tokens          int
	LastConnectedAt time.Time
	LastPongAt      time.Time
	LastError       string
}

// MessageHandler receives every data message read from the feed. It runs on
// the read loop and must not block.
type MessageHandler func(data []byte)
