package domain

// State is the lifecycle state of a session.
type State string

const (
	StateDisconnected State = "disconnected" // Initial, no connection attempted yet
	StateConnecting   State = "connecting"   // First connection in progress
	StateReady        State = "ready"        // Accepting commands
	StateReconnecting State = "reconnecting" // Connection lost, retry policy running
	StateClosed       State = "closed"       // Terminal
)

// AllStates returns every lifecycle state in lifecycle order.
func AllStates() []State {
	return []State{StateDisconnected, StateConnecting, StateReady, StateReconnecting, StateClosed}
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateClosed
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Closed is reachable from every state.
func (s State) CanTransition(next State) bool {
	if s == StateClosed {
		return false
	}
	if next == StateClosed {
		return true
	}
	switch s {
	case StateDisconnected:
		return next == StateConnecting
	case StateConnecting:
		return next == StateReady
	case StateReady:
		return next == StateReconnecting
	case StateReconnecting:
		return next == StateReady
	}
	return false
}

// Ack is the result of an operation that produces no value of its own.
// Affected is the count reported by the store: keys removed, fields or
// members added, the new list length, or 1 for a plain write.
type Ack struct {
	Affected int64 `json:"affected"`
}

// Optional holds a value that may be absent, such as a missing key.
type Optional[T any] struct {
	Value T
	Found bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Found: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}
