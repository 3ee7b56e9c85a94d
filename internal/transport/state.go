package transport

import "sync"

// ConnState is the per-side connection state machine of spec §4.1.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Callbacks are the coalesced connection-state edge notifications (spec
// §4.1): each fires only on entry into the named state, not on repeat
// entries into the same state.
type Callbacks struct {
	OnConnected    func()
	OnReconnecting func()
	OnDisconnected func()
}

// stateTracker stores the current ConnState and fires the matching Callbacks
// hook only when the state actually changes, implementing the "coalesced,
// repeat entries do not fire" rule.
type stateTracker struct {
	mu    sync.Mutex
	state ConnState
	cb    Callbacks
}

func (t *stateTracker) setCallbacks(cb Callbacks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

func (t *stateTracker) get() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// transition moves to "to" and fires the matching callback iff the state
// actually changed.
func (t *stateTracker) transition(to ConnState) {
	t.mu.Lock()
	if t.state == to {
		t.mu.Unlock()
		return
	}
	t.state = to
	cb := t.cb
	t.mu.Unlock()

	switch to {
	case Connected:
		if cb.OnConnected != nil {
			cb.OnConnected()
		}
	case Connecting:
		if cb.OnReconnecting != nil {
			cb.OnReconnecting()
		}
	case Disconnected:
		if cb.OnDisconnected != nil {
			cb.OnDisconnected()
		}
	}
}
