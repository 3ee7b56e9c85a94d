package transport

import (
	"encoding/json"
	"sync"
	"time"
)

// atomic64 is a small mutex-protected time.Time box; time.Time isn't atomic
// in the sync/atomic.Value sense on its own, so heartbeat bookkeeping (one
// writer from the read loop, one reader from the watchdog) goes through a
// tiny lock instead.
type atomic64 struct {
	mu sync.Mutex
	t  time.Time
}

func (a *atomic64) store(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *atomic64) load() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}

// marshalLine JSON-encodes v and appends the newline frame terminator.
func marshalLine(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
