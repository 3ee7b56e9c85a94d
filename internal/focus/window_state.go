// Package focus implements Window State (C2): the cached, atomically-read
// flag for whether this instance's window currently holds focus, plus the
// retrying attach of the Host Adapter's focus-change listener.
package focus

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ChangeFunc is invoked whenever the cached active flag changes value.
type ChangeFunc func(isActive bool)

// RealtimeQuery asks the Host Adapter for the window's focus state right now.
type RealtimeQuery func() bool

// AttachFunc attaches the Host Adapter's focus-gained/focus-lost callback.
// It returns an error if the host window is not yet available.
type AttachFunc func(onFocusGained, onFocusLost func()) error

const (
	attachRetries  = 10
	attachInterval = 500 * time.Millisecond
)

// State tracks the cached isActive flag for this instance.
type State struct {
	active atomic.Bool

	mu       sync.Mutex
	onChange ChangeFunc
	query    RealtimeQuery

	log *slog.Logger
}

// New creates window state with the given realtime query function
// (consulted only when IsActive(forceRealTime=true) is called).
func New(query RealtimeQuery, log *slog.Logger) *State {
	if log == nil {
		log = slog.Default()
	}
	s := &State{query: query, log: log}
	return s
}

// SetOnChange registers the callback fired whenever the cached flag flips.
func (s *State) SetOnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// IsActive returns the cached isActive flag. When forceRealTime is true, it
// queries the host and, if the answer disagrees with the cache, updates the
// cache and fires the change callback before returning the fresh value.
func (s *State) IsActive(forceRealTime bool) bool {
	if !forceRealTime || s.query == nil {
		return s.active.Load()
	}
	fresh := s.query()
	s.setActive(fresh)
	return fresh
}

// setActive updates the cached flag and fires onChange iff the value changed.
func (s *State) setActive(active bool) {
	old := s.active.Swap(active)
	if old == active {
		return
	}
	s.mu.Lock()
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(active)
	}
}

// OnFocusGained is the Host Adapter's push callback for focus-gained edges.
func (s *State) OnFocusGained() {
	s.setActive(true)
}

// OnFocusLost is the Host Adapter's push callback for focus-lost edges.
func (s *State) OnFocusLost() {
	s.setActive(false)
}

// AttachWithRetry attempts to attach the Host Adapter's focus listener,
// retrying up to attachRetries times at attachInterval because the host
// window may not be available immediately at startup (spec §4.4). It gives
// up and logs after exhausting retries.
func (s *State) AttachWithRetry(attach AttachFunc) {
	go func() {
		for i := 0; i < attachRetries; i++ {
			if err := attach(s.OnFocusGained, s.OnFocusLost); err == nil {
				s.log.Info("focus listener attached", "attempt", i+1)
				return
			} else if i == attachRetries-1 {
				s.log.Warn("focus listener attach failed, giving up", "attempts", attachRetries, "error", err)
				return
			}
			time.Sleep(attachInterval)
		}
	}()
}
