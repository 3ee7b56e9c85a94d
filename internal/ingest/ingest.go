// Package ingest implements Event Ingest (C3): translates Host Adapter
// callbacks into normalized EditorState records, debounces NAVIGATE events
// per file, and filters out non-local-file paths before anything reaches
// the Send Queue.
package ingest

import (
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/loopsync/core/internal/hostadapter"
	"github.com/loopsync/core/internal/wire"
)

// DebounceDelay is the NAVIGATE coalescing window (spec §4.3).
const DebounceDelay = 300 * time.Millisecond

// Emitter receives normalized, ready-to-send EditorState values. The Send
// Queue implements this.
type Emitter interface {
	Enqueue(state wire.EditorState)
}

// ActiveQuery reports whether this instance's window is currently focused,
// used to stamp every emitted EditorState's IsActive flag (spec §4.3).
type ActiveQuery func() bool

var schemeRE = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*):`)

// IsLocalFile reports whether path uses the local file protocol — i.e. has
// no non-file scheme prefix. A single-letter prefix before ':' is treated
// as a Windows drive letter, not a scheme, and is accepted.
func IsLocalFile(path string) bool {
	m := schemeRE.FindStringSubmatch(path)
	if m == nil {
		return true
	}
	return len(m[1]) == 1
}

// Ingest normalizes Host Adapter callbacks into EditorState and forwards
// them to the Send Queue, enforcing the debounce and filtering rules.
type Ingest struct {
	source wire.Source
	emit   Emitter
	active ActiveQuery
	log    *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// New wires Event Ingest to the given emitter and active-flag query. source
// tags every emitted EditorState for logging (spec §3).
func New(source wire.Source, emit Emitter, active ActiveQuery, log *slog.Logger) *Ingest {
	if log == nil {
		log = slog.Default()
	}
	return &Ingest{
		source: source,
		emit:   emit,
		active: active,
		log:    log,
		timers: make(map[string]*time.Timer),
	}
}

// Attach registers Event Ingest's callbacks on the Host Adapter.
func (in *Ingest) Attach(host hostadapter.HostAdapter) {
	host.OnFileOpened(in.onFileOpened)
	host.OnFileClosed(in.onFileClosed)
	host.OnActiveTabChanged(in.onActiveTabChanged)
	host.OnCaretOrSelectionChanged(in.onCaretOrSelectionChanged)
}

// Close cancels any pending debounce timers and stops accepting new events.
func (in *Ingest) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopped = true
	for path, t := range in.timers {
		t.Stop()
		delete(in.timers, path)
	}
}

func (in *Ingest) onFileOpened(path string, caret hostadapter.Position, sel *hostadapter.Selection) {
	in.emitOpenOrNavigate(wire.ActionOpen, path, caret, sel)
}

func (in *Ingest) onActiveTabChanged(path string, caret hostadapter.Position, sel *hostadapter.Selection) {
	in.emitOpenOrNavigate(wire.ActionOpen, path, caret, sel)
}

func (in *Ingest) onCaretOrSelectionChanged(path string, caret hostadapter.Position, sel *hostadapter.Selection) {
	if !IsLocalFile(path) {
		return
	}
	in.scheduleDebounced(path, caret, sel)
}

func (in *Ingest) onFileClosed(path string, stillVisible bool) {
	if stillVisible {
		return
	}
	if !IsLocalFile(path) {
		return
	}
	// A CLOSE bypasses debounce and cancels any pending NAVIGATE timer for
	// the same path before enqueuing (spec §4.3).
	in.cancelTimer(path)
	in.emitNow(wire.EditorState{
		Action:    wire.ActionClose,
		FilePath:  path,
		Line:      0,
		Column:    0,
		Source:    in.source,
		IsActive:  in.isActive(),
		Timestamp: wire.FormatTimestamp(time.Now()),
	})
}

func (in *Ingest) emitOpenOrNavigate(action wire.Action, path string, caret hostadapter.Position, sel *hostadapter.Selection) {
	if !IsLocalFile(path) {
		return
	}
	// OPEN bypasses the debounce.
	in.cancelTimer(path)
	in.emitNow(stateFor(action, path, caret, sel, in.source, in.isActive()))
}

func (in *Ingest) scheduleDebounced(path string, caret hostadapter.Position, sel *hostadapter.Selection) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stopped {
		return
	}
	if t, ok := in.timers[path]; ok {
		t.Stop()
	}
	in.timers[path] = time.AfterFunc(DebounceDelay, func() {
		in.mu.Lock()
		delete(in.timers, path)
		stopped := in.stopped
		in.mu.Unlock()
		if stopped {
			return
		}
		in.emitNow(stateFor(wire.ActionNavigate, path, caret, sel, in.source, in.isActive()))
	})
}

func (in *Ingest) cancelTimer(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.timers[path]; ok {
		t.Stop()
		delete(in.timers, path)
	}
}

func (in *Ingest) emitNow(state wire.EditorState) {
	// Only isActive=true states are ever enqueued; this boundary enforces
	// the Send Queue's invariant (spec §4.2).
	if !state.IsActive {
		return
	}
	in.emit.Enqueue(state)
}

func (in *Ingest) isActive() bool {
	if in.active == nil {
		return false
	}
	return in.active()
}

func stateFor(action wire.Action, path string, caret hostadapter.Position, sel *hostadapter.Selection, source wire.Source, active bool) wire.EditorState {
	s := wire.EditorState{
		Action:    action,
		FilePath:  path,
		Line:      caret.Line,
		Column:    caret.Column,
		Source:    source,
		IsActive:  active,
		Timestamp: wire.FormatTimestamp(time.Now()),
	}
	if sel != nil {
		s.SetSelection(sel.Start.Line, sel.Start.Column, sel.End.Line, sel.End.Column)
	}
	return s
}
