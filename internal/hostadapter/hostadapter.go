// Package hostadapter defines the boundary to the host IDE (§6 "Host Adapter
// interface"): everything the core borrows from the IDE process but never
// owns. Production IDE bindings live outside this repository; this package
// holds only the interface and an in-memory console implementation used by
// the demo binary.
package hostadapter

import "time"

// Position is a zero-based caret position.
type Position struct {
	Line   int
	Column int
}

// Selection is a zero-based, document-ordered selection range.
type Selection struct {
	Start Position
	End   Position
}

// EditorView is a snapshot of one open editor: its path, caret, and an
// optional selection.
type EditorView struct {
	FilePath  string
	Caret     Position
	Selection *Selection
}

// FileOpenedFunc is called when the host opens a file in a new tab.
type FileOpenedFunc func(path string, caret Position, sel *Selection)

// FileClosedFunc is called when the host closes a tab for path. stillVisible
// reports whether the same path remains open in another tab group — if so,
// Event Ingest suppresses the CLOSE (spec §4.3).
type FileClosedFunc func(path string, stillVisible bool)

// ActiveTabChangedFunc is called when the active tab changes (without the
// file necessarily having just been opened).
type ActiveTabChangedFunc func(path string, caret Position, sel *Selection)

// CaretOrSelectionChangedFunc is called on any caret or selection movement
// within the currently active file.
type CaretOrSelectionChangedFunc func(path string, caret Position, sel *Selection)

// HostAdapter is everything the core needs from the IDE process (§6). All
// mutating calls are expected to run on — or be scheduled onto — the host's
// single cooperative UI thread via ScheduleOnHostThread.
type HostAdapter interface {
	// OpenFile opens path, optionally stealing focus. It does not place the
	// caret; callers follow it with SetCursor.
	OpenFile(path string, stealFocus bool) error
	// CloseFile closes the tab for path, if one is open.
	CloseFile(path string) error
	// EnumerateOpenFiles lists every currently open absolute path.
	EnumerateOpenFiles() []string
	// ActiveEditor returns the currently active editor's view, or nil if no
	// editor is active.
	ActiveEditor() *EditorView
	// SetCursor places the caret (and optional selection) on the given
	// already-open path, scrolling it into view if necessary.
	SetCursor(path string, caret Position, sel *Selection) error

	// OnFileOpened/OnFileClosed/OnActiveTabChanged/OnCaretOrSelectionChanged
	// register Event Ingest's callbacks.
	OnFileOpened(fn FileOpenedFunc)
	OnFileClosed(fn FileClosedFunc)
	OnActiveTabChanged(fn ActiveTabChangedFunc)
	OnCaretOrSelectionChanged(fn CaretOrSelectionChangedFunc)

	// OnFocusChanged registers Window State's push callbacks.
	OnFocusChanged(onGained, onLost func()) error
	// IsWindowFocused queries focus state synchronously (forceRealTime path).
	IsWindowFocused() bool

	// ScheduleOnHostThread enqueues fn to run on the host's single
	// cooperative UI thread (§5). Apply tasks use this exclusively.
	ScheduleOnHostThread(fn func())
}

// Clock abstracts time.Now. The core stamps its WORKSPACE_SYNC messages with
// RealClock; the inbound processor keeps its own clock function for dedup
// eviction and staleness, and the console adapter does not use a Clock.
type Clock func() time.Time

// RealClock is the production Clock.
func RealClock() time.Time { return time.Now() }
