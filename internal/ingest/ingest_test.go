package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopsync/core/internal/hostadapter"
	"github.com/loopsync/core/internal/wire"
)

type fakeEmitter struct {
	mu     sync.Mutex
	states []wire.EditorState
}

func (f *fakeEmitter) Enqueue(s wire.EditorState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
}

func (f *fakeEmitter) snapshot() []wire.EditorState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.EditorState, len(f.states))
	copy(out, f.states)
	return out
}

func alwaysActive() bool { return true }

func TestOpenAndCloseBypassDebounce(t *testing.T) {
	em := &fakeEmitter{}
	in := New(wire.SourceA, em, alwaysActive, nil)

	in.onFileOpened("/proj/a.go", hostadapter.Position{Line: 1, Column: 2}, nil)
	in.onFileClosed("/proj/a.go", false)

	states := em.snapshot()
	require.Len(t, states, 2)
	assert.Equal(t, wire.ActionOpen, states[0].Action)
	assert.Equal(t, wire.ActionClose, states[1].Action)
	assert.Equal(t, 0, states[1].Line)
	assert.Equal(t, 0, states[1].Column)
}

func TestCloseSuppressedWhenStillVisible(t *testing.T) {
	em := &fakeEmitter{}
	in := New(wire.SourceA, em, alwaysActive, nil)
	in.onFileClosed("/proj/a.go", true)
	assert.Empty(t, em.snapshot())
}

func TestNavigateDebounceCoalescesToLastEvent(t *testing.T) {
	em := &fakeEmitter{}
	in := New(wire.SourceA, em, alwaysActive, nil)
	defer in.Close()

	in.onCaretOrSelectionChanged("/proj/a.go", hostadapter.Position{Line: 1, Column: 0}, nil)
	time.Sleep(20 * time.Millisecond)
	in.onCaretOrSelectionChanged("/proj/a.go", hostadapter.Position{Line: 2, Column: 0}, nil)
	time.Sleep(20 * time.Millisecond)
	in.onCaretOrSelectionChanged("/proj/a.go", hostadapter.Position{Line: 10, Column: 0}, nil)

	// Not enough time has passed for the debounce timer to fire yet.
	assert.Empty(t, em.snapshot())

	time.Sleep(DebounceDelay + 100*time.Millisecond)

	states := em.snapshot()
	require.Len(t, states, 1)
	assert.Equal(t, wire.ActionNavigate, states[0].Action)
	assert.Equal(t, 10, states[0].Line)
}

func TestCloseCancelsPendingNavigateTimer(t *testing.T) {
	em := &fakeEmitter{}
	in := New(wire.SourceA, em, alwaysActive, nil)
	defer in.Close()

	in.onCaretOrSelectionChanged("/proj/a.go", hostadapter.Position{Line: 1, Column: 0}, nil)
	in.onFileClosed("/proj/a.go", false)

	time.Sleep(DebounceDelay + 100*time.Millisecond)

	states := em.snapshot()
	require.Len(t, states, 1)
	assert.Equal(t, wire.ActionClose, states[0].Action)
}

func TestNonLocalSchemeFiltered(t *testing.T) {
	em := &fakeEmitter{}
	in := New(wire.SourceA, em, alwaysActive, nil)

	in.onFileOpened("untitled:Untitled-1", hostadapter.Position{}, nil)
	in.onFileOpened("git:/proj/a.go", hostadapter.Position{}, nil)
	in.onFileOpened("output:logs", hostadapter.Position{}, nil)
	assert.Empty(t, em.snapshot())

	// Windows drive letters are not schemes.
	in.onFileOpened(`C:\proj\a.go`, hostadapter.Position{}, nil)
	assert.Len(t, em.snapshot(), 1)
}

func TestInactiveWindowNeverEnqueues(t *testing.T) {
	em := &fakeEmitter{}
	in := New(wire.SourceA, em, func() bool { return false }, nil)
	in.onFileOpened("/proj/a.go", hostadapter.Position{}, nil)
	assert.Empty(t, em.snapshot())
}
