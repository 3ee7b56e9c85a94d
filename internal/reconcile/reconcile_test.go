package reconcile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopsync/core/internal/focus"
	"github.com/loopsync/core/internal/hostadapter"
	"github.com/loopsync/core/internal/pathnorm"
	"github.com/loopsync/core/internal/wire"
)

// fakeHost is a minimal, synchronous (ScheduleOnHostThread runs inline)
// HostAdapter double for exercising the Reconciler without a real IDE.
type fakeHost struct {
	mu     sync.Mutex
	open   map[string]hostadapter.EditorView
	active string

	closeCalls []string
	openCalls  []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{open: make(map[string]hostadapter.EditorView)}
}

func (f *fakeHost) OpenFile(path string, stealFocus bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls = append(f.openCalls, path)
	if _, ok := f.open[path]; !ok {
		f.open[path] = hostadapter.EditorView{FilePath: path}
	}
	return nil
}

func (f *fakeHost) CloseFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls = append(f.closeCalls, path)
	delete(f.open, path)
	if f.active == path {
		f.active = ""
	}
	return nil
}

func (f *fakeHost) EnumerateOpenFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.open))
	for p := range f.open {
		out = append(out, p)
	}
	return out
}

func (f *fakeHost) ActiveEditor() *hostadapter.EditorView {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == "" {
		return nil
	}
	v := f.open[f.active]
	return &v
}

func (f *fakeHost) SetCursor(path string, caret hostadapter.Position, sel *hostadapter.Selection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.open[path]
	v.FilePath = path
	v.Caret = caret
	v.Selection = sel
	f.open[path] = v
	f.active = path
	return nil
}

func (f *fakeHost) OnFileOpened(fn hostadapter.FileOpenedFunc)                         {}
func (f *fakeHost) OnFileClosed(fn hostadapter.FileClosedFunc)                         {}
func (f *fakeHost) OnActiveTabChanged(fn hostadapter.ActiveTabChangedFunc)             {}
func (f *fakeHost) OnCaretOrSelectionChanged(fn hostadapter.CaretOrSelectionChangedFunc) {}
func (f *fakeHost) OnFocusChanged(onGained, onLost func()) error                       { return nil }
func (f *fakeHost) IsWindowFocused() bool                                              { return true }
func (f *fakeHost) ScheduleOnHostThread(fn func())                                     { fn() }

func newTestReconciler(host hostadapter.HostAdapter, activeQuery func() bool) *Reconciler {
	w := focus.New(activeQuery, nil)
	return New(host, w, pathnorm.FamilyPosix, nil)
}

func TestApplyOpenOpensThenSetsCursor(t *testing.T) {
	host := newFakeHost()
	r := newTestReconciler(host, func() bool { return false })

	r.Apply(wire.EditorState{Action: wire.ActionOpen, FilePath: "/proj/a.go", Line: 3, Column: 2})

	require.Contains(t, host.openCalls, "/proj/a.go")
	assert.Equal(t, "/proj/a.go", host.active)
	assert.Equal(t, 3, host.open["/proj/a.go"].Caret.Line)
}

func TestApplyCloseClosesExistingTab(t *testing.T) {
	host := newFakeHost()
	host.open["/proj/a.go"] = hostadapter.EditorView{FilePath: "/proj/a.go"}
	r := newTestReconciler(host, func() bool { return false })

	r.Apply(wire.EditorState{Action: wire.ActionClose, FilePath: "/proj/a.go"})

	assert.NotContains(t, host.EnumerateOpenFiles(), "/proj/a.go")
}

func TestApplyNavigateOpensMissingFileFirst(t *testing.T) {
	host := newFakeHost()
	r := newTestReconciler(host, func() bool { return false })

	r.Apply(wire.EditorState{Action: wire.ActionNavigate, FilePath: "/proj/b.go", Line: 1, Column: 0})

	assert.Contains(t, host.openCalls, "/proj/b.go")
	assert.Equal(t, "/proj/b.go", host.active)
}

func TestWorkspaceSyncClosesAndOpensToMatchTarget(t *testing.T) {
	host := newFakeHost()
	host.open["/proj/old.go"] = hostadapter.EditorView{FilePath: "/proj/old.go"}
	r := newTestReconciler(host, func() bool { return false })

	r.Apply(wire.EditorState{
		Action:      wire.ActionWorkspaceSync,
		OpenedFiles: []string{"/proj/new.go"},
	})

	assert.Contains(t, host.closeCalls, "/proj/old.go")
	assert.Contains(t, host.openCalls, "/proj/new.go")
}

func TestWorkspaceSyncPreservesLocalViewWhenActiveAndFilesOpened(t *testing.T) {
	host := newFakeHost()
	host.open["/proj/mine.go"] = hostadapter.EditorView{FilePath: "/proj/mine.go", Caret: hostadapter.Position{Line: 7, Column: 1}}
	host.active = "/proj/mine.go"
	r := newTestReconciler(host, func() bool { return true })

	r.Apply(wire.EditorState{
		Action:      wire.ActionWorkspaceSync,
		FilePath:    "/proj/theirs.go",
		Line:        0,
		Column:      0,
		OpenedFiles: []string{"/proj/mine.go", "/proj/theirs.go"},
	})

	// Local view (mine.go, line 7) must be restored, not yanked to theirs.go.
	assert.Equal(t, "/proj/mine.go", host.active)
	assert.Equal(t, 7, host.open["/proj/mine.go"].Caret.Line)
}

func TestWorkspaceSyncFollowsRemoteWhenLocalInactive(t *testing.T) {
	host := newFakeHost()
	host.open["/proj/mine.go"] = hostadapter.EditorView{FilePath: "/proj/mine.go"}
	r := newTestReconciler(host, func() bool { return false })

	r.Apply(wire.EditorState{
		Action:      wire.ActionWorkspaceSync,
		FilePath:    "/proj/theirs.go",
		Line:        5,
		Column:      2,
		OpenedFiles: []string{"/proj/mine.go", "/proj/theirs.go"},
	})

	assert.Equal(t, "/proj/theirs.go", host.active)
	assert.Equal(t, 5, host.open["/proj/theirs.go"].Caret.Line)
}
