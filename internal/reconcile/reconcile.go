// Package reconcile implements Apply / the Reconciler (C6): executes OPEN,
// CLOSE, NAVIGATE, and WORKSPACE_SYNC against the Host Adapter, including the
// "active window wins" workspace-reconciliation policy.
package reconcile

import (
	"log/slog"

	"github.com/loopsync/core/internal/focus"
	"github.com/loopsync/core/internal/hostadapter"
	"github.com/loopsync/core/internal/pathnorm"
	"github.com/loopsync/core/internal/wire"
)

// Reconciler applies inbound EditorState values to the Host Adapter. Every
// mutating call is scheduled onto the host's cooperative UI thread (spec §5).
type Reconciler struct {
	host   hostadapter.HostAdapter
	window *focus.State
	family pathnorm.Family
	log    *slog.Logger
}

// New creates a Reconciler for the given Host Adapter and Window State.
// family selects which side's path convention EnumerateOpenFiles/FilePath
// values are normalized into before comparison.
func New(host hostadapter.HostAdapter, window *focus.State, family pathnorm.Family, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{host: host, window: window, family: family, log: log}
}

// Apply implements the Applier contract consumed by inbound.Processor: one
// task is scheduled onto the host thread per inbound message (spec §4.6).
func (r *Reconciler) Apply(state wire.EditorState) {
	r.host.ScheduleOnHostThread(func() {
		r.apply(state)
	})
}

func (r *Reconciler) apply(state wire.EditorState) {
	switch state.Action {
	case wire.ActionClose:
		r.applyClose(state)
	case wire.ActionOpen:
		r.applyOpen(state)
	case wire.ActionNavigate:
		r.applyNavigate(state)
	case wire.ActionWorkspaceSync:
		r.applyWorkspaceSync(state)
	default:
		r.log.Warn("reconcile: unknown action dropped", "action", state.Action)
	}
}

func (r *Reconciler) applyClose(state wire.EditorState) {
	if err := r.host.CloseFile(state.FilePath); err != nil {
		r.log.Warn("reconcile: close failed", "path", state.FilePath, "error", err)
	}
}

func (r *Reconciler) applyOpen(state wire.EditorState) {
	if err := r.host.OpenFile(state.FilePath, false); err != nil {
		r.log.Warn("reconcile: open failed", "path", state.FilePath, "error", err)
		return
	}
	r.applyCursorAndSelection(state)
}

// applyNavigate is OPEN's twin: the file is expected to already be open, but
// if it went missing underneath us, open it first (spec §4.6).
func (r *Reconciler) applyNavigate(state wire.EditorState) {
	if !r.isOpen(state.FilePath) {
		if err := r.host.OpenFile(state.FilePath, false); err != nil {
			r.log.Warn("reconcile: navigate-open failed", "path", state.FilePath, "error", err)
			return
		}
	}
	r.applyCursorAndSelection(state)
}

func (r *Reconciler) isOpen(path string) bool {
	target := pathnorm.Normalize(path, r.family)
	for _, p := range r.host.EnumerateOpenFiles() {
		if pathnorm.Normalize(p, r.family) == target {
			return true
		}
	}
	return false
}

// applyCursorAndSelection implements the §4.6 cursor-and-selection routine:
// place the caret at the selection endpoint nearest (line, column) if a
// selection exists, preserving direction, else just move the caret.
func (r *Reconciler) applyCursorAndSelection(state wire.EditorState) {
	caret := hostadapter.Position{Line: state.Line, Column: state.Column}
	var sel *hostadapter.Selection
	if state.HasSelection() {
		sel = &hostadapter.Selection{
			Start: hostadapter.Position{Line: *state.SelectionStartLine, Column: *state.SelectionStartColumn},
			End:   hostadapter.Position{Line: *state.SelectionEndLine, Column: *state.SelectionEndColumn},
		}
	}
	if err := r.host.SetCursor(state.FilePath, caret, sel); err != nil {
		r.log.Warn("reconcile: set cursor failed", "path", state.FilePath, "error", err)
	}
}

// applyWorkspaceSync runs the six-step workspace-reconciliation algorithm of
// spec §4.6.
func (r *Reconciler) applyWorkspaceSync(payload wire.EditorState) {
	// 1. capture local active state and, if active, the current view.
	localActive := r.window.IsActive(true)
	var saved *hostadapter.EditorView
	if localActive {
		saved = r.host.ActiveEditor()
	}

	// 2. cur / tgt sets, normalized for comparison.
	cur := r.normalizedSet(r.host.EnumerateOpenFiles())
	tgt := r.normalizedSet(payload.OpenedFiles)

	// 3. close every path in cur \ tgt.
	for norm, original := range cur {
		if _, wanted := tgt[norm]; !wanted {
			if err := r.host.CloseFile(original); err != nil {
				r.log.Warn("reconcile: workspace close failed", "path", original, "error", err)
			}
		}
	}

	// 4. open every path in tgt \ cur, without stealing focus.
	openedAny := false
	for norm, original := range tgt {
		if _, already := cur[norm]; already {
			continue
		}
		if err := r.host.OpenFile(original, false); err != nil {
			r.log.Warn("reconcile: workspace open failed", "path", original, "error", err)
			continue
		}
		openedAny = true
	}

	// 5. re-read local active state; it may have changed during the I/O.
	localActive = r.window.IsActive(true)

	// 6. restore the local view if we're still active and had one saved,
	// and step 4 actually opened something; otherwise follow the remote.
	if localActive && saved != nil && openedAny {
		r.restoreView(*saved)
		return
	}
	r.applyCursorAndSelection(payload)
}

func (r *Reconciler) restoreView(saved hostadapter.EditorView) {
	if err := r.host.SetCursor(saved.FilePath, saved.Caret, saved.Selection); err != nil {
		r.log.Warn("reconcile: restore local view failed", "path", saved.FilePath, "error", err)
	}
}

// normalizedSet maps each path's normalized form to one of its original
// (pre-normalization) representations, for set difference plus
// Host-Adapter-ready values.
func (r *Reconciler) normalizedSet(paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		out[pathnorm.Normalize(p, r.family)] = p
	}
	return out
}
