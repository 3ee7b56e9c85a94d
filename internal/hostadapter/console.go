package hostadapter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ConsoleAdapter is a minimal, in-memory Host Adapter used by the demo
// binary (cmd/loopsyncd). It has no real IDE behind it: tabs
// are just a set of paths, and mutations are logged instead of rendered.
// Host-thread scheduling is modeled with a single worker goroutine draining
// a channel, mirroring the "single cooperative UI thread" the real IDE host
// would provide.
type ConsoleAdapter struct {
	mu     sync.Mutex
	open   map[string]*EditorView
	active string

	onFileOpened     FileOpenedFunc
	onFileClosed     FileClosedFunc
	onActiveChanged  ActiveTabChangedFunc
	onCaretOrSelChng CaretOrSelectionChangedFunc
	onFocusGained    func()
	onFocusLost      func()

	focused bool

	hostThread chan func()
	done       chan struct{}

	log *slog.Logger
}

// NewConsoleAdapter starts the console adapter's host-thread worker.
func NewConsoleAdapter(log *slog.Logger) *ConsoleAdapter {
	if log == nil {
		log = slog.Default()
	}
	c := &ConsoleAdapter{
		open:       make(map[string]*EditorView),
		hostThread: make(chan func(), 64),
		done:       make(chan struct{}),
		log:        log,
		focused:    true,
	}
	go c.runHostThread()
	return c
}

func (c *ConsoleAdapter) runHostThread() {
	for {
		select {
		case fn := <-c.hostThread:
			fn()
		case <-c.done:
			return
		}
	}
}

// Stop shuts down the host-thread worker.
func (c *ConsoleAdapter) Stop() {
	close(c.done)
}

func (c *ConsoleAdapter) ScheduleOnHostThread(fn func()) {
	c.hostThread <- fn
}

func (c *ConsoleAdapter) OpenFile(path string, stealFocus bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.open[path]; !ok {
		c.open[path] = &EditorView{FilePath: path}
		c.log.Info("console: opened file", "path", path, "stealFocus", stealFocus)
	}
	if stealFocus {
		c.active = path
	}
	return nil
}

func (c *ConsoleAdapter) CloseFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.open[path]; !ok {
		return fmt.Errorf("console: %s not open", path)
	}
	delete(c.open, path)
	if c.active == path {
		c.active = ""
	}
	c.log.Info("console: closed file", "path", path)
	return nil
}

func (c *ConsoleAdapter) EnumerateOpenFiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.open))
	for p := range c.open {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (c *ConsoleAdapter) ActiveEditor() *EditorView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" {
		return nil
	}
	if v, ok := c.open[c.active]; ok {
		cp := *v
		return &cp
	}
	return nil
}

func (c *ConsoleAdapter) SetCursor(path string, caret Position, sel *Selection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.open[path]
	if !ok {
		return fmt.Errorf("console: %s not open", path)
	}
	v.Caret = caret
	v.Selection = sel
	c.log.Info("console: cursor set", "path", path, "line", caret.Line, "column", caret.Column)
	return nil
}

func (c *ConsoleAdapter) OnFileOpened(fn FileOpenedFunc)                         { c.onFileOpened = fn }
func (c *ConsoleAdapter) OnFileClosed(fn FileClosedFunc)                         { c.onFileClosed = fn }
func (c *ConsoleAdapter) OnActiveTabChanged(fn ActiveTabChangedFunc)             { c.onActiveChanged = fn }
func (c *ConsoleAdapter) OnCaretOrSelectionChanged(fn CaretOrSelectionChangedFunc) {
	c.onCaretOrSelChng = fn
}

func (c *ConsoleAdapter) OnFocusChanged(onGained, onLost func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFocusGained = onGained
	c.onFocusLost = onLost
	return nil
}

func (c *ConsoleAdapter) IsWindowFocused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// SimulateFocus lets the demo/test driver flip window focus, invoking the
// registered Host Adapter callback the way a real window manager would.
func (c *ConsoleAdapter) SimulateFocus(focused bool) {
	c.mu.Lock()
	c.focused = focused
	gained, lost := c.onFocusGained, c.onFocusLost
	c.mu.Unlock()
	if focused && gained != nil {
		gained()
	} else if !focused && lost != nil {
		lost()
	}
}

// SimulateOpen lets the demo/test driver fire a fileOpened callback.
func (c *ConsoleAdapter) SimulateOpen(path string, caret Position, sel *Selection) {
	c.mu.Lock()
	c.open[path] = &EditorView{FilePath: path, Caret: caret, Selection: sel}
	c.active = path
	fn := c.onFileOpened
	c.mu.Unlock()
	if fn != nil {
		fn(path, caret, sel)
	}
}

// SimulateNavigate lets the demo/test driver fire a caret/selection move.
func (c *ConsoleAdapter) SimulateNavigate(path string, caret Position, sel *Selection) {
	c.mu.Lock()
	if v, ok := c.open[path]; ok {
		v.Caret = caret
		v.Selection = sel
	}
	fn := c.onCaretOrSelChng
	c.mu.Unlock()
	if fn != nil {
		fn(path, caret, sel)
	}
}

// SimulateClose lets the demo/test driver fire a fileClosed callback.
func (c *ConsoleAdapter) SimulateClose(path string, stillVisible bool) {
	c.mu.Lock()
	if !stillVisible {
		delete(c.open, path)
	}
	fn := c.onFileClosed
	c.mu.Unlock()
	if fn != nil {
		fn(path, stillVisible)
	}
}
