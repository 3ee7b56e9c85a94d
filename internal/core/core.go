// Package core wires together the seven cooperating components (C1-C7) into
// one process lifecycle: Identity, Window State, Event Ingest, Send Queue,
// Inbound Processor, Apply/Reconciler, and Transport.
package core

import (
	"log/slog"

	"github.com/loopsync/core/internal/focus"
	"github.com/loopsync/core/internal/hostadapter"
	"github.com/loopsync/core/internal/identity"
	"github.com/loopsync/core/internal/inbound"
	"github.com/loopsync/core/internal/ingest"
	"github.com/loopsync/core/internal/metrics"
	"github.com/loopsync/core/internal/pathnorm"
	"github.com/loopsync/core/internal/queue"
	"github.com/loopsync/core/internal/reconcile"
	"github.com/loopsync/core/internal/transport"
	"github.com/loopsync/core/internal/wire"
)

// Options configures a Core instance. It mirrors the recognized
// configuration options of spec §6 plus what's needed to construct the
// Host Adapter binding.
type Options struct {
	Role          transport.Role
	ProjectPath   string
	IDEType       string
	IDEName       string
	Source        wire.Source
	Family        pathnorm.Family
	UseCustomPort bool
	CustomPort    int
	AutoStartSync bool
}

// Core owns one sync session: it wires the outbound path (Ingest -> Queue ->
// Transport) and the inbound path (Transport -> Inbound -> Reconciler)
// around a single Host Adapter.
type Core struct {
	opts    Options
	log     *slog.Logger
	metrics *metrics.Metrics

	id        *identity.Identity
	window    *focus.State
	ingest    *ingest.Ingest
	queue     *queue.Queue
	transport *transport.TCPTransport
	inbound   *inbound.Processor
	reconcile *reconcile.Reconciler

	host hostadapter.HostAdapter
}

// New builds a Core around the given Host Adapter. Identity is derived here
// (spec §3); nothing is started until Start is called.
func New(opts Options, host hostadapter.HostAdapter, log *slog.Logger) (*Core, error) {
	if log == nil {
		log = slog.Default()
	}
	id, err := identity.New(opts.ProjectPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	c := &Core{opts: opts, log: log, metrics: m, id: id, host: host}

	c.window = focus.New(host.IsWindowFocused, log)
	c.window.SetOnChange(c.onFocusChange)

	c.transport = transport.New(transport.Config{
		Role:          opts.Role,
		ProjectPath:   opts.ProjectPath,
		IDEType:       opts.IDEType,
		IDEName:       opts.IDEName,
		UseCustomPort: opts.UseCustomPort,
		CustomPort:    opts.CustomPort,
	}, m, log)

	c.reconcile = reconcile.New(host, c.window, opts.Family, log)
	c.inbound = inbound.New(id.ID(), c.reconcile, m, log)
	c.transport.SetCallback(c.inbound.HandleLine)
	c.transport.SetConnCallbacks(transport.Callbacks{
		OnConnected:    func() { log.Info("core: peer connected") },
		OnReconnecting: func() { log.Info("core: reconnecting") },
		OnDisconnected: func() { log.Info("core: disconnected") },
	})

	c.queue = queue.New(id, c.transport, m, log)
	c.ingest = ingest.New(opts.Source, c.queue, func() bool { return c.window.IsActive(false) }, log)

	return c, nil
}

// Start attaches Event Ingest and Window State to the Host Adapter and, if
// AutoStartSync is set, enables the Transport's auto-reconnect loop.
func (c *Core) Start() {
	c.ingest.Attach(c.host)
	c.window.AttachWithRetry(func(onFocusGained, onFocusLost func()) error {
		return c.host.OnFocusChanged(onFocusGained, onFocusLost)
	})
	if c.opts.AutoStartSync {
		c.Enable()
	}
}

// Enable turns on the Transport's auto-reconnect loop (idempotent).
func (c *Core) Enable() {
	c.transport.Enable()
}

// Disable turns off the Transport, tearing down any live connection.
func (c *Core) Disable() {
	c.transport.Disable()
}

// Stop releases everything Start acquired.
func (c *Core) Stop() {
	c.ingest.Close()
	c.transport.Close()
	c.queue.Close()
}

// State reports the current connection state.
func (c *Core) State() transport.ConnState {
	return c.transport.State()
}

// Metrics exposes the shared Prometheus collectors, e.g. for the debug
// server.
func (c *Core) Metrics() *metrics.Metrics {
	return c.metrics
}

// onFocusChange implements spec §4.4: on focus-lost, broadcast this
// instance's full tab set as a WORKSPACE_SYNC so the peer mirrors it.
//
// The message carries isActive=true even though the window is transitioning
// to inactive: it reports the authoritative tab set this window held while
// focused, and must survive the receiver's isActive filter (spec §4.5 step
// 5) to actually be applied.
func (c *Core) onFocusChange(isActive bool) {
	if isActive {
		return
	}
	state := wire.EditorState{
		Action:      wire.ActionWorkspaceSync,
		Source:      c.opts.Source,
		IsActive:    true,
		Timestamp:   wire.FormatTimestamp(hostadapter.RealClock()),
		OpenedFiles: c.host.EnumerateOpenFiles(),
	}
	if active := c.host.ActiveEditor(); active != nil {
		state.FilePath = active.FilePath
		state.Line = active.Caret.Line
		state.Column = active.Caret.Column
		if active.Selection != nil {
			state.SetSelection(active.Selection.Start.Line, active.Selection.Start.Column,
				active.Selection.End.Line, active.Selection.End.Column)
		}
	}
	c.queue.Enqueue(state)
}
