// Package transport implements the Transport component (C7): an at-most-one
// bidirectional loopback TCP message stream with role asymmetry (listener vs
// scanner), newline-delimited JSON framing, handshake, and heartbeat.
package transport

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loopsync/core/internal/metrics"
	"github.com/loopsync/core/internal/pathnorm"
	"github.com/loopsync/core/internal/wire"
)

// Role fixes, per spec §9, which side binds (listener) and which side scans
// and connects (scanner). Roles are static per build/config, never
// negotiated at runtime.
type Role string

const (
	RoleListener Role = "listener"
	RoleScanner  Role = "scanner"
)

const (
	scanPortFrom = 3000
	scanPortTo   = 4000

	scannerDialTimeout = 500 * time.Millisecond
	retryBackoff       = 5 * time.Second

	heartbeatInterval = 2 * time.Second
	heartbeatTimeout  = 6 * time.Second
)

// Config configures one side of a sync session.
type Config struct {
	Role          Role
	ProjectPath   string
	IDEType       string
	IDEName       string
	UseCustomPort bool
	CustomPort    int
}

// ReceiveFunc receives one already-classified sync message line (heartbeat
// and handshake frames never reach this callback — spec §4.1).
type ReceiveFunc func(line []byte)

// Transport is the contract both roles satisfy (spec §4.1).
type Transport interface {
	SetCallback(fn ReceiveFunc)
	SetConnCallbacks(cb Callbacks)
	Enable()
	Disable()
	Send(w wire.MessageWrapper) bool
	Restart()
	State() ConnState
	Close()
}

// activeConn is the single live connection a TCPTransport may hold, plus the
// machinery to tear it down atomically when a newer one replaces it
// (spec invariant 6).
type activeConn struct {
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc

	// traceID never crosses the wire; it exists purely so log lines about
	// this connection (adopt, demote, read errors) can be correlated
	// without a format contract the way messageId/instanceId have one.
	traceID string

	lastBeat atomic64
}

// TCPTransport implements Transport over loopback TCP.
type TCPTransport struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	state stateTracker

	mu       sync.Mutex
	receive  ReceiveFunc
	current  *activeConn
	enabled  bool
	runCtx   context.Context
	runCancel context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a TCPTransport for the given role and configuration.
func New(cfg Config, m *metrics.Metrics, log *slog.Logger) *TCPTransport {
	if log == nil {
		log = slog.Default()
	}
	return &TCPTransport{cfg: cfg, log: log, metrics: m}
}

func (t *TCPTransport) SetCallback(fn ReceiveFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receive = fn
}

func (t *TCPTransport) SetConnCallbacks(cb Callbacks) {
	t.state.setCallbacks(cb)
}

func (t *TCPTransport) State() ConnState {
	return t.state.get()
}

// Enable starts auto-reconnect: DISCONNECTED -> CONNECTING, and launches the
// role-appropriate accept/scan loop (spec §4.1 state machine).
func (t *TCPTransport) Enable() {
	t.mu.Lock()
	if t.enabled {
		t.mu.Unlock()
		return
	}
	t.enabled = true
	t.runCtx, t.runCancel = context.WithCancel(context.Background())
	ctx := t.runCtx
	t.mu.Unlock()

	t.state.transition(Connecting)
	t.setConnMetric(Connecting)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		switch t.cfg.Role {
		case RoleListener:
			t.runListener(ctx)
		default:
			t.runScanner(ctx)
		}
	}()
}

// Disable stops auto-reconnect and tears down any live connection
// (-> DISCONNECTED).
func (t *TCPTransport) Disable() {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return
	}
	t.enabled = false
	cancel := t.runCancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.teardownCurrent()
	t.state.transition(Disconnected)
	t.setConnMetric(Disconnected)
	t.wg.Wait()
}

// Restart disables then re-enables the transport.
func (t *TCPTransport) Restart() {
	t.Disable()
	t.Enable()
}

// Close disables the transport permanently; safe to call multiple times.
func (t *TCPTransport) Close() {
	t.Disable()
}

// Send implements the §4.1 send semantics: false if not CONNECTED, oversized
// messages are dropped with a warning, a write failure demotes to
// CONNECTING.
func (t *TCPTransport) Send(w wire.MessageWrapper) bool {
	if t.state.get() != Connected {
		return false
	}

	t.mu.Lock()
	cur := t.current
	t.mu.Unlock()
	if cur == nil {
		return false
	}

	data, err := w.Marshal()
	if err != nil {
		t.log.Error("transport: marshal failed", "error", err)
		return false
	}
	if len(data) > wire.MaxMessageBytes {
		t.log.Warn("transport: dropping oversized outbound message", "bytes", len(data))
		if t.metrics != nil {
			t.metrics.MessagesDropped.Inc()
		}
		return false
	}

	cur.writeMu.Lock()
	_, err = cur.conn.Write(data)
	cur.writeMu.Unlock()
	if err != nil {
		t.log.Warn("transport: write failed, demoting connection", "error", err)
		t.demote(cur)
		return false
	}
	return true
}

// pathMatches applies the §4.1 path-match rule between our configured
// project path and the peer's advertised one.
func (t *TCPTransport) pathMatches(peerPath string) bool {
	return pathnorm.PathMatch(t.cfg.ProjectPath, peerPath)
}

func (t *TCPTransport) setConnMetric(s ConnState) {
	if t.metrics == nil {
		return
	}
	t.metrics.ConnectionState.Set(float64(s))
}

// adopt replaces the current connection with conn, closing and cancelling
// whatever was there before (spec invariant 6: newer handshake wins
// atomically), then spins up its reader and heartbeat loops. reader, if
// non-nil, is the bufio.Reader the handshake step already read from (so any
// bytes it buffered past the handshake line are not lost); otherwise a fresh
// one is created.
func (t *TCPTransport) adopt(ctx context.Context, conn net.Conn, reader *bufio.Reader) *activeConn {
	if reader == nil {
		reader = bufio.NewReader(conn)
	}
	connCtx, cancel := context.WithCancel(ctx)
	ac := &activeConn{conn: conn, reader: reader, ctx: connCtx, cancel: cancel, traceID: uuid.NewString()}
	ac.lastBeat.store(time.Now())

	t.mu.Lock()
	old := t.current
	t.current = ac
	t.mu.Unlock()

	if old != nil {
		old.cancel()
		old.conn.Close()
	}

	t.state.transition(Connected)
	t.setConnMetric(Connected)
	t.log.Info("transport: connection adopted", "trace", ac.traceID)

	t.wg.Add(2)
	go func() { defer t.wg.Done(); t.readLoop(connCtx, ac) }()
	go func() { defer t.wg.Done(); t.heartbeatLoop(connCtx, ac) }()

	return ac
}

// demote tears down conn (if it is still the current one) and transitions
// back to CONNECTING, matching the "peer closes / read error / heartbeat
// timeout" edges of the §4.1 state machine.
func (t *TCPTransport) demote(conn *activeConn) {
	t.mu.Lock()
	isCurrent := t.current == conn
	if isCurrent {
		t.current = nil
	}
	t.mu.Unlock()

	if !isCurrent {
		return
	}
	t.log.Info("transport: connection demoted", "trace", conn.traceID)
	conn.cancel()
	conn.conn.Close()

	t.mu.Lock()
	enabled := t.enabled
	t.mu.Unlock()
	if !enabled {
		return
	}
	t.state.transition(Connecting)
	t.setConnMetric(Connecting)
	if t.metrics != nil {
		t.metrics.Reconnects.Inc()
	}
}

func (t *TCPTransport) teardownCurrent() {
	t.mu.Lock()
	cur := t.current
	t.current = nil
	t.mu.Unlock()
	if cur != nil {
		cur.cancel()
		cur.conn.Close()
	}
}

// readLoop implements the §4.1 framing rule: accept partial reads, split on
// '\n', retain the trailing unterminated segment. Heartbeat/handshake
// control frames are handled inline; sync messages are handed to the
// ReceiveFunc.
func (t *TCPTransport) readLoop(ctx context.Context, ac *activeConn) {
	reader := ac.reader
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() == nil {
				t.log.Info("transport: read error, demoting", "error", err)
				t.demote(ac)
			}
			return
		}
		line = trimNewline(line)
		if len(line) == 0 {
			continue
		}
		if len(line) > wire.MaxMessageBytes {
			t.log.Warn("transport: dropping oversized inbound line", "bytes", len(line))
			continue
		}

		kind, err := wire.Classify(line)
		if err != nil {
			t.log.Warn("transport: malformed line dropped", "error", err)
			continue
		}

		switch kind {
		case wire.ControlHeartbeat:
			ac.lastBeat.store(time.Now())
			t.replyHeartbeatAck(ac)
		case wire.ControlHeartbeatAck:
			ac.lastBeat.store(time.Now())
		case wire.ControlHandshake, wire.ControlHandshakeAck:
			// Handshake frames outside the handshake step are ignored; a
			// legitimate renegotiation arrives as a brand new TCP connection
			// (spec invariant 6), not a mid-stream control frame.
		default:
			t.mu.Lock()
			recv := t.receive
			t.mu.Unlock()
			if recv != nil {
				recv(line)
			}
		}
	}
}

func (t *TCPTransport) replyHeartbeatAck(ac *activeConn) {
	ack := wire.HeartbeatAck{Type: wire.ControlHeartbeatAck, Timestamp: time.Now().UnixMilli()}
	t.writeJSON(ac, ack)
}

// heartbeatLoop emits a HEARTBEAT every 2s and tears the connection down if
// none has been received from the peer within 6s (spec §4.1).
func (t *TCPTransport) heartbeatLoop(ctx context.Context, ac *activeConn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	watchdog := time.NewTicker(500 * time.Millisecond)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := wire.Heartbeat{Type: wire.ControlHeartbeat, Timestamp: time.Now().UnixMilli(), ProjectPath: t.cfg.ProjectPath}
			if !t.writeJSON(ac, hb) {
				return
			}
		case <-watchdog.C:
			if time.Since(ac.lastBeat.load()) > heartbeatTimeout {
				t.log.Warn("transport: heartbeat timeout, demoting connection")
				if t.metrics != nil {
					t.metrics.HeartbeatMisses.Inc()
				}
				t.demote(ac)
				return
			}
		}
	}
}

func (t *TCPTransport) writeJSON(ac *activeConn, v interface{}) bool {
	data, err := marshalLine(v)
	if err != nil {
		t.log.Error("transport: marshal control frame failed", "error", err)
		return false
	}
	ac.writeMu.Lock()
	_, err = ac.conn.Write(data)
	ac.writeMu.Unlock()
	if err != nil {
		t.demote(ac)
		return false
	}
	return true
}

func trimNewline(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
