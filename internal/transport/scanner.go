package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"
)

// runScanner implements the scanner-side port policy (spec §4.1): try the
// custom port first if configured, else sweep [3000, 4000]; on a path match,
// adopt the connection and wait for it to drop, then resume scanning after a
// 5s backoff.
func (t *TCPTransport) runScanner(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		ac := t.scanOnce(ctx)
		if ac == nil {
			if !sleepOrDone(ctx, retryBackoff) {
				return
			}
			continue
		}

		// Connected: wait here until this connection is torn down, then
		// schedule a rescan in 5s (spec §4.1 CONNECTED -> CONNECTING edge).
		<-ac.ctx.Done()
		if ctx.Err() != nil {
			return
		}
		if !sleepOrDone(ctx, retryBackoff) {
			return
		}
	}
}

// scanOnce makes one sweep of candidate ports and returns the adopted
// connection on the first successful handshake, or nil if none matched.
func (t *TCPTransport) scanOnce(ctx context.Context) *activeConn {
	if t.cfg.UseCustomPort {
		if ac := t.tryPort(ctx, t.cfg.CustomPort); ac != nil {
			return ac
		}
	}
	for port := scanPortFrom; port <= scanPortTo; port++ {
		if ctx.Err() != nil {
			return nil
		}
		if ac := t.tryPort(ctx, port); ac != nil {
			return ac
		}
	}
	return nil
}

// tryPort dials one candidate port and, on a successful handshake (HANDSHAKE
// received, path matches, HANDSHAKE_ACK sent), adopts the connection.
func (t *TCPTransport) tryPort(ctx context.Context, port int) *activeConn {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, scannerDialTimeout)
	if err != nil {
		return nil
	}

	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(handshakeAckTimeout))
	line, err := readOneLine(reader)
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return nil
	}

	hs, err := parseHandshake(line)
	if err != nil {
		t.log.Warn("transport: malformed handshake from peer", "error", err, "port", port)
		conn.Close()
		return nil
	}

	if !t.pathMatches(hs.ProjectPath) {
		conn.Close()
		return nil
	}

	ack := handshakeAckMessage(t.cfg)
	data, err := marshalLine(ack)
	if err != nil {
		conn.Close()
		return nil
	}
	if _, err := conn.Write(data); err != nil {
		conn.Close()
		return nil
	}

	t.log.Info("transport: handshake complete", "peer", hs.IDEName, "port", port)
	return t.adopt(ctx, conn, reader)
}
