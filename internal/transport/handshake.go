package transport

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/loopsync/core/internal/wire"
)

// handshakeMessage builds the HANDSHAKE frame this side advertises.
func handshakeMessage(cfg Config, port int) wire.Handshake {
	return wire.Handshake{
		Type:        wire.ControlHandshake,
		ProjectPath: cfg.ProjectPath,
		IDEType:     cfg.IDEType,
		IDEName:     cfg.IDEName,
		Port:        port,
	}
}

// handshakeAckMessage builds the HANDSHAKE_ACK frame this side replies with.
func handshakeAckMessage(cfg Config) wire.HandshakeAck {
	return wire.HandshakeAck{
		Type:        wire.ControlHandshakeAck,
		ProjectPath: cfg.ProjectPath,
		IDEType:     cfg.IDEType,
		IDEName:     cfg.IDEName,
	}
}

func parseHandshake(line []byte) (wire.Handshake, error) {
	var h wire.Handshake
	if err := json.Unmarshal(line, &h); err != nil {
		return wire.Handshake{}, fmt.Errorf("transport: parse handshake: %w", err)
	}
	if h.Type != wire.ControlHandshake {
		return wire.Handshake{}, fmt.Errorf("transport: expected HANDSHAKE, got %q", h.Type)
	}
	return h, nil
}

func parseHandshakeAck(line []byte) (wire.HandshakeAck, error) {
	var a wire.HandshakeAck
	if err := json.Unmarshal(line, &a); err != nil {
		return wire.HandshakeAck{}, fmt.Errorf("transport: parse handshake ack: %w", err)
	}
	if a.Type != wire.ControlHandshakeAck {
		return wire.HandshakeAck{}, fmt.Errorf("transport: expected HANDSHAKE_ACK, got %q", a.Type)
	}
	return a, nil
}

// readOneLine reads a single newline-terminated frame from reader, honoring
// whatever read deadline the caller has already set on conn. The caller
// keeps reader alive and hands it to adopt afterward, so bytes the peer
// pipelines right behind the handshake line are never dropped.
func readOneLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return trimNewline(line), nil
}
