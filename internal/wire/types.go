// Package wire defines the on-the-wire data model shared by both sides of a
// sync session: the EditorState payload, the MessageWrapper envelope, and
// the control messages exchanged during handshake and heartbeat.
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action identifies what an EditorState asks the receiving side to do.
type Action string

const (
	ActionOpen          Action = "OPEN"
	ActionClose         Action = "CLOSE"
	ActionNavigate      Action = "NAVIGATE"
	ActionWorkspaceSync Action = "WORKSPACE_SYNC"
)

// Source tags which IDE family originated a message. Used only for logging.
type Source string

const (
	SourceA Source = "A"
	SourceB Source = "B"
)

// TimestampLayout is the fixed wall-clock format carried on EditorState.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000"

// FormatTimestamp renders t in the wire's fixed millisecond format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a wire timestamp produced by FormatTimestamp. The
// layout carries no zone, so the string is read in the local time zone, the
// same zone FormatTimestamp renders in.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}

// EditorState is the synchronized view of one editor's focus: what file is
// open, where the caret sits, and — for WORKSPACE_SYNC — the whole open set.
//
// Selection fields are all-or-nothing: either all four are present (a
// non-empty selection exists) or all four are omitted.
type EditorState struct {
	Action      Action   `json:"action"`
	FilePath    string   `json:"filePath"`
	Line        int      `json:"line"`
	Column      int      `json:"column"`
	Source      Source   `json:"source"`
	IsActive    bool     `json:"isActive"`
	Timestamp   string   `json:"timestamp"`
	OpenedFiles []string `json:"openedFiles,omitempty"`

	SelectionStartLine   *int `json:"selectionStartLine,omitempty"`
	SelectionStartColumn *int `json:"selectionStartColumn,omitempty"`
	SelectionEndLine     *int `json:"selectionEndLine,omitempty"`
	SelectionEndColumn   *int `json:"selectionEndColumn,omitempty"`

	// normalizedPath holds a normalized form of FilePath once a caller has
	// stored one with SetNormalizedPath; nothing computes or fills it
	// automatically.
	normalizedPath string
	normalized     bool
}

// HasSelection reports whether all four selection fields are present.
func (e *EditorState) HasSelection() bool {
	return e.SelectionStartLine != nil && e.SelectionStartColumn != nil &&
		e.SelectionEndLine != nil && e.SelectionEndColumn != nil
}

// ClearSelection removes any selection range, leaving a bare caret position.
func (e *EditorState) ClearSelection() {
	e.SelectionStartLine = nil
	e.SelectionStartColumn = nil
	e.SelectionEndLine = nil
	e.SelectionEndColumn = nil
}

// SetSelection sets a non-empty selection range. The caret (e.Line, e.Column)
// must separately be set to one of the two endpoints by the caller to
// preserve selection direction (spec invariant 5).
func (e *EditorState) SetSelection(startLine, startCol, endLine, endCol int) {
	e.SelectionStartLine = &startLine
	e.SelectionStartColumn = &startCol
	e.SelectionEndLine = &endLine
	e.SelectionEndColumn = &endCol
}

// CachedNormalizedPath returns the cached normalized path, and whether it has
// been stored yet. Only SetNormalizedPath populates it; pathnorm.Normalize
// neither reads nor fills this cache, and the reconciler normalizes paths
// directly on every comparison.
func (e *EditorState) CachedNormalizedPath() (string, bool) {
	return e.normalizedPath, e.normalized
}

// SetNormalizedPath stores the normalized path, computed once per value.
func (e *EditorState) SetNormalizedPath(p string) {
	e.normalizedPath = p
	e.normalized = true
}

// MessageWrapper is the envelope placed around every EditorState on the wire.
type MessageWrapper struct {
	MessageID string      `json:"messageId"`
	SenderID  string      `json:"senderId"`
	Timestamp int64       `json:"timestamp"`
	Payload   EditorState `json:"payload"`
}

// NewMessageWrapper builds a wrapper with a fresh messageId of the form
// "{instanceId}-{sequence}-{epochMs}" (spec §3).
func NewMessageWrapper(instanceID string, sequence uint64, payload EditorState) MessageWrapper {
	now := time.Now()
	return MessageWrapper{
		MessageID: fmt.Sprintf("%s-%d-%d", instanceID, sequence, now.UnixMilli()),
		SenderID:  instanceID,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}

// Marshal serializes the wrapper to a single newline-terminated JSON line.
func (m MessageWrapper) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal message wrapper: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalMessageWrapper parses one JSON line (without trailing newline) as
// a MessageWrapper.
func UnmarshalMessageWrapper(line []byte) (MessageWrapper, error) {
	var m MessageWrapper
	if err := json.Unmarshal(line, &m); err != nil {
		return MessageWrapper{}, fmt.Errorf("wire: unmarshal message wrapper: %w", err)
	}
	return m, nil
}

// MaxMessageBytes is the largest line the transport will send or accept
// before the message is dropped as oversized (spec §4.1 framing).
const MaxMessageBytes = 8 * 1024

// ControlType distinguishes the five wire message kinds. A sync message
// (MessageWrapper) is recognized by the *absence* of a known control "type"
// field, per spec §6.
type ControlType string

const (
	ControlHandshake    ControlType = "HANDSHAKE"
	ControlHandshakeAck ControlType = "HANDSHAKE_ACK"
	ControlHeartbeat    ControlType = "HEARTBEAT"
	ControlHeartbeatAck ControlType = "HEARTBEAT_ACK"
)

// Handshake is sent by the listener on accept.
type Handshake struct {
	Type        ControlType `json:"type"`
	ProjectPath string      `json:"projectPath"`
	IDEType     string      `json:"ideType"`
	IDEName     string      `json:"ideName"`
	Port        int         `json:"port"`
}

// HandshakeAck is sent by the scanner once the project path matches.
type HandshakeAck struct {
	Type        ControlType `json:"type"`
	ProjectPath string      `json:"projectPath"`
	IDEType     string      `json:"ideType"`
	IDEName     string      `json:"ideName"`
}

// Heartbeat is sent periodically by either side once CONNECTED.
type Heartbeat struct {
	Type        ControlType `json:"type"`
	Timestamp   int64       `json:"timestamp"`
	ProjectPath string      `json:"projectPath"`
}

// HeartbeatAck replies to a Heartbeat.
type HeartbeatAck struct {
	Type      ControlType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// probeType is used only to sniff the "type" field of an arbitrary line
// without committing to a concrete struct.
type probeType struct {
	Type ControlType `json:"type"`
}

// Classify inspects a raw line and reports which control type (if any) it
// carries. An empty ControlType means the line is a sync MessageWrapper.
func Classify(line []byte) (ControlType, error) {
	var p probeType
	if err := json.Unmarshal(line, &p); err != nil {
		return "", fmt.Errorf("wire: classify: %w", err)
	}
	return p.Type, nil
}
