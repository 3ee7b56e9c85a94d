package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageWrapperRoundTrip(t *testing.T) {
	payload := EditorState{
		Action:      ActionNavigate,
		FilePath:    "/home/u/proj/main.go",
		Line:        10,
		Column:      4,
		Source:      SourceA,
		IsActive:    true,
		Timestamp:   FormatTimestamp(time.Now()),
		OpenedFiles: nil,
	}
	payload.SetSelection(10, 0, 10, 4)

	wrapper := NewMessageWrapper("host-abc123-42", 7, payload)

	data, err := wrapper.Marshal()
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	got, err := UnmarshalMessageWrapper(data[:len(data)-1])
	require.NoError(t, err)

	assert.Equal(t, wrapper.MessageID, got.MessageID)
	assert.Equal(t, wrapper.SenderID, got.SenderID)
	assert.Equal(t, wrapper.Timestamp, got.Timestamp)
	assert.Equal(t, wrapper.Payload.Action, got.Payload.Action)
	assert.Equal(t, wrapper.Payload.FilePath, got.Payload.FilePath)
	require.True(t, got.Payload.HasSelection())
	assert.Equal(t, *wrapper.Payload.SelectionStartLine, *got.Payload.SelectionStartLine)
	assert.Equal(t, *wrapper.Payload.SelectionEndColumn, *got.Payload.SelectionEndColumn)
}

func TestEditorStateSelectionAbsentByDefault(t *testing.T) {
	e := EditorState{Action: ActionNavigate, Line: 1, Column: 1}
	assert.False(t, e.HasSelection())

	data, err := (MessageWrapper{Payload: e}).Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "selectionStartLine")
}

func TestClassifyDistinguishesControlFromSync(t *testing.T) {
	hs := Handshake{Type: ControlHandshake, ProjectPath: "/home/u/proj", IDEType: "X", IDEName: "X 1.0", Port: 3000}
	data, err := json.Marshal(hs)
	require.NoError(t, err)

	kind, err := Classify(data)
	require.NoError(t, err)
	assert.Equal(t, ControlHandshake, kind)

	sync := NewMessageWrapper("self-1", 1, EditorState{Action: ActionOpen})
	syncData, err := sync.Marshal()
	require.NoError(t, err)

	kind, err = Classify(syncData[:len(syncData)-1])
	require.NoError(t, err)
	assert.Equal(t, ControlType(""), kind)
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	s := FormatTimestamp(now)
	parsed, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, now.Equal(parsed) || now.UTC().Equal(parsed.UTC()))
}
