package inbound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopsync/core/internal/metrics"
	"github.com/loopsync/core/internal/wire"
)

type fakeApplier struct {
	applied []wire.EditorState
}

func (f *fakeApplier) Apply(state wire.EditorState) {
	f.applied = append(f.applied, state)
}

func freshWrapper(sender string, seq uint64, action wire.Action, active bool, ts time.Time) wire.MessageWrapper {
	w := wire.NewMessageWrapper(sender, seq, wire.EditorState{
		Action:    action,
		FilePath:  "/proj/main.go",
		IsActive:  active,
		Timestamp: wire.FormatTimestamp(ts),
	})
	return w
}

func TestSelfMessagesAreDroppedSilently(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	w := freshWrapper("self-1", 1, wire.ActionNavigate, true, time.Now())
	p.Handle(w)

	assert.Empty(t, applier.applied)
}

func TestDuplicateMessageIDDroppedSecondTime(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	w := freshWrapper("peer-1", 1, wire.ActionNavigate, true, time.Now())
	p.Handle(w)
	p.Handle(w)

	require.Len(t, applier.applied, 1)
}

func TestInactivePayloadDropped(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	w := freshWrapper("peer-1", 1, wire.ActionNavigate, false, time.Now())
	p.Handle(w)

	assert.Empty(t, applier.applied)
}

func TestStalePayloadDropped(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	w := freshWrapper("peer-1", 1, wire.ActionNavigate, true, time.Now().Add(-10*time.Second))
	p.Handle(w)

	assert.Empty(t, applier.applied)
}

func TestFreshActiveMessageIsApplied(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	w := freshWrapper("peer-1", 1, wire.ActionOpen, true, time.Now())
	p.Handle(w)

	require.Len(t, applier.applied, 1)
	assert.Equal(t, wire.ActionOpen, applier.applied[0].Action)
}

func TestDedupOverflowEvictsOldestInArrivalOrder(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	for i := 0; i < DedupCapacity; i++ {
		w := freshWrapper("peer-1", uint64(i), wire.Action("NAVIGATE"), false, time.Now())
		p.Handle(w)
	}
	p.mu.Lock()
	firstID := p.order[0]
	size := len(p.dedup)
	p.mu.Unlock()
	require.Equal(t, DedupCapacity, size)

	overflow := freshWrapper("peer-1", uint64(DedupCapacity), wire.Action("NAVIGATE"), false, time.Now())
	p.Handle(overflow)

	p.mu.Lock()
	_, stillThere := p.dedup[firstID]
	newSize := len(p.dedup)
	p.mu.Unlock()

	assert.False(t, stillThere)
	assert.LessOrEqual(t, newSize, DedupCapacity)
}

func TestMalformedLineDropped(t *testing.T) {
	applier := &fakeApplier{}
	p := New("self-1", applier, metrics.NewForTest(), nil)

	p.HandleLine([]byte("{not json"))

	assert.Empty(t, applier.applied)
}
