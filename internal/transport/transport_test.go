package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopsync/core/internal/metrics"
	"github.com/loopsync/core/internal/wire"
)

func newPairConfig(path string) (Config, Config) {
	listener := Config{
		Role:        RoleListener,
		ProjectPath: path,
		IDEType:     "ideA",
		IDEName:     "A",
	}
	scanner := Config{
		Role:        RoleScanner,
		ProjectPath: path,
		IDEType:     "ideB",
		IDEName:     "B",
	}
	return listener, scanner
}

func waitForState(t *testing.T, tr *TCPTransport, want ConnState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tr.State() == want
	}, 5*time.Second, 20*time.Millisecond, "expected state %s, got %s", want, tr.State())
}

func TestHandshakeSucceedsOnMatchingPath(t *testing.T) {
	lCfg, sCfg := newPairConfig("/workspace/proj")

	l := New(lCfg, metrics.NewForTest(), nil)
	s := New(sCfg, metrics.NewForTest(), nil)
	defer l.Close()
	defer s.Close()

	l.Enable()
	s.Enable()

	waitForState(t, l, Connected)
	waitForState(t, s, Connected)
}

func TestHandshakeRejectsPathMismatch(t *testing.T) {
	lCfg, sCfg := newPairConfig("/workspace/proj-a")
	sCfg.ProjectPath = "/somewhere/else/entirely"

	l := New(lCfg, metrics.NewForTest(), nil)
	s := New(sCfg, metrics.NewForTest(), nil)
	defer l.Close()
	defer s.Close()

	l.Enable()
	s.Enable()

	// Neither side should ever reach CONNECTED; both keep retrying.
	time.Sleep(300 * time.Millisecond)
	require.NotEqual(t, Connected, l.State())
	require.NotEqual(t, Connected, s.State())
}

func TestSendDeliversMessageEndToEnd(t *testing.T) {
	lCfg, sCfg := newPairConfig("/workspace/shared")

	l := New(lCfg, metrics.NewForTest(), nil)
	s := New(sCfg, metrics.NewForTest(), nil)
	defer l.Close()
	defer s.Close()

	received := make(chan []byte, 1)
	s.SetCallback(func(line []byte) { received <- line })

	l.Enable()
	s.Enable()
	waitForState(t, l, Connected)
	waitForState(t, s, Connected)

	state := wire.EditorState{Action: wire.ActionNavigate, FilePath: "/workspace/shared/main.go", Line: 10}
	wrapper := wire.NewMessageWrapper("inst-a", 1, state)
	require.True(t, l.Send(wrapper))

	select {
	case line := <-received:
		got, err := wire.UnmarshalMessageWrapper(line)
		require.NoError(t, err)
		require.Equal(t, state.FilePath, got.Payload.FilePath)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSeveredConnectionDemotesBothSides(t *testing.T) {
	lCfg, sCfg := newPairConfig("/workspace/hb")

	l := New(lCfg, metrics.NewForTest(), nil)
	s := New(sCfg, metrics.NewForTest(), nil)
	defer l.Close()
	defer s.Close()

	l.Enable()
	s.Enable()
	waitForState(t, l, Connected)
	waitForState(t, s, Connected)

	// Sever the underlying connection without going through Disable, so the
	// only thing that can notice is the heartbeat watchdog / read error.
	l.mu.Lock()
	cur := l.current
	l.mu.Unlock()
	require.NotNil(t, cur)
	cur.conn.Close()

	waitForState(t, l, Connecting)
	waitForState(t, s, Connecting)
}
