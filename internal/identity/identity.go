// Package identity derives the stable per-instance identifier (C1) used to
// tag outbound messages and to recognize — and drop — a peer's echo of our
// own traffic.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"
)

// Identity is immutable after first read: hostname, project hash, and pid
// never change for the lifetime of the process.
type Identity struct {
	id       string
	sequence atomic.Uint64
}

// New derives the instance identity from the local hostname, a truncated
// MD5 of the project path, and the current process ID:
// "{hostname}-{md5(projectPath)[0..6]}-{pid}" (spec §3).
func New(projectPath string) (*Identity, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("identity: read hostname: %w", err)
	}
	sum := md5.Sum([]byte(projectPath))
	short := hex.EncodeToString(sum[:])[:6]
	return &Identity{
		id: fmt.Sprintf("%s-%s-%d", hostname, short, os.Getpid()),
	}, nil
}

// NewWithHostAndPID builds an identity from explicit hostname/pid, for tests
// and for hosts where os.Hostname/os.Getpid should not drive production
// behavior directly.
func NewWithHostAndPID(hostname, projectPath string, pid int) *Identity {
	sum := md5.Sum([]byte(projectPath))
	short := hex.EncodeToString(sum[:])[:6]
	return &Identity{id: fmt.Sprintf("%s-%s-%d", hostname, short, pid)}
}

// ID returns the instance identifier.
func (i *Identity) ID() string {
	return i.id
}

// NextSequence returns a monotonically increasing sequence number, starting
// at 1, used to build message IDs ("{instanceId}-{sequence}-{epochMs}").
func (i *Identity) NextSequence() uint64 {
	return i.sequence.Add(1)
}
