// Package inbound implements the Inbound Processor (C5): parse, filter
// self-traffic, deduplicate, drop stale or observational messages, and
// dispatch whatever survives to the Apply/Reconciler.
package inbound

import (
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/loopsync/core/internal/metrics"
	"github.com/loopsync/core/internal/wire"
)

// DedupCapacity and DedupWindow bound the dedup table (spec §3).
const (
	DedupCapacity = 1000
	DedupWindow   = 300 * time.Second
	staleAfter    = 5 * time.Second
)

// Applier receives whatever survives filtering. It is the Apply/Reconciler's
// entry point; the core wires this to reconcile.Reconciler.Apply.
type Applier interface {
	Apply(state wire.EditorState)
}

// Processor implements the C5 pipeline described in spec §4.5.
type Processor struct {
	selfID  string
	apply   Applier
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	dedup map[string]time.Time
	// order records arrival order for overflow eviction (oldest first),
	// independent of the 300s age-based sweep.
	order []string
}

// New creates a Processor that drops its own instance's echoed traffic and
// hands everything else that survives filtering to apply.
func New(selfID string, apply Applier, m *metrics.Metrics, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		selfID:  selfID,
		apply:   apply,
		metrics: m,
		log:     log,
		now:     time.Now,
		dedup:   make(map[string]time.Time),
	}
}

// HandleLine runs one raw wire line through the full C5 pipeline.
func (p *Processor) HandleLine(line []byte) {
	wrapper, err := wire.UnmarshalMessageWrapper(line)
	if err != nil {
		p.log.Warn("inbound: malformed message dropped", "error", err)
		return
	}
	p.Handle(wrapper)
}

// Handle runs one already-parsed MessageWrapper through steps 2-5 of §4.5.
func (p *Processor) Handle(wrapper wire.MessageWrapper) {
	if p.metrics != nil {
		p.metrics.MessagesReceived.Inc()
	}

	if wrapper.SenderID == p.selfID {
		return
	}

	if p.isDuplicate(wrapper.MessageID) {
		if p.metrics != nil {
			p.metrics.MessagesDeduped.Inc()
		}
		return
	}

	state := wrapper.Payload
	if !state.IsActive {
		return
	}

	sentAt, err := wire.ParseTimestamp(state.Timestamp)
	if err != nil {
		p.log.Warn("inbound: unparsable timestamp dropped", "error", err)
		return
	}
	if p.now().Sub(sentAt) > staleAfter {
		if p.metrics != nil {
			p.metrics.MessagesStale.Inc()
		}
		return
	}

	if p.metrics != nil {
		p.metrics.MessagesApplied.WithLabelValues(string(state.Action)).Inc()
	}
	p.apply.Apply(state)
}

// isDuplicate reports whether id is already in the dedup table, inserting it
// if not, and sweeps expired/overflowing entries (spec §4.5 steps 3-4).
//
// messageId is hashed into a fixed-size bucket key before use: a
// capacity-≤1000 table must not grow unboundedly wide just because a buggy
// peer sends arbitrarily long message IDs.
func (p *Processor) isDuplicate(id string) bool {
	key := dedupKey(id)
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, seen := p.dedup[key]; seen {
		return true
	}
	p.dedup[key] = now
	p.order = append(p.order, key)

	p.evictExpiredLocked(now)
	p.evictOverflowLocked()
	return false
}

func dedupKey(messageID string) string {
	sum := blake2b.Sum256([]byte(messageID))
	return hex.EncodeToString(sum[:])
}

func (p *Processor) evictExpiredLocked(now time.Time) {
	kept := p.order[:0]
	for _, id := range p.order {
		t, ok := p.dedup[id]
		if !ok {
			continue
		}
		if now.Sub(t) > DedupWindow {
			delete(p.dedup, id)
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
}

func (p *Processor) evictOverflowLocked() {
	for len(p.dedup) > DedupCapacity && len(p.order) > 0 {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.dedup, oldest)
	}
}
