// Package queue implements the Send Queue (C4): a bounded, single-reader
// FIFO of outbound EditorState values drained by one worker that wraps each
// as a MessageWrapper and hands it to the Transport.
package queue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/loopsync/core/internal/identity"
	"github.com/loopsync/core/internal/metrics"
	"github.com/loopsync/core/internal/wire"
)

// Capacity is the bounded FIFO size (spec §3).
const Capacity = 100

// DrainInterval is the worker's post-send sleep used to smooth bursts
// (spec §4.2).
const DrainInterval = 50 * time.Millisecond

// Sender is the Transport's send primitive, as seen by the queue worker.
type Sender interface {
	Send(wrapper wire.MessageWrapper) bool
}

// Queue is the bounded FIFO plus its single drain worker.
type Queue struct {
	identity *identity.Identity
	sender   Sender
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu      sync.Mutex
	items   []wire.EditorState
	notify  chan struct{}
	done    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Send Queue and starts its drain worker.
func New(id *identity.Identity, sender Sender, m *metrics.Metrics, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		identity: id,
		sender:   sender,
		metrics:  m,
		log:      log,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue adds state to the queue. It never blocks: on overflow, the oldest
// element is dropped (with a warning) before the new one is added (spec §3).
func (q *Queue) Enqueue(state wire.EditorState) {
	q.mu.Lock()
	if len(q.items) >= Capacity {
		q.items = q.items[1:]
		q.log.Warn("send queue full, dropping oldest item")
		if q.metrics != nil {
			q.metrics.QueueDropped.Inc()
		}
	}
	q.items = append(q.items, state)
	depth := len(q.items)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(depth))
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len reports the current queue depth (for tests and metrics).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() (wire.EditorState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wire.EditorState{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		item, ok := q.pop()
		if !ok {
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}

		wrapper := wire.NewMessageWrapper(q.identity.ID(), q.identity.NextSequence(), item)
		sent := q.sender.Send(wrapper)
		if q.metrics != nil {
			if sent {
				q.metrics.MessagesSent.Inc()
			} else {
				q.metrics.MessagesDropped.Inc()
			}
		}

		select {
		case <-time.After(DrainInterval):
		case <-q.done:
			return
		}
	}
}

// Close stops the worker, clearing remaining items, and waits up to 5s for
// it to exit (spec §4.2, §5).
func (q *Queue) Close() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.items = nil
	q.mu.Unlock()

	close(q.done)

	waitDone := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		q.log.Warn("send queue worker did not exit within shutdown timeout")
	}
}
