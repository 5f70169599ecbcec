package auraclient

import (
	"context"
	"sync"
	"time"
)

type queueEntry struct {
	ctx  context.Context
	run  func()
	err  error
	done chan struct{}
}

type queueLane struct {
	entries      []*queueEntry
	draining     bool
	lastDispatch time.Time
}

// RateLimitedQueue serializes dispatch of calls sharing a key so no two
// dispatches for that key occur closer together than the minimum interval.
// Entries for one key run strictly in FIFO order; lanes for different keys
// are fully independent.
type RateLimitedQueue struct {
	mu          sync.Mutex
	minInterval time.Duration
	clock       Clock
	lanes       map[string]*queueLane
}

// NewRateLimitedQueue creates a queue enforcing minInterval between
// dispatches sharing a key.
func NewRateLimitedQueue(minInterval time.Duration, clock Clock) *RateLimitedQueue {
	if clock == nil {
		clock = systemClock{}
	}
	return &RateLimitedQueue{
		minInterval: minInterval,
		clock:       clock,
		lanes:       make(map[string]*queueLane),
	}
}

// Do enqueues task on the lane for key and blocks until it has run or ctx is
// canceled. A canceled entry is skipped by the drain loop without consuming
// a dispatch slot.
func (q *RateLimitedQueue) Do(ctx context.Context, key string, task func()) error {
	entry := &queueEntry{
		ctx:  ctx,
		run:  task,
		done: make(chan struct{}),
	}

	q.mu.Lock()
	lane, ok := q.lanes[key]
	if !ok {
		lane = &queueLane{}
		q.lanes[key] = lane
	}
	lane.entries = append(lane.entries, entry)
	if !lane.draining {
		lane.draining = true
		go q.drain(key, lane)
	}
	q.mu.Unlock()

	select {
	case <-entry.done:
		return entry.err
	case <-ctx.Done():
		// The drain loop discards the entry when it reaches it.
		return ctx.Err()
	}
}

// Depth returns the number of queued entries for key.
func (q *RateLimitedQueue) Depth(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	lane, ok := q.lanes[key]
	if !ok {
		return 0
	}
	return len(lane.entries)
}

// drain is the single loop processing one lane. It exits when the lane is
// empty; the next enqueue starts a fresh loop.
func (q *RateLimitedQueue) drain(key string, lane *queueLane) {
	for {
		q.mu.Lock()
		if len(lane.entries) == 0 {
			lane.draining = false
			q.mu.Unlock()
			return
		}
		entry := lane.entries[0]
		lane.entries = lane.entries[1:]
		wait := q.minInterval - q.clock.Now().Sub(lane.lastDispatch)
		q.mu.Unlock()

		if entry.ctx.Err() != nil {
			entry.err = entry.ctx.Err()
			close(entry.done)
			continue
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-entry.ctx.Done():
				timer.Stop()
				entry.err = entry.ctx.Err()
				close(entry.done)
				continue
			}
		}

		q.mu.Lock()
		lane.lastDispatch = q.clock.Now()
		q.mu.Unlock()

		entry.run()
		close(entry.done)
	}
}
