package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the backlog is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// Priority orders waiting jobs.
type Priority int

const (
	// PriorityNormal is used for CSV tracks.
	PriorityNormal Priority = iota
	// PriorityHigh jumps ahead of waiting CSV jobs; single texts are short.
	PriorityHigh
)

// JobQueue bounds how many jobs run concurrently and how many may wait.
type JobQueue struct {
	maxRunning int
	maxWaiting int

	mu      sync.Mutex
	running int
	waiting waitHeap
	seq     uint64
	closed  bool
	stats   Stats
	waited  time.Duration
}

// Stats tracks queue performance metrics
type Stats struct {
	Running         int
	Waiting         int
	PeakWaiting     int
	TotalAdmitted   int64
	TotalRejected   int64
	TotalCanceled   int64
	AverageWaitTime time.Duration
}

// New creates a queue running at most maxRunning jobs with at most
// maxWaiting jobs in the backlog. maxRunning below 1 is treated as 1 and a
// negative maxWaiting as 0.
func New(maxRunning, maxWaiting int) *JobQueue {
	if maxRunning < 1 {
		maxRunning = 1
	}
	if maxWaiting < 0 {
		maxWaiting = 0
	}
	return &JobQueue{maxRunning: maxRunning, maxWaiting: maxWaiting}
}

// Acquire blocks until the job may run. The returned release func must be
// called exactly once when the job finishes; extra calls are ignored.
func (q *JobQueue) Acquire(ctx context.Context, p Priority) (func(), error) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}

	if q.running < q.maxRunning && q.waiting.Len() == 0 {
		q.running++
		q.stats.TotalAdmitted++
		q.mu.Unlock()
		return q.releaser(), nil
	}

	if q.waiting.Len() >= q.maxWaiting {
		q.stats.TotalRejected++
		q.mu.Unlock()
		return nil, ErrQueueFull
	}

	w := &waiter{priority: p, seq: q.seq, ready: make(chan struct{}), since: time.Now()}
	q.seq++
	heap.Push(&q.waiting, w)
	if n := q.waiting.Len(); n > q.stats.PeakWaiting {
		q.stats.PeakWaiting = n
	}
	q.mu.Unlock()

	select {
	case <-w.ready:
		if w.err != nil {
			return nil, w.err
		}
		return q.releaser(), nil
	case <-ctx.Done():
		q.mu.Lock()
		select {
		case <-w.ready:
			// granted while we were giving up; hand the slot on
			q.mu.Unlock()
			if w.err == nil {
				q.releaser()()
			}
		default:
			heap.Remove(&q.waiting, w.index)
			q.stats.TotalCanceled++
			q.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

func (q *JobQueue) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.running--
			q.dispatch()
		})
	}
}

// dispatch hands free slots to waiters. Callers hold q.mu.
func (q *JobQueue) dispatch() {
	for q.running < q.maxRunning && q.waiting.Len() > 0 && !q.closed {
		w := heap.Pop(&q.waiting).(*waiter)
		q.running++
		q.stats.TotalAdmitted++
		q.waited += time.Since(w.since)
		close(w.ready)
	}
}

// Stats returns current queue statistics.
func (q *JobQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.Running = q.running
	stats.Waiting = q.waiting.Len()
	if q.stats.TotalAdmitted > 0 {
		stats.AverageWaitTime = q.waited / time.Duration(q.stats.TotalAdmitted)
	}
	return stats
}

// Close rejects all waiting and future jobs. Running jobs are unaffected.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for q.waiting.Len() > 0 {
		w := heap.Pop(&q.waiting).(*waiter)
		w.err = ErrQueueClosed
		close(w.ready)
	}
	return nil
}

type waiter struct {
	priority Priority
	seq      uint64
	since    time.Time
	ready    chan struct{}
	err      error
	index    int // Index in the heap
}

// waitHeap orders waiters by priority, then arrival.
type waitHeap []*waiter

func (h waitHeap) Len() int { return len(h) }

func (h waitHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waitHeap) Push(x interface{}) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil // Avoid memory leak
	w.index = -1   // For safety
	*h = old[:n-1]
	return w
}
