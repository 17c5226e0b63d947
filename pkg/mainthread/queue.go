// Package mainthread provides the task queue that owns everything the
// image cache and the panels mutate. Worker goroutines never touch that
// state directly; they Post a closure and the owning goroutine runs it.
package mainthread

import (
	"context"
	"errors"
	"sync/atomic"
)

// DefaultBacklog is the queue buffer used when NewQueue is given a size <= 0.
const DefaultBacklog = 256

// ErrClosed is returned by RunUntil after Close.
var ErrClosed = errors.New("mainthread: queue closed")

// Queue is a FIFO of tasks executed by a single owning goroutine.
//
// Post is safe for concurrent use. Drain, Run and RunUntil must only be
// called from the owning goroutine.
type Queue struct {
	tasks  chan func()
	done   chan struct{}
	closed atomic.Bool
	ran    atomic.Uint64
}

// NewQueue creates a queue that buffers up to backlog tasks before Post blocks.
func NewQueue(backlog int) *Queue {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Queue{
		tasks: make(chan func(), backlog),
		done:  make(chan struct{}),
	}
}

// Post schedules fn on the owning goroutine. Tasks posted after Close are dropped.
func (q *Queue) Post(fn func()) {
	if fn == nil || q.closed.Load() {
		return
	}
	select {
	case q.tasks <- fn:
	case <-q.done:
	}
}

// PostContext is Post that gives up when ctx is done. It reports whether
// fn was queued.
func (q *Queue) PostContext(ctx context.Context, fn func()) bool {
	if fn == nil || q.closed.Load() {
		return false
	}
	select {
	case q.tasks <- fn:
		return true
	case <-q.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Drain runs every task that is already queued and returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case fn := <-q.tasks:
			q.exec(fn)
			n++
		default:
			return n
		}
	}
}

// Run executes tasks until ctx is cancelled or the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			q.Drain()
			return nil
		case fn := <-q.tasks:
			q.exec(fn)
		}
	}
}

// RunUntil executes tasks until cond reports true. cond is evaluated on the
// owning goroutine before waiting and after every task.
func (q *Queue) RunUntil(ctx context.Context, cond func() bool) error {
	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			q.Drain()
			if cond() {
				return nil
			}
			return ErrClosed
		case fn := <-q.tasks:
			q.exec(fn)
		}
	}
}

// Executed returns the number of tasks run so far.
func (q *Queue) Executed() uint64 {
	return q.ran.Load()
}

// Close stops accepting tasks. Already queued tasks can still be drained.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}

func (q *Queue) exec(fn func()) {
	fn()
	q.ran.Add(1)
}
