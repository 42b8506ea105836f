package delivery

import (
	"sync"
)

// Executor runs queued thunks one at a time, in enqueue order, on a single
// dedicated goroutine. It is the delivery context shared by every store:
// state commits, trace evaluation, and effect emissions all pass through it,
// so observer-visible mutations from any number of stores form one total
// order.
//
// Enqueueing never blocks the caller; the backlog is unbounded. Rate control
// is out of scope here, callers are expected to be low-rate.
type Executor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	backlog []func()
	closed  bool
}

func New() *Executor {
	e := &Executor{}
	e.cond = sync.NewCond(&e.mu)

	ready := make(chan struct{})
	go func() {
		close(ready)
		e.run()
	}()
	<-ready

	return e
}

func (e *Executor) run() {
	for {
		e.mu.Lock()
		for len(e.backlog) == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.closed && len(e.backlog) == 0 {
			e.mu.Unlock()
			return
		}
		task := e.backlog[0]
		e.backlog = e.backlog[1:]
		e.mu.Unlock()

		task()
	}
}

// Do enqueues task for execution after every previously enqueued task.
// Tasks enqueued after Close are dropped.
func (e *Executor) Do(task func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.backlog = append(e.backlog, task)
	e.mu.Unlock()
	e.cond.Signal()
}

// Drain blocks until every task enqueued before the call has run.
// Draining a closed executor returns immediately.
func (e *Executor) Drain() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	done := make(chan struct{})
	e.backlog = append(e.backlog, func() { close(done) })
	e.mu.Unlock()
	e.cond.Signal()
	<-done
}

// Close stops the executor after the current backlog is flushed.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cond.Signal()
}

var (
	sharedOnce sync.Once
	shared     *Executor
)

// Shared returns the process-wide delivery executor, created lazily on first
// use and never closed.
func Shared() *Executor {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}
