// Package loop provides the single-threaded run loop that owns all
// conversation-store mutation. Async work (backend fetches, the push
// stream) runs on its own goroutines and resumes onto the loop via
// Submit, so the store and its listeners never observe a torn state.
package loop

import "context"

// Loop serializes submitted tasks onto one goroutine.
type Loop struct {
	tasks chan func()
}

// New creates a loop with a buffered task queue.
func New() *Loop {
	return &Loop{tasks: make(chan func(), 256)}
}

// Run drains tasks until the context is cancelled. It must be called
// exactly once.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Submit schedules fn to run on the loop goroutine. It blocks only when
// the queue is full, which backpressures fast producers instead of
// dropping mutations.
func (l *Loop) Submit(fn func()) {
	l.tasks <- fn
}
