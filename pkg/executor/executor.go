// Package executor provides the run queues that completion callbacks are
// dispatched on. Serial is the cooperative single-owner form; Concurrent
// accepts posts from any goroutine and drains on a single consumer.
package executor

import (
	"github.com/brickingsoft/vortex/pkg/task"
)

// Executor is a queue of ready-to-run tasks plus a drain loop.
//
// Post enqueues at the tail and never blocks. RunOnce drains the queue
// until it is empty, including work enqueued while draining, and returns
// the number of tasks ran. A panicking task propagates out of RunOnce and
// leaves the remainder of the queue intact. Pending reports the current
// queue length.
type Executor interface {
	Post(t *task.Task)
	PostFunc(fn func())
	RunOnce() int
	Pending() int64
}

func newOptions(options []Option) (Options, error) {
	opts := Options{
		Capacity: defaultCapacity,
	}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func run(t *task.Task) {
	defer task.Release(t)
	t.Run()
}
