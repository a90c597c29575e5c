package executor

import (
	"github.com/brickingsoft/vortex/pkg/queue"
	"github.com/brickingsoft/vortex/pkg/task"
)

// NewConcurrent constructs the synchronized executor. Post is lock-free
// and may be called from any goroutine; RunOnce must be called from
// exactly one consumer goroutine.
func NewConcurrent(options ...Option) (*Concurrent, error) {
	if _, optsErr := newOptions(options); optsErr != nil {
		return nil, optsErr
	}
	return &Concurrent{
		q: queue.New(),
	}, nil
}

type Concurrent struct {
	q *queue.Queue
}

func (c *Concurrent) Post(t *task.Task) {
	if t == nil || t.IsEmpty() {
		panic("executor: post of empty task")
	}
	c.q.Enqueue(t)
}

func (c *Concurrent) PostFunc(fn func()) {
	c.Post(task.Of(fn))
}

func (c *Concurrent) RunOnce() int {
	count := 0
	for {
		t := c.q.Dequeue()
		if t == nil {
			break
		}
		count++
		run(t)
	}
	return count
}

func (c *Concurrent) Pending() int64 {
	return c.q.Length()
}
