package executor

import (
	"github.com/brickingsoft/vortex/pkg/task"
)

// NewSerial constructs the unsynchronized executor. Post and RunOnce may
// only be called from the goroutine that owns it.
func NewSerial(options ...Option) (*Serial, error) {
	opts, optsErr := newOptions(options)
	if optsErr != nil {
		return nil, optsErr
	}
	return &Serial{
		q: make([]*task.Task, 0, opts.Capacity),
	}, nil
}

type Serial struct {
	q    []*task.Task
	head int
}

func (s *Serial) Post(t *task.Task) {
	if t == nil || t.IsEmpty() {
		panic("executor: post of empty task")
	}
	s.q = append(s.q, t)
}

func (s *Serial) PostFunc(fn func()) {
	s.Post(task.Of(fn))
}

func (s *Serial) RunOnce() int {
	count := 0
	for {
		t := s.pop()
		if t == nil {
			break
		}
		count++
		run(t)
	}
	return count
}

func (s *Serial) Pending() int64 {
	return int64(len(s.q) - s.head)
}

func (s *Serial) pop() *task.Task {
	if s.head >= len(s.q) {
		s.q = s.q[:0]
		s.head = 0
		return nil
	}
	t := s.q[s.head]
	s.q[s.head] = nil
	s.head++
	return t
}
