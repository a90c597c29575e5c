// Package semaphore provides a non-blocking counting semaphore. Acquirers
// that would block enqueue a callback; releasers dequeue and post the
// callbacks to the executor.
package semaphore

import (
	"math"
	"runtime"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/vortex/pkg/executor"
	"github.com/brickingsoft/vortex/pkg/queue"
	"github.com/brickingsoft/vortex/pkg/task"
)

var (
	ErrLiveWaiters = errors.Define("vortex: semaphore closed with live waiters")
)

const maxPermits = math.MaxInt64 >> 1

// New constructs a semaphore with the given initial permits.
func New(exec executor.Executor, permits int64) (*Semaphore, error) {
	if exec == nil {
		return nil, errors.New("vortex: semaphore requires an executor")
	}
	if permits < 0 || permits > maxPermits {
		return nil, errors.New("vortex: invalid initial permits")
	}
	s := &Semaphore{
		exec:    exec,
		waiters: queue.New(),
	}
	s.counter.Store(permits)
	return s, nil
}

// Semaphore counts permits in a signed counter. Whenever the counter is
// non-positive, its magnitude equals the number of enqueued waiters.
// TryAcquire, AsyncAcquire and Release are all safe for concurrent use.
type Semaphore struct {
	counter atomic.Int64
	exec    executor.Executor
	waiters *queue.Queue
}

// TryAcquire takes one permit without blocking. It only decrements the
// counter when a permit is available.
func (s *Semaphore) TryAcquire() bool {
	for {
		c := s.counter.Load()
		if c <= 0 {
			return false
		}
		if s.counter.CompareAndSwap(c, c-1) {
			return true
		}
	}
}

// AsyncAcquire takes one permit, posting fn to the executor as soon as the
// permit is held. With a permit available fn is posted immediately;
// otherwise fn waits in FIFO order for a release.
func (s *Semaphore) AsyncAcquire(fn func()) {
	t := task.Of(fn)
	if post := s.counter.Add(-1); post >= 0 {
		s.exec.Post(t)
		return
	}
	s.waiters.Enqueue(t)
}

// Release returns n permits. Waiters present at release time are dequeued
// in FIFO order, min(n, waiting) of them, and posted to the executor.
func (s *Semaphore) Release(n int64) {
	if n < 1 {
		return
	}
	pre := s.counter.Add(n) - n
	if pre >= 0 {
		return
	}
	k := -pre
	if n < k {
		k = n
	}
	for i := int64(0); i < k; {
		// an acquirer decrements before it enqueues, so the waiter the
		// counter promised may not be visible yet
		t := s.waiters.Dequeue()
		if t == nil {
			runtime.Gosched()
			continue
		}
		s.exec.Post(t)
		i++
	}
}

// Permits returns the current counter value. Non-positive values count
// waiters.
func (s *Semaphore) Permits() int64 {
	return s.counter.Load()
}

// Waiters returns the number of enqueued waiters.
func (s *Semaphore) Waiters() int64 {
	return s.waiters.Length()
}

// Max returns the static upper bound of the counter.
func Max() int64 {
	return maxPermits
}

// Close panics when waiters remain; drain before closing.
func (s *Semaphore) Close() error {
	if s.waiters.Length() != 0 {
		panic(ErrLiveWaiters)
	}
	return nil
}
