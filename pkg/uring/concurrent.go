//go:build linux

package uring

import (
	"sync"

	"github.com/brickingsoft/vortex/pkg/task"
)

// OpenConcurrent constructs the thread-safe driver. Submit may be called
// from any goroutine under the submission mutex; PollOneRound must be
// called from one consumer and holds the completion mutex. The poll path
// takes the submission mutex briefly to flush, strictly before waiting —
// submission order first, completion order second, never interleaved the
// other way.
func OpenConcurrent(options ...Option) (*ConcurrentDriver, error) {
	d, err := Open(options...)
	if err != nil {
		return nil, err
	}
	return &ConcurrentDriver{d: d}, nil
}

type ConcurrentDriver struct {
	d    *Driver
	sqMu sync.Mutex
	cqMu sync.Mutex
}

func (c *ConcurrentDriver) Submit(sub *Sub, completion task.Handler) (OpId, error) {
	c.sqMu.Lock()
	id, err := c.d.Submit(sub, completion)
	c.sqMu.Unlock()
	return id, err
}

func (c *ConcurrentDriver) PollOneRound() (int, error) {
	c.sqMu.Lock()
	flushErr := c.d.flush()
	c.sqMu.Unlock()
	if flushErr != nil {
		return 0, flushErr
	}
	c.cqMu.Lock()
	n, err := c.d.completeRound()
	c.cqMu.Unlock()
	return n, err
}

func (c *ConcurrentDriver) Feature(f Feature) bool {
	return c.d.Feature(f)
}

func (c *ConcurrentDriver) Pending() int64 {
	return c.d.Pending()
}

func (c *ConcurrentDriver) Close() error {
	c.sqMu.Lock()
	defer c.sqMu.Unlock()
	c.cqMu.Lock()
	defer c.cqMu.Unlock()
	return c.d.Close()
}
