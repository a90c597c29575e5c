//go:build linux

package vortex

import (
	"github.com/brickingsoft/vortex/pkg/async"
	"github.com/brickingsoft/vortex/pkg/executor"
	"github.com/brickingsoft/vortex/pkg/task"
	"github.com/brickingsoft/vortex/pkg/uring"
)

// ringDriver is the surface both driver forms share.
type ringDriver interface {
	Submit(sub *uring.Sub, completion task.Handler) (uring.OpId, error)
	PollOneRound() (int, error)
	Feature(f uring.Feature) bool
	Pending() int64
	Close() error
}

// Open couples one executor with one ring driver. The default form is
// cooperative and single-goroutine; WithThreadSafe selects the concurrent
// executor and driver.
func Open(options ...Option) (*Vortex, error) {
	opts, optsErr := newOptions(options)
	if optsErr != nil {
		return nil, optsErr
	}

	driverOptions := make([]uring.Option, 0, 3)
	if opts.Entries > 0 {
		driverOptions = append(driverOptions, uring.WithEntries(opts.Entries))
	}
	if opts.WaitTimeout > 0 {
		driverOptions = append(driverOptions, uring.WithWaitTimeout(opts.WaitTimeout))
	}

	var (
		exec executor.Executor
		drv  ringDriver
		err  error
	)
	if opts.ThreadSafe {
		if exec, err = executor.NewConcurrent(); err != nil {
			return nil, err
		}
		driverOptions = append(driverOptions, uring.WithExecutor(exec))
		if drv, err = uring.OpenConcurrent(driverOptions...); err != nil {
			return nil, err
		}
	} else {
		if exec, err = executor.NewSerial(); err != nil {
			return nil, err
		}
		driverOptions = append(driverOptions, uring.WithExecutor(exec))
		if drv, err = uring.Open(driverOptions...); err != nil {
			return nil, err
		}
	}

	return &Vortex{
		exec: exec,
		drv:  drv,
	}, nil
}

// Vortex is the runtime facade: completions flow from the driver onto the
// executor, the caller drives both from its run loop. The Vortex outlives
// every operation submitted through it; callbacks may capture it freely
// but must never own it.
type Vortex struct {
	exec   executor.Executor
	drv    ringDriver
	closed bool
}

func (v *Vortex) Executor() executor.Executor {
	return v.exec
}

// Feature reports a kernel capability of the underlying driver.
func (v *Vortex) Feature(f uring.Feature) bool {
	return v.drv.Feature(f)
}

// PendingOperations returns the driver's live in-flight count.
func (v *Vortex) PendingOperations() int64 {
	return v.drv.Pending()
}

// PendingTasks returns the executor's queue length.
func (v *Vortex) PendingTasks() int64 {
	return v.exec.Pending()
}

// RunOnce drains the executor queue, returning the number of tasks ran.
func (v *Vortex) RunOnce() int {
	return v.exec.RunOnce()
}

// PollOneRound submits pending descriptors and waits one bounded round for
// completions, dispatching each onto the executor.
func (v *Vortex) PollOneRound() (int, error) {
	return v.drv.PollOneRound()
}

// RunUntilIdle alternates the executor drain with driver poll rounds until
// no tasks and no in-flight operations remain.
func (v *Vortex) RunUntilIdle() error {
	for {
		v.exec.RunOnce()
		if v.drv.Pending() == 0 && v.exec.Pending() == 0 {
			return nil
		}
		if v.drv.Pending() > 0 {
			if _, err := v.drv.PollOneRound(); err != nil {
				return err
			}
		}
	}
}

// Submit publishes a prepared descriptor with a raw-result token: the
// shim negates kernel errors, successful results pass through untouched.
// The escape hatch for opcodes without a dedicated wrapper.
func (v *Vortex) Submit(sub *uring.Sub, tok async.Token[int]) (uring.OpId, error) {
	if v.closed {
		return 0, ErrClosed
	}
	return v.drv.Submit(sub, intShim(async.Bind(tok)))
}

// Close releases the driver. Drain with RunUntilIdle first; closing with
// live operations is a programming error.
func (v *Vortex) Close() error {
	if v.closed {
		return ErrClosed
	}
	v.closed = true
	return v.drv.Close()
}
