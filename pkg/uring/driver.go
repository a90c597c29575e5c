//go:build linux

package uring

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/vortex/pkg/executor"
	"github.com/brickingsoft/vortex/pkg/kernel"
	"github.com/brickingsoft/vortex/pkg/task"
	"github.com/pawelgaczynski/giouring"
)

// OpId identifies an in-flight operation within one driver. It is the
// user-data tag the kernel echoes back: the address of the driver-owned
// entry. Valid only while the operation is in flight.
type OpId uint64

// entry links a user-data tag to a completion callback. It is owned by the
// driver from submission until the terminal completion (the one without
// the MORE flag) is dispatched. It also pins the Sub so the kernel-visible
// addresses stay live.
type entry struct {
	h   task.Handler
	sub *Sub
}

// Open constructs the single-threaded driver. All methods must run on one
// goroutine; use OpenConcurrent for cross-goroutine submission.
func Open(options ...Option) (*Driver, error) {
	opts, optsErr := newOptions(options)
	if optsErr != nil {
		return nil, optsErr
	}
	if !kernel.Enable(5, 1, 0) {
		return nil, errors.From(ErrUnsupported, errors.WithWrap(errors.New("kernel version must >= 5.1")))
	}
	ring, ringErr := giouring.CreateRing(opts.Entries)
	if ringErr != nil {
		return nil, errors.From(ErrUnsupported, errors.WithWrap(ringErr))
	}
	d := &Driver{
		ring:        ring,
		exec:        opts.Exec,
		waitTimeout: syscall.NsecToTimespec(opts.WaitTimeout.Nanoseconds()),
		cq:          make([]*giouring.CompletionQueueEvent, opts.Entries),
		reg:         make(map[*entry]struct{}),
	}
	d.caps = probeCapabilities()
	return d, nil
}

type Driver struct {
	ring        *giouring.Ring
	exec        executor.Executor
	waitTimeout syscall.Timespec
	cq          []*giouring.CompletionQueueEvent
	caps        capabilities
	pending     atomic.Int64
	regMu       sync.Mutex
	reg         map[*entry]struct{}
	closed      bool
}

// Feature reports whether the running kernel provides f.
func (d *Driver) Feature(f Feature) bool {
	return d.caps.has(f)
}

// Pending returns the number of live in-flight entries. Readable from any
// goroutine.
func (d *Driver) Pending() int64 {
	return d.pending.Load()
}

// Submit publishes sub and owns completion until its terminal completion.
// The completion receives the raw kernel result; negative results are
// negated error numbers, translation belongs to the caller's shim. When the
// submission ring is full the call flushes to the kernel and retries, so a
// burst never drops a submission.
func (d *Driver) Submit(sub *Sub, completion task.Handler) (OpId, error) {
	if completion == nil {
		panic("uring: submit with nil completion")
	}
	if d.closed {
		return 0, ErrClosed
	}
	if err := sub.validate(); err != nil {
		return 0, err
	}
	e := &entry{h: completion, sub: sub}
	sqe, sqeErr := d.getSQE()
	if sqeErr != nil {
		return 0, sqeErr
	}
	sub.prepare(sqe)
	sqe.SetData(unsafe.Pointer(e))
	d.regMu.Lock()
	d.reg[e] = struct{}{}
	d.regMu.Unlock()
	d.pending.Add(1)
	return OpId(uintptr(unsafe.Pointer(e))), nil
}

// getSQE obtains a free submission slot, flushing the full ring to the
// kernel and retrying until one frees.
func (d *Driver) getSQE() (*giouring.SubmissionQueueEntry, error) {
	for {
		if sqe := d.ring.GetSQE(); sqe != nil {
			return sqe, nil
		}
		if err := d.flush(); err != nil {
			return nil, err
		}
	}
}

func (d *Driver) flush() error {
	for {
		_, err := d.ring.Submit()
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EBUSY) {
			continue
		}
		if errors.Is(err, syscall.EBADR) {
			// a malformed request from our side, nothing sane survives it
			panic(errors.From(ErrSubmit, errors.WithWrap(err)))
		}
		return errors.From(ErrSubmit, errors.WithWrap(err))
	}
}

// PollOneRound flushes pending submissions, blocks until at least one
// completion is visible or the wait timeout elapses, then dispatches every
// visible completion to its callback via the executor and advances the
// completion cursor. It returns the number of completions dispatched.
func (d *Driver) PollOneRound() (int, error) {
	if err := d.flush(); err != nil {
		return 0, err
	}
	return d.completeRound()
}

func (d *Driver) completeRound() (int, error) {
	waitTimeout := d.waitTimeout
	if _, waitErr := d.ring.WaitCQEs(1, &waitTimeout, nil); waitErr != nil {
		if !errors.Is(waitErr, syscall.ETIME) && !errors.Is(waitErr, syscall.EAGAIN) && !errors.Is(waitErr, syscall.EINTR) {
			return 0, errors.From(ErrWait, errors.WithWrap(waitErr))
		}
	}
	completed := d.ring.PeekBatchCQE(d.cq)
	if completed == 0 {
		return 0, nil
	}
	for i := uint32(0); i < completed; i++ {
		cqe := d.cq[i]
		d.cq[i] = nil
		d.dispatch(cqe)
	}
	d.ring.CQAdvance(completed)
	return int(completed), nil
}

// dispatch posts one completion to its callback. The entry is released on
// the terminal completion on every exit path; a panicking post must not
// leak the entry or corrupt the pending count.
func (d *Driver) dispatch(cqe *giouring.CompletionQueueEvent) {
	if cqe.UserData == 0 {
		return
	}
	e := (*entry)(unsafe.Pointer(uintptr(cqe.UserData)))
	if cqe.Flags&giouring.CQEFMore == 0 {
		defer d.unregister(e)
	}
	d.exec.Post(task.OfCompletion(e.h, cqe.Res, cqe.Flags, nil))
}

func (d *Driver) unregister(e *entry) {
	d.regMu.Lock()
	if _, ok := d.reg[e]; ok {
		delete(d.reg, e)
		d.pending.Add(-1)
	}
	d.regMu.Unlock()
}

// Close releases the kernel ring. Closing with in-flight entries is a
// programming error; drain first.
func (d *Driver) Close() error {
	if d.closed {
		return ErrClosed
	}
	if d.pending.Load() != 0 {
		panic(ErrLiveOperations)
	}
	d.closed = true
	d.ring.QueueExit()
	return nil
}
