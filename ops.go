//go:build linux

package vortex

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/vortex/pkg/async"
	"github.com/brickingsoft/vortex/pkg/task"
	"github.com/brickingsoft/vortex/pkg/uring"
	"golang.org/x/sys/unix"
)

// Each wrapper is the same mechanical shim: build the descriptor, bind the
// token, translate the raw kernel result, submit. Negative results are
// negated error numbers; the value arm carries the opcode's natural result.

func intShim(h async.Handler[int]) task.Handler {
	return func(n int32, flags uint32, _ error) {
		if n < 0 {
			h(0, completionErr(-n))
			return
		}
		h(int(n), nil)
	}
}

func unitShim(h async.Handler[async.Unit]) task.Handler {
	return func(n int32, flags uint32, _ error) {
		if n < 0 {
			h(async.Unit{}, completionErr(-n))
			return
		}
		h(async.Unit{}, nil)
	}
}

// elapsedShim treats an elapsed timeout as the success arm.
func elapsedShim(h async.Handler[async.Unit]) task.Handler {
	return func(n int32, flags uint32, _ error) {
		if n < 0 && syscall.Errno(-n) != syscall.ETIME {
			h(async.Unit{}, completionErr(-n))
			return
		}
		h(async.Unit{}, nil)
	}
}

// Nop does nothing, asynchronously.
func (v *Vortex) Nop(tok async.Token[async.Unit]) (uring.OpId, error) {
	return v.drv.Submit(uring.Nop(), unitShim(async.Bind(tok)))
}

// Open opens path; the value arm is the new descriptor.
func (v *Vortex) Open(path string, flags int, mode uint32, tok async.Token[int]) (uring.OpId, error) {
	return v.Openat(unix.AT_FDCWD, path, flags, mode, tok)
}

func (v *Vortex) Openat(dirFd int, path string, flags int, mode uint32, tok async.Token[int]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureFileOps) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Openat(dirFd, path, flags, mode), intShim(async.Bind(tok)))
}

// Read reads into b at off; the value arm is the byte count. Offset -1
// reads at the file position, which needs the current-file-position
// capability.
func (v *Vortex) Read(fd int, b []byte, off int64, tok async.Token[int]) (uring.OpId, error) {
	if off < 0 && !v.drv.Feature(uring.FeatureCurrentFilePosition) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Read(fd, b, off), intShim(async.Bind(tok)))
}

func (v *Vortex) Write(fd int, b []byte, off int64, tok async.Token[int]) (uring.OpId, error) {
	if off < 0 && !v.drv.Feature(uring.FeatureCurrentFilePosition) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Write(fd, b, off), intShim(async.Bind(tok)))
}

func (v *Vortex) Readv(fd int, bs [][]byte, off int64, tok async.Token[int]) (uring.OpId, error) {
	if off < 0 && !v.drv.Feature(uring.FeatureCurrentFilePosition) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Readv(fd, bs, off), intShim(async.Bind(tok)))
}

func (v *Vortex) Writev(fd int, bs [][]byte, off int64, tok async.Token[int]) (uring.OpId, error) {
	if off < 0 && !v.drv.Feature(uring.FeatureCurrentFilePosition) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Writev(fd, bs, off), intShim(async.Bind(tok)))
}

// CloseFd closes fd.
func (v *Vortex) CloseFd(fd int, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureFileOps) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.CloseFd(fd), unitShim(async.Bind(tok)))
}

// Fsync flushes fd; datasync skips the metadata flush.
func (v *Vortex) Fsync(fd int, datasync bool, tok async.Token[async.Unit]) (uring.OpId, error) {
	flags := uint32(0)
	if datasync {
		flags = fsyncDatasync
	}
	return v.drv.Submit(uring.Fsync(fd, flags), unitShim(async.Bind(tok)))
}

const fsyncDatasync = uint32(1 << 0)

func (v *Vortex) Fallocate(fd int, mode uint32, off int64, length int64, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureFileOps) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Fallocate(fd, mode, off, length), unitShim(async.Bind(tok)))
}

// Statx stats path into statx, which must stay valid until completion.
func (v *Vortex) Statx(dirFd int, path string, flags int, mask uint32, statx *unix.Statx_t, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureFileOps) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Statx(dirFd, path, flags, mask, unsafe.Pointer(statx)), unitShim(async.Bind(tok)))
}

func (v *Vortex) Unlink(path string, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureFileOps) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Unlinkat(unix.AT_FDCWD, path, 0), unitShim(async.Bind(tok)))
}

func (v *Vortex) Rename(oldPath string, newPath string, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureFileOps) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Renameat(unix.AT_FDCWD, oldPath, unix.AT_FDCWD, newPath, 0), unitShim(async.Bind(tok)))
}

// Sleep completes after d; elapsing is the success arm. A cancelled sleep
// carries ECANCELED.
func (v *Vortex) Sleep(d time.Duration, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureTimeout) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Sleep(d), elapsedShim(async.Bind(tok)))
}

// Timeout is the raw form: relative or absolute, monotonic or realtime;
// the elapsed completion carries ETIME.
func (v *Vortex) Timeout(ts syscall.Timespec, abs bool, realtime bool, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureTimeout) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Timeout(ts, abs, realtime), unitShim(async.Bind(tok)))
}

func (v *Vortex) TimeoutRemove(target uring.OpId, tok async.Token[async.Unit]) (uring.OpId, error) {
	return v.drv.Submit(uring.TimeoutRemove(uint64(target)), unitShim(async.Bind(tok)))
}

func (v *Vortex) TimeoutUpdate(target uring.OpId, ts syscall.Timespec, abs bool, realtime bool, tok async.Token[async.Unit]) (uring.OpId, error) {
	return v.drv.Submit(uring.TimeoutUpdate(uint64(target), ts, abs, realtime), unitShim(async.Bind(tok)))
}

// SleepLinked submits a sleep linked to a timeout that cancels it when
// limit elapses first. The sleep's completion then carries ECANCELED; the
// limit's completion is benign either way.
func (v *Vortex) SleepLinked(d time.Duration, limit time.Duration, tok async.Token[async.Unit], limitTok async.Token[async.Unit]) (uring.OpId, uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureLinkTimeout) {
		return 0, 0, ErrUnsupportedOp
	}
	sleepId, sleepErr := v.drv.Submit(uring.Sleep(d).Link(), elapsedShim(async.Bind(tok)))
	if sleepErr != nil {
		return 0, 0, sleepErr
	}
	ts := syscall.NsecToTimespec(limit.Nanoseconds())
	limitId, limitErr := v.drv.Submit(uring.LinkTimeout(ts, false, false), elapsedShim(async.Bind(limitTok)))
	if limitErr != nil {
		return sleepId, 0, limitErr
	}
	return sleepId, limitId, nil
}

// Cancel asks the kernel to cancel target. The target's own completion
// arrives with ECANCELED when the cancellation lands; this completion
// reports whether the target was found in time.
func (v *Vortex) Cancel(target uring.OpId, tok async.Token[async.Unit]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureCancel) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Cancel(uint64(target)), unitShim(async.Bind(tok)))
}

// PollAdd completes once with the triggered event mask.
func (v *Vortex) PollAdd(fd int, mask uint32, tok async.Token[int]) (uring.OpId, error) {
	return v.drv.Submit(uring.PollAdd(fd, mask), intShim(async.Bind(tok)))
}

// PollMultishot produces one completion per event until removed or erred;
// it takes the plain handler form because settle-once tokens cannot absorb
// repeated completions.
func (v *Vortex) PollMultishot(fd int, mask uint32, h async.Handler[int]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeaturePollMultishot) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.PollMultishot(fd, mask), intShim(h))
}

func (v *Vortex) PollRemove(target uring.OpId, tok async.Token[async.Unit]) (uring.OpId, error) {
	return v.drv.Submit(uring.PollRemove(uint64(target)), unitShim(async.Bind(tok)))
}

// Accept accepts one connection; the value arm is the connection
// descriptor.
func (v *Vortex) Accept(fd int, flags int, tok async.Token[int]) (uring.OpId, error) {
	return v.drv.Submit(uring.Accept(fd, flags), intShim(async.Bind(tok)))
}

// AcceptMultishot delivers one completion per accepted connection; plain
// handler form, as for PollMultishot.
func (v *Vortex) AcceptMultishot(fd int, flags int, h async.Handler[int]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureAcceptMultishot) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.AcceptMultishot(fd, flags), intShim(h))
}

// Connect connects fd to the raw socket address, which must stay valid
// until completion.
func (v *Vortex) Connect(fd int, rsa *syscall.RawSockaddrAny, rsaLen uint32, tok async.Token[async.Unit]) (uring.OpId, error) {
	return v.drv.Submit(uring.Connect(fd, rsa, rsaLen), unitShim(async.Bind(tok)))
}

func (v *Vortex) Send(fd int, b []byte, flags int, tok async.Token[int]) (uring.OpId, error) {
	return v.drv.Submit(uring.Send(fd, b, flags), intShim(async.Bind(tok)))
}

func (v *Vortex) Recv(fd int, b []byte, flags int, tok async.Token[int]) (uring.OpId, error) {
	return v.drv.Submit(uring.Recv(fd, b, flags), intShim(async.Bind(tok)))
}

func (v *Vortex) Splice(fdIn int, offIn int64, fdOut int, offOut int64, n uint32, flags uint32, tok async.Token[int]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureSplice) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Splice(fdIn, offIn, fdOut, offOut, n, flags), intShim(async.Bind(tok)))
}

func (v *Vortex) Tee(fdIn int, fdOut int, n uint32, flags uint32, tok async.Token[int]) (uring.OpId, error) {
	if !v.drv.Feature(uring.FeatureSplice) {
		return 0, ErrUnsupportedOp
	}
	return v.drv.Submit(uring.Tee(fdIn, fdOut, n, flags), intShim(async.Bind(tok)))
}

func (v *Vortex) Shutdown(fd int, how int, tok async.Token[async.Unit]) (uring.OpId, error) {
	return v.drv.Submit(uring.Shutdown(fd, how), unitShim(async.Bind(tok)))
}
