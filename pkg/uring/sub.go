//go:build linux

package uring

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
)

const (
	opNop uint8 = iota
	opRead
	opWrite
	opReadv
	opWritev
	opOpenat
	opClose
	opFsync
	opFallocate
	opStatx
	opUnlinkat
	opRenameat
	opTimeout
	opLinkTimeout
	opTimeoutRemove
	opTimeoutUpdate
	opCancel
	opPollAdd
	opPollRemove
	opAccept
	opConnect
	opSend
	opRecv
	opSplice
	opTee
	opShutdown
)

// Sub is a prepared submission descriptor. Wrappers produce one per
// operation; the driver consumes it exactly once. The descriptor keeps the
// buffers and paths it points at alive for as long as its in-flight entry
// exists, which is what makes handing their addresses to the kernel sound.
type Sub struct {
	code      uint8
	sqeFlags  uint8
	multishot bool
	fd        int
	dirFd     int
	dirFd2    int
	buf       []byte
	iov       []syscall.Iovec
	path      []byte
	path2     []byte
	off       int64
	off2      int64
	length    uint32
	opFlags   uint32
	mode      uint32
	mask      uint32
	target    uint64
	ts        *syscall.Timespec
	tsFlags   uint32
	ptr       unsafe.Pointer
	rsa       *syscall.RawSockaddrAny
	rsaLen    *uint32
}

// Link marks the descriptor as linked to the next submission; the kernel
// will not start the successor until this one completes. Used to attach
// link-timeouts.
func (s *Sub) Link() *Sub {
	s.sqeFlags |= sqeLinkFlag
	return s
}

// Nop does nothing, asynchronously.
func Nop() *Sub {
	return &Sub{code: opNop, fd: -1}
}

// Read reads into b at off; off -1 uses and advances the file position.
func Read(fd int, b []byte, off int64) *Sub {
	return &Sub{code: opRead, fd: fd, buf: b, off: off}
}

// Write writes b at off; off -1 uses and advances the file position.
func Write(fd int, b []byte, off int64) *Sub {
	return &Sub{code: opWrite, fd: fd, buf: b, off: off}
}

// Readv reads into bs sequentially starting at off.
func Readv(fd int, bs [][]byte, off int64) *Sub {
	return &Sub{code: opReadv, fd: fd, iov: iovecs(bs), off: off}
}

// Writev writes bs sequentially starting at off.
func Writev(fd int, bs [][]byte, off int64) *Sub {
	return &Sub{code: opWritev, fd: fd, iov: iovecs(bs), off: off}
}

func iovecs(bs [][]byte) []syscall.Iovec {
	iov := make([]syscall.Iovec, 0, len(bs))
	for _, b := range bs {
		if len(b) == 0 {
			continue
		}
		iov = append(iov, syscall.Iovec{
			Base: &b[0],
			Len:  uint64(len(b)),
		})
	}
	return iov
}

// Openat opens path relative to dirFd. Use AT_FDCWD as dirFd for open(2).
func Openat(dirFd int, path string, flags int, mode uint32) *Sub {
	return &Sub{code: opOpenat, dirFd: dirFd, path: nulTerminated(path), opFlags: uint32(flags), mode: mode}
}

// CloseFd closes fd.
func CloseFd(fd int) *Sub {
	return &Sub{code: opClose, fd: fd}
}

// Fsync flushes fd. flags takes IORING_FSYNC_DATASYNC.
func Fsync(fd int, flags uint32) *Sub {
	return &Sub{code: opFsync, fd: fd, opFlags: flags}
}

// Fallocate manipulates fd's allocated space.
func Fallocate(fd int, mode uint32, off int64, length int64) *Sub {
	return &Sub{code: opFallocate, fd: fd, mode: mode, off: off, off2: length}
}

// Statx stats path relative to dirFd into statx, which must stay valid
// until completion.
func Statx(dirFd int, path string, flags int, mask uint32, statx unsafe.Pointer) *Sub {
	return &Sub{code: opStatx, dirFd: dirFd, path: nulTerminated(path), opFlags: uint32(flags), mask: mask, ptr: statx}
}

// Unlinkat unlinks path relative to dirFd.
func Unlinkat(dirFd int, path string, flags int) *Sub {
	return &Sub{code: opUnlinkat, dirFd: dirFd, path: nulTerminated(path), opFlags: uint32(flags)}
}

// Renameat renames oldPath to newPath.
func Renameat(oldDirFd int, oldPath string, newDirFd int, newPath string, flags uint32) *Sub {
	return &Sub{code: opRenameat, dirFd: oldDirFd, path: nulTerminated(oldPath), dirFd2: newDirFd, path2: nulTerminated(newPath), opFlags: flags}
}

// Timeout fires after ts, or at the absolute time ts when abs is set.
// The realtime flag selects CLOCK_REALTIME over the monotonic clock.
func Timeout(ts syscall.Timespec, abs bool, realtime bool) *Sub {
	s := &Sub{code: opTimeout, fd: -1, ts: &ts}
	s.tsFlags = clockFlags(abs, realtime)
	return s
}

// Sleep is Timeout over a relative monotonic duration.
func Sleep(d time.Duration) *Sub {
	return Timeout(syscall.NsecToTimespec(d.Nanoseconds()), false, false)
}

// LinkTimeout cancels the linked predecessor when it elapses. The
// predecessor must carry Link.
func LinkTimeout(ts syscall.Timespec, abs bool, realtime bool) *Sub {
	s := &Sub{code: opLinkTimeout, fd: -1, ts: &ts}
	s.tsFlags = clockFlags(abs, realtime)
	return s
}

// TimeoutRemove removes the timeout identified by target.
func TimeoutRemove(target uint64) *Sub {
	return &Sub{code: opTimeoutRemove, fd: -1, target: target}
}

// TimeoutUpdate rearms the timeout identified by target.
func TimeoutUpdate(target uint64, ts syscall.Timespec, abs bool, realtime bool) *Sub {
	s := &Sub{code: opTimeoutUpdate, fd: -1, target: target, ts: &ts}
	s.tsFlags = clockFlags(abs, realtime)
	return s
}

// Cancel asks the kernel to cancel the operation identified by target. The
// target's completion arrives with ECANCELED when the cancellation lands.
func Cancel(target uint64) *Sub {
	return &Sub{code: opCancel, fd: -1, target: target}
}

// PollAdd waits for events on fd; one completion.
func PollAdd(fd int, mask uint32) *Sub {
	return &Sub{code: opPollAdd, fd: fd, mask: mask}
}

// PollMultishot waits for events on fd, producing a completion per event
// until removed or erred.
func PollMultishot(fd int, mask uint32) *Sub {
	return &Sub{code: opPollAdd, fd: fd, mask: mask, multishot: true}
}

// PollRemove removes the poll identified by target.
func PollRemove(target uint64) *Sub {
	return &Sub{code: opPollRemove, fd: -1, target: target}
}

// Accept accepts one connection on fd.
func Accept(fd int, flags int) *Sub {
	return acceptSub(fd, flags, false)
}

// AcceptMultishot accepts connections on fd until removed or erred.
func AcceptMultishot(fd int, flags int) *Sub {
	return acceptSub(fd, flags, true)
}

func acceptSub(fd int, flags int, multishot bool) *Sub {
	rsaLen := uint32(syscall.SizeofSockaddrAny)
	return &Sub{
		code:      opAccept,
		fd:        fd,
		opFlags:   uint32(flags),
		multishot: multishot,
		rsa:       &syscall.RawSockaddrAny{},
		rsaLen:    &rsaLen,
	}
}

// Connect connects fd to the raw socket address, which must stay valid
// until completion.
func Connect(fd int, rsa *syscall.RawSockaddrAny, rsaLen uint32) *Sub {
	l := rsaLen
	return &Sub{code: opConnect, fd: fd, rsa: rsa, rsaLen: &l}
}

// Send sends b on fd.
func Send(fd int, b []byte, flags int) *Sub {
	return &Sub{code: opSend, fd: fd, buf: b, opFlags: uint32(flags)}
}

// Recv receives into b on fd.
func Recv(fd int, b []byte, flags int) *Sub {
	return &Sub{code: opRecv, fd: fd, buf: b, opFlags: uint32(flags)}
}

// Splice moves up to n bytes between fdIn and fdOut; -1 offsets mean the
// current file position.
func Splice(fdIn int, offIn int64, fdOut int, offOut int64, n uint32, flags uint32) *Sub {
	return &Sub{code: opSplice, fd: fdIn, off: offIn, dirFd2: fdOut, off2: offOut, length: n, opFlags: flags}
}

// Tee duplicates up to n bytes from fdIn to fdOut.
func Tee(fdIn int, fdOut int, n uint32, flags uint32) *Sub {
	return &Sub{code: opTee, fd: fdIn, dirFd2: fdOut, length: n, opFlags: flags}
}

// Shutdown shuts down fd's socket endpoint.
func Shutdown(fd int, how int) *Sub {
	return &Sub{code: opShutdown, fd: fd, opFlags: uint32(how)}
}

func nulTerminated(path string) []byte {
	b := make([]byte, len(path)+1)
	copy(b, path)
	return b
}

func (s *Sub) validate() error {
	switch s.code {
	case opRead, opWrite, opSend, opRecv:
		if len(s.buf) == 0 {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("empty buffer")))
		}
	case opReadv, opWritev:
		if len(s.iov) == 0 {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("empty io vectors")))
		}
	case opOpenat, opUnlinkat, opStatx:
		if len(s.path) < 2 {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("empty path")))
		}
	case opRenameat:
		if len(s.path) < 2 || len(s.path2) < 2 {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("empty path")))
		}
	case opTimeout, opLinkTimeout, opTimeoutUpdate:
		if s.ts == nil {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("nil timespec")))
		}
	case opCancel, opPollRemove, opTimeoutRemove:
		if s.target == 0 {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("zero target")))
		}
	case opConnect:
		if s.rsa == nil {
			return errors.From(ErrInvalidSub, errors.WithWrap(errors.New("nil address")))
		}
	}
	return nil
}
