//go:build linux

package uring

import (
	"time"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

const sqeLinkFlag = giouring.SqeIOLink

func clockFlags(abs bool, realtime bool) (flags uint32) {
	if abs {
		flags |= giouring.TimeoutAbs
	}
	if realtime {
		flags |= giouring.TimeoutRealtime
	}
	return
}

// prepare writes the descriptor into the submission slot. The descriptor
// has been validated; every address handed to the kernel is pinned by the
// in-flight entry that owns this Sub.
func (s *Sub) prepare(sqe *giouring.SubmissionQueueEntry) {
	switch s.code {
	case opNop:
		sqe.PrepareNop()
	case opRead:
		sqe.PrepareRead(s.fd, uintptr(unsafe.Pointer(&s.buf[0])), uint32(len(s.buf)), uint64(s.off))
	case opWrite:
		sqe.PrepareWrite(s.fd, uintptr(unsafe.Pointer(&s.buf[0])), uint32(len(s.buf)), uint64(s.off))
	case opReadv:
		sqe.PrepareReadv(s.fd, uintptr(unsafe.Pointer(&s.iov[0])), uint32(len(s.iov)), uint64(s.off))
	case opWritev:
		sqe.PrepareWritev(s.fd, uintptr(unsafe.Pointer(&s.iov[0])), uint32(len(s.iov)), uint64(s.off))
	case opOpenat:
		sqe.PrepareOpenat(s.dirFd, s.path, int(s.opFlags), s.mode)
	case opClose:
		sqe.PrepareClose(s.fd)
	case opFsync:
		sqe.PrepareFsync(s.fd, s.opFlags)
	case opFallocate:
		sqe.PrepareFallocate(s.fd, int(s.mode), uint64(s.off), uint64(s.off2))
	case opStatx:
		sqe.PrepareStatx(s.dirFd, s.path, int(s.opFlags), s.mask, (*unix.Statx_t)(s.ptr))
	case opUnlinkat:
		sqe.PrepareUnlinkat(s.dirFd, uintptr(unsafe.Pointer(&s.path[0])), int(s.opFlags))
	case opRenameat:
		sqe.PrepareRenameat(s.dirFd, s.path, s.dirFd2, s.path2, s.opFlags)
	case opTimeout:
		sqe.PrepareTimeout(s.ts, 0, s.tsFlags)
	case opLinkTimeout:
		sqe.PrepareLinkTimeout(time.Duration(s.ts.Nano()), s.tsFlags)
	case opTimeoutRemove:
		sqe.PrepareTimeoutRemove(s.target, s.tsFlags)
	case opTimeoutUpdate:
		sqe.PrepareTimeoutUpdate(time.Duration(s.ts.Nano()), s.target, s.tsFlags)
	case opCancel:
		sqe.PrepareCancel64(s.target, 0)
	case opPollAdd:
		if s.multishot {
			sqe.PreparePollMultishot(s.fd, s.mask)
		} else {
			sqe.PreparePollAdd(s.fd, s.mask)
		}
	case opPollRemove:
		sqe.PreparePollRemove(s.target)
	case opAccept:
		addrPtr := uintptr(unsafe.Pointer(s.rsa))
		addrLenPtr := uint64(uintptr(unsafe.Pointer(s.rsaLen)))
		if s.multishot {
			sqe.PrepareMultishotAccept(s.fd, addrPtr, addrLenPtr, int(s.opFlags))
		} else {
			sqe.PrepareAccept(s.fd, addrPtr, addrLenPtr, s.opFlags)
		}
	case opConnect:
		sqe.PrepareConnect(s.fd, uintptr(unsafe.Pointer(s.rsa)), uint64(*s.rsaLen))
	case opSend:
		sqe.PrepareSend(s.fd, uintptr(unsafe.Pointer(&s.buf[0])), uint32(len(s.buf)), int(s.opFlags))
	case opRecv:
		sqe.PrepareRecv(s.fd, uintptr(unsafe.Pointer(&s.buf[0])), uint32(len(s.buf)), int(s.opFlags))
	case opSplice:
		sqe.PrepareSplice(s.fd, s.off, s.dirFd2, s.off2, s.length, s.opFlags)
	case opTee:
		sqe.PrepareTee(s.fd, s.dirFd2, s.length, s.opFlags)
	case opShutdown:
		sqe.PrepareShutdown(s.fd, int(s.opFlags))
	default:
		sqe.PrepareNop()
	}
	sqe.Flags |= s.sqeFlags
}
