package async

import (
	"context"
	"sync/atomic"
)

// NewFuture constructs a settle-once future token. Hand the future to an
// operation as its token and call Get to collect the outcome; the stored
// error is re-raised from Get. Settling twice panics.
func NewFuture[R any]() *Future[R] {
	return &Future[R]{
		ch: make(chan result[R], 1),
	}
}

type Future[R any] struct {
	ch      chan result[R]
	settled atomic.Bool
}

func (f *Future[R]) Handler() Handler[R] {
	return f.settle
}

func (f *Future[R]) settle(value R, cause error) {
	if !f.settled.CompareAndSwap(false, true) {
		panic(ErrFutureSettled)
	}
	if cause != nil {
		f.ch <- failed[R](cause)
	} else {
		f.ch <- succeed[R](value)
	}
	close(f.ch)
}

// Get blocks until the future is settled or ctx ends.
func (f *Future[R]) Get(ctx context.Context) (value R, err error) {
	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	case r := <-f.ch:
		value = r.value
		err = r.cause
		return
	}
}

// TryGet collects the outcome without blocking.
func (f *Future[R]) TryGet() (value R, err error, ok bool) {
	select {
	case r := <-f.ch:
		value = r.value
		err = r.cause
		ok = true
		return
	default:
		return
	}
}
