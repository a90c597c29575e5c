package async

import (
	"context"
	"sync/atomic"
)

// NewAwaitable constructs an awaitable token. Await parks the calling
// goroutine until the operation settles it, then returns the value or
// re-raises the stored error. Awaiting the same awaitable twice is
// undefined; settling twice panics.
func NewAwaitable[R any]() *Awaitable[R] {
	return &Awaitable[R]{
		ch: make(chan result[R], 1),
	}
}

type Awaitable[R any] struct {
	ch      chan result[R]
	settled atomic.Bool
}

func (a *Awaitable[R]) Handler() Handler[R] {
	return a.resume
}

// resume records the outcome and resumes the parked awaiter.
func (a *Awaitable[R]) resume(value R, cause error) {
	if !a.settled.CompareAndSwap(false, true) {
		panic(ErrAwaitableSettled)
	}
	if cause != nil {
		a.ch <- failed[R](cause)
	} else {
		a.ch <- succeed[R](value)
	}
}

// Await suspends until resumed or ctx ends.
func (a *Awaitable[R]) Await(ctx context.Context) (value R, err error) {
	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	case r := <-a.ch:
		value = r.value
		err = r.cause
		return
	}
}
