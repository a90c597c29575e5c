//go:build linux

package vortex

import (
	"fmt"
	"time"
)

type Options struct {
	Entries     uint32
	WaitTimeout time.Duration
	ThreadSafe  bool
}

type Option func(*Options) error

// WithEntries sets the kernel ring capacity.
func WithEntries(entries uint32) Option {
	return func(o *Options) error {
		if entries == 0 {
			return fmt.Errorf("entries must be greater than 0")
		}
		o.Entries = entries
		return nil
	}
}

// WithWaitTimeout bounds one poll round.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d < 1 {
			return fmt.Errorf("wait timeout must be greater than 0")
		}
		o.WaitTimeout = d
		return nil
	}
}

// WithThreadSafe selects the concurrent executor and driver: submissions
// and posts from any goroutine, one consumer goroutine draining.
func WithThreadSafe() Option {
	return func(o *Options) error {
		o.ThreadSafe = true
		return nil
	}
}

func newOptions(options []Option) (Options, error) {
	opts := Options{}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}
