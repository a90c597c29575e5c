//go:build linux

package uring

import (
	"fmt"
	"time"

	"github.com/brickingsoft/vortex/pkg/executor"
)

const (
	defaultEntries     = uint32(1024)
	defaultWaitTimeout = 50 * time.Millisecond
)

type Options struct {
	Entries     uint32
	WaitTimeout time.Duration
	Exec        executor.Executor
}

type Option func(*Options) error

// WithEntries sets the submission ring capacity.
func WithEntries(entries uint32) Option {
	return func(o *Options) error {
		if entries == 0 {
			return fmt.Errorf("entries must be greater than 0")
		}
		o.Entries = entries
		return nil
	}
}

// WithWaitTimeout bounds one PollOneRound wait so a drained caller can
// observe shutdown.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d < 1 {
			return fmt.Errorf("wait timeout must be greater than 0")
		}
		o.WaitTimeout = d
		return nil
	}
}

// WithExecutor sets the executor completions are dispatched on.
func WithExecutor(exec executor.Executor) Option {
	return func(o *Options) error {
		if exec == nil {
			return fmt.Errorf("executor must not be nil")
		}
		o.Exec = exec
		return nil
	}
}

func newOptions(options []Option) (Options, error) {
	opts := Options{
		Entries:     defaultEntries,
		WaitTimeout: defaultWaitTimeout,
	}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return opts, err
		}
	}
	if opts.Exec == nil {
		serial, serialErr := executor.NewSerial()
		if serialErr != nil {
			return opts, serialErr
		}
		opts.Exec = serial
	}
	return opts, nil
}
