package uring

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrUnsupported    = errors.Define("vortex: kernel does not support io_uring")
	ErrClosed         = errors.Define("vortex: driver closed")
	ErrSubmit         = errors.Define("vortex: submit failed")
	ErrWait           = errors.Define("vortex: wait failed")
	ErrInvalidSub     = errors.Define("vortex: invalid submission")
	ErrLiveOperations = errors.Define("vortex: driver closed with in-flight operations")
)
