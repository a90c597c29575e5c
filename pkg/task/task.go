// Package task provides the one-shot callable cell that the executor run
// queues and the ring driver traffic in.
package task

import (
	"sync"
)

// Handler consumes one raw completion: the kernel result, the completion
// flags and an error slot. The ring driver leaves the error slot nil; a
// negative kernel result is translated by the caller's shim.
type Handler func(n int32, flags uint32, err error)

const (
	// stateEmpty through stateCompletion; exactly one holds at any time.
	stateEmpty uint8 = iota
	stateDirect
	stateCompletion
)

const borrowed uint8 = 1 << 7

// Task is a one-shot callable cell. It is in exactly one of three states:
// empty, direct (a plain func()), or completion (a Handler with its bound
// result stored inline in the cell). A moved-from or ran cell is empty.
// Cells must not be copied; transfer with MoveTo.
type Task struct {
	fn    func()
	h     Handler
	err   error
	n     int32
	flags uint32
	state uint8
}

var cells = sync.Pool{
	New: func() interface{} {
		return &Task{state: borrowed}
	},
}

// Acquire returns an empty pooled cell.
func Acquire() *Task {
	return cells.Get().(*Task)
}

// Release empties the cell and, when it came from the pool, recycles it.
func Release(t *Task) {
	t.reset()
	if t.state&borrowed != 0 {
		cells.Put(t)
	}
}

// Of acquires a cell bound to fn.
func Of(fn func()) *Task {
	t := Acquire()
	t.Bind(fn)
	return t
}

// OfCompletion acquires a cell bound to h with its result.
func OfCompletion(h Handler, n int32, flags uint32, err error) *Task {
	t := Acquire()
	t.BindCompletion(h, n, flags, err)
	return t
}

// Bind loads fn into an empty cell.
func (t *Task) Bind(fn func()) {
	if !t.IsEmpty() {
		panic("task: bind of non-empty task")
	}
	if fn == nil {
		panic("task: bind of nil func")
	}
	t.fn = fn
	t.state = t.state&borrowed | stateDirect
}

// BindCompletion loads h and its bound result into an empty cell. The
// result travels inline in the cell, so posting a completion performs no
// further allocation.
func (t *Task) BindCompletion(h Handler, n int32, flags uint32, err error) {
	if !t.IsEmpty() {
		panic("task: bind of non-empty task")
	}
	if h == nil {
		panic("task: bind of nil handler")
	}
	t.h = h
	t.n = n
	t.flags = flags
	t.err = err
	t.state = t.state&borrowed | stateCompletion
}

// Run invokes the cell and empties it. The cell is emptied before the body
// runs, so the cell stays one-shot even when the body panics. Running an
// empty cell panics.
func (t *Task) Run() {
	switch t.state &^ borrowed {
	case stateDirect:
		fn := t.fn
		t.reset()
		fn()
	case stateCompletion:
		h, n, flags, err := t.h, t.n, t.flags, t.err
		t.reset()
		h(n, flags, err)
	default:
		panic("task: run of empty task")
	}
}

// MoveTo transfers the cell's state into dst and empties the source.
// The destination must be empty.
func (t *Task) MoveTo(dst *Task) {
	if !dst.IsEmpty() {
		panic("task: move onto non-empty task")
	}
	dst.fn = t.fn
	dst.h = t.h
	dst.n = t.n
	dst.flags = t.flags
	dst.err = t.err
	dst.state = dst.state&borrowed | t.state&^borrowed
	t.reset()
}

func (t *Task) IsEmpty() bool {
	return t.state&^borrowed == stateEmpty
}

func (t *Task) reset() {
	t.fn = nil
	t.h = nil
	t.n = 0
	t.flags = 0
	t.err = nil
	t.state &= borrowed
}
