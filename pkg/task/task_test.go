package task_test

import (
	"testing"

	"github.com/brickingsoft/vortex/pkg/task"
)

func TestRunOnce(t *testing.T) {
	ran := 0
	tsk := task.Of(func() {
		ran++
	})
	if tsk.IsEmpty() {
		t.Fatal("bound task is empty")
	}
	tsk.Run()
	if ran != 1 {
		t.Fatal("ran", ran)
	}
	if !tsk.IsEmpty() {
		t.Fatal("ran task is not empty")
	}
	task.Release(tsk)
}

func TestRunEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("run of empty task did not panic")
		}
	}()
	tsk := task.Acquire()
	tsk.Run()
}

func TestBindNonEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("bind of non-empty task did not panic")
		}
	}()
	tsk := task.Of(func() {})
	defer task.Release(tsk)
	tsk.Bind(func() {})
}

func TestMove(t *testing.T) {
	state := "captured"
	got := ""
	src := task.Of(func() {
		got = state
	})
	dst := task.Acquire()
	src.MoveTo(dst)
	if !src.IsEmpty() {
		t.Fatal("moved-from task is not empty")
	}
	dst.Run()
	if got != "captured" {
		t.Fatal("moved task lost its state:", got)
	}
	task.Release(src)
	task.Release(dst)
}

func TestMoveOntoBound(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("move onto non-empty task did not panic")
		}
	}()
	src := task.Of(func() {})
	dst := task.Of(func() {})
	src.MoveTo(dst)
}

func TestCompletion(t *testing.T) {
	var (
		gotN     int32
		gotFlags uint32
		gotErr   error
	)
	tsk := task.OfCompletion(func(n int32, flags uint32, err error) {
		gotN = n
		gotFlags = flags
		gotErr = err
	}, 42, 1, nil)
	tsk.Run()
	if gotN != 42 || gotFlags != 1 || gotErr != nil {
		t.Fatal("completion result", gotN, gotFlags, gotErr)
	}
	if !tsk.IsEmpty() {
		t.Fatal("ran task is not empty")
	}
	task.Release(tsk)
}

func TestOneShotOnPanic(t *testing.T) {
	tsk := task.Of(func() {
		panic("boom")
	})
	func() {
		defer func() {
			_ = recover()
		}()
		tsk.Run()
	}()
	if !tsk.IsEmpty() {
		t.Fatal("panicked task is not empty")
	}
	task.Release(tsk)
}

func TestPoolRoundTrip(t *testing.T) {
	for i := 0; i < 1024; i++ {
		tsk := task.Of(func() {})
		tsk.Run()
		task.Release(tsk)
	}
}
