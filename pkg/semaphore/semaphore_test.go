package semaphore_test

import (
	"sync"
	"testing"

	"github.com/brickingsoft/vortex/pkg/executor"
	"github.com/brickingsoft/vortex/pkg/semaphore"
)

func newSerial(t *testing.T) *executor.Serial {
	t.Helper()
	exec, execErr := executor.NewSerial()
	if execErr != nil {
		t.Fatal(execErr)
	}
	return exec
}

func TestTryAcquire(t *testing.T) {
	exec := newSerial(t)
	s, sErr := semaphore.New(exec, 1)
	if sErr != nil {
		t.Fatal(sErr)
	}
	if !s.TryAcquire() {
		t.Fatal("try acquire failed with a permit available")
	}
	if s.TryAcquire() {
		t.Fatal("try acquire succeeded without permits")
	}
	if s.Permits() != 0 {
		t.Fatal("permits", s.Permits())
	}
	s.Release(1)
	if s.Permits() != 1 {
		t.Fatal("permits after release", s.Permits())
	}
}

func TestAsyncAcquireImmediate(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 1)
	ran := false
	s.AsyncAcquire(func() {
		ran = true
	})
	exec.RunOnce()
	if !ran {
		t.Fatal("acquirer did not run")
	}
	if s.Waiters() != 0 {
		t.Fatal("waiters", s.Waiters())
	}
}

func TestFairness(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 0)
	log := ""
	s.AsyncAcquire(func() { log += "a" })
	s.AsyncAcquire(func() { log += "b" })
	s.AsyncAcquire(func() { log += "c" })
	if s.Waiters() != 3 {
		t.Fatal("waiters", s.Waiters())
	}
	s.Release(2)
	exec.RunOnce()
	if log != "ab" {
		t.Fatal("log", log)
	}
	if s.Permits() != -1 {
		t.Fatal("permits", s.Permits())
	}
	if s.Waiters() != 1 {
		t.Fatal("waiters", s.Waiters())
	}
	s.Release(1)
	exec.RunOnce()
	if log != "abc" {
		t.Fatal("log", log)
	}
}

func TestAcquireReleaseExactlyOnce(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 0)
	ran := 0
	s.AsyncAcquire(func() { ran++ })
	s.Release(1)
	exec.RunOnce()
	exec.RunOnce()
	if ran != 1 {
		t.Fatal("acquirer ran", ran, "times")
	}
}

func TestConservation(t *testing.T) {
	exec, execErr := executor.NewConcurrent()
	if execErr != nil {
		t.Fatal(execErr)
	}
	s, _ := semaphore.New(exec, 4)
	wg := new(sync.WaitGroup)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			s.AsyncAcquire(func() {
				s.Release(1)
			})
			wg.Done()
		}()
	}
	wg.Wait()
	for s.Waiters() > 0 || exec.Pending() > 0 {
		exec.RunOnce()
	}
	if s.Permits() != 4 {
		t.Fatal("permits did not conserve:", s.Permits())
	}
}

func TestGuardTry(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 1)
	g := semaphore.NewGuard(s, semaphore.Try)
	if !g.Owned() {
		t.Fatal("guard did not own the available permit")
	}
	g2 := semaphore.NewGuard(s, semaphore.Try)
	if g2.Owned() {
		t.Fatal("second guard owned an exhausted permit")
	}
	_ = g.Close()
	if s.Permits() != 1 {
		t.Fatal("close did not release:", s.Permits())
	}
	_ = g.Close()
	if s.Permits() != 1 {
		t.Fatal("double close released twice:", s.Permits())
	}
}

func TestGuardDeferAdopt(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 1)
	g := semaphore.NewGuard(s, semaphore.Defer)
	if g.Owned() {
		t.Fatal("deferred guard owns a permit")
	}
	if !g.TryAcquire() {
		t.Fatal("deferred guard could not acquire")
	}
	g.Release()

	ran := false
	a1 := semaphore.NewGuard(s, semaphore.Defer)
	a1.Acquire(func() {
		ran = true
	})
	exec.RunOnce()
	if !ran {
		t.Fatal("deferred acquire did not run")
	}
	if !a1.Owned() {
		t.Fatal("deferred guard does not own its acquired permit")
	}
	if s.Permits() != 0 {
		t.Fatal("permits", s.Permits())
	}
	a1.Release()

	if !s.TryAcquire() {
		t.Fatal("manual acquire failed")
	}
	a := semaphore.NewGuard(s, semaphore.Adopt)
	if !a.Owned() {
		t.Fatal("adopted guard owns nothing")
	}
	a.Release()
	if s.Permits() != 1 {
		t.Fatal("permits", s.Permits())
	}
}

func TestGuardAcquireWaits(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 0)
	g := semaphore.NewGuard(s, semaphore.Defer)
	ran := false
	g.Acquire(func() {
		ran = true
	})
	exec.RunOnce()
	if ran {
		t.Fatal("acquirer ran without a permit")
	}
	s.Release(1)
	exec.RunOnce()
	if !ran {
		t.Fatal("acquirer did not run after release")
	}
	if !g.Owned() {
		t.Fatal("guard does not own the released permit")
	}
	g.Release()
	if s.Permits() != 1 {
		t.Fatal("permits", s.Permits())
	}
}

func TestCloseWithWaiters(t *testing.T) {
	exec := newSerial(t)
	s, _ := semaphore.New(exec, 0)
	s.AsyncAcquire(func() {})
	defer func() {
		if recover() == nil {
			t.Fatal("close with live waiters did not panic")
		}
	}()
	_ = s.Close()
}
