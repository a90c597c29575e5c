//go:build linux

package uring_test

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/brickingsoft/vortex/pkg/executor"
	"github.com/brickingsoft/vortex/pkg/uring"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, options ...uring.Option) (*uring.Driver, *executor.Serial) {
	t.Helper()
	exec, execErr := executor.NewSerial()
	require.NoError(t, execErr)
	options = append(options, uring.WithExecutor(exec), uring.WithWaitTimeout(50*time.Millisecond))
	d, dErr := uring.Open(options...)
	if dErr != nil {
		t.Skip("io_uring unavailable:", dErr)
	}
	return d, exec
}

func drain(t *testing.T, d *uring.Driver, exec *executor.Serial) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for d.Pending() > 0 || exec.Pending() > 0 {
		require.True(t, time.Now().Before(deadline), "drain timed out, pending %d", d.Pending())
		_, pollErr := d.PollOneRound()
		require.NoError(t, pollErr)
		exec.RunOnce()
	}
}

func TestOpenClose(t *testing.T) {
	d, _ := open(t)
	require.NoError(t, d.Close())
}

func TestNop(t *testing.T) {
	d, exec := open(t)
	defer d.Close()

	var got int32 = -1
	id, submitErr := d.Submit(uring.Nop(), func(n int32, flags uint32, err error) {
		got = n
	})
	require.NoError(t, submitErr)
	require.NotZero(t, id)
	require.Equal(t, int64(1), d.Pending())

	drain(t, d, exec)
	require.Equal(t, int32(0), got)
	require.Equal(t, int64(0), d.Pending())
}

func TestSubmitNilCompletion(t *testing.T) {
	d, _ := open(t)
	defer d.Close()
	require.Panics(t, func() {
		_, _ = d.Submit(uring.Nop(), nil)
	})
}

func TestSubmitInvalid(t *testing.T) {
	d, _ := open(t)
	defer d.Close()
	_, err := d.Submit(uring.Read(0, nil, 0), func(int32, uint32, error) {})
	require.ErrorIs(t, err, uring.ErrInvalidSub)
}

func TestBurstPastRingCapacity(t *testing.T) {
	d, exec := open(t, uring.WithEntries(2))
	defer d.Close()

	const burst = 16
	ran := 0
	for i := 0; i < burst; i++ {
		_, submitErr := d.Submit(uring.Nop(), func(n int32, flags uint32, err error) {
			ran++
		})
		require.NoError(t, submitErr)
	}
	drain(t, d, exec)
	require.Equal(t, burst, ran)
	require.Equal(t, int64(0), d.Pending())
}

func TestCancelSleep(t *testing.T) {
	d, exec := open(t)
	defer d.Close()
	if !d.Feature(uring.FeatureCancel) {
		t.Skip("kernel lacks cancel")
	}

	var sleepRes int32
	sleepId, sleepErr := d.Submit(uring.Sleep(10*time.Second), func(n int32, flags uint32, err error) {
		sleepRes = n
	})
	require.NoError(t, sleepErr)

	var cancelRes int32 = -1
	_, cancelErr := d.Submit(uring.Cancel(uint64(sleepId)), func(n int32, flags uint32, err error) {
		cancelRes = n
	})
	require.NoError(t, cancelErr)

	drain(t, d, exec)
	require.Equal(t, -int32(syscall.ECANCELED), sleepRes)
	require.GreaterOrEqual(t, cancelRes, int32(0))
}

func TestCloseWithPendingPanics(t *testing.T) {
	d, exec := open(t)

	id, submitErr := d.Submit(uring.Sleep(10*time.Second), func(int32, uint32, error) {})
	require.NoError(t, submitErr)

	require.Panics(t, func() {
		_ = d.Close()
	})

	_, cancelErr := d.Submit(uring.Cancel(uint64(id)), func(int32, uint32, error) {})
	require.NoError(t, cancelErr)
	drain(t, d, exec)
	require.NoError(t, d.Close())
}

func TestEntryReleasedOnPanickingDispatch(t *testing.T) {
	d, exec := open(t)
	defer d.Close()

	_, submitErr := d.Submit(uring.Nop(), func(int32, uint32, error) {
		panic("completion boom")
	})
	require.NoError(t, submitErr)

	deadline := time.Now().Add(5 * time.Second)
	for d.Pending() > 0 {
		require.True(t, time.Now().Before(deadline))
		_, pollErr := d.PollOneRound()
		require.NoError(t, pollErr)
	}
	// the entry died with the terminal completion; the panic surfaces from
	// the executor drain, not the driver
	require.Panics(t, func() {
		exec.RunOnce()
	})
	require.Equal(t, int64(0), d.Pending())
}

func TestConcurrentSubmit(t *testing.T) {
	exec, execErr := executor.NewConcurrent()
	require.NoError(t, execErr)
	d, dErr := uring.OpenConcurrent(uring.WithExecutor(exec), uring.WithWaitTimeout(50*time.Millisecond))
	if dErr != nil {
		t.Skip("io_uring unavailable:", dErr)
	}
	defer d.Close()

	const producers = 8
	var (
		mu  sync.Mutex
		ran int
		wg  sync.WaitGroup
	)
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				_, submitErr := d.Submit(uring.Nop(), func(n int32, flags uint32, err error) {
					mu.Lock()
					ran++
					mu.Unlock()
				})
				require.NoError(t, submitErr)
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for d.Pending() > 0 || exec.Pending() > 0 {
		require.True(t, time.Now().Before(deadline))
		_, pollErr := d.PollOneRound()
		require.NoError(t, pollErr)
		exec.RunOnce()
	}
	require.Equal(t, producers*16, ran)
}
