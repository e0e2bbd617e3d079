package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gotaskpool/internal/testutils"
	"github.com/jzx17/gotaskpool/pkg/scheduler"
	"github.com/jzx17/gotaskpool/pkg/task"
	"github.com/jzx17/gotaskpool/pkg/types"
)

func TestNewWorker(t *testing.T) {
	worker := NewWorker(1, scheduler.NewFIFOScheduler())

	assert.Equal(t, 1, worker.ID())
	assert.Equal(t, WorkerStateIdle, worker.State())
}

func TestWorkerState(t *testing.T) {
	assert.Equal(t, "idle", WorkerStateIdle.String())
	assert.Equal(t, "working", WorkerStateWorking.String())
	assert.Equal(t, "stopped", WorkerStateStopped.String())
	assert.Equal(t, "unknown", WorkerState(999).String())
}

func TestWorker_RunsTasksUntilTerminated(t *testing.T) {
	s := scheduler.NewFIFOScheduler()
	worker := NewWorker(1, s)
	worker.Start()

	var executed atomic.Int64
	handles := make([]*task.Handle[int], 0, 10)
	for i := 0; i < 10; i++ {
		tk := task.New(func() int {
			executed.Add(1)
			return i
		})
		handles = append(handles, tk.Handle())
		s.Schedule(tk)
	}

	for i, h := range handles {
		v, err := h.Wait()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	s.Terminate()
	require.NoError(t, worker.Stop())

	assert.Equal(t, int64(10), executed.Load())
	assert.Equal(t, WorkerStateStopped, worker.State())

	stats := worker.Stats()
	assert.Equal(t, int64(10), stats.TotalProcessed)
	assert.Equal(t, int64(0), stats.TotalCancelled)
	assert.True(t, stats.IsStopped())
	assert.False(t, stats.LastTaskTime.IsZero())
}

func TestWorker_StopJoinsOnce(t *testing.T) {
	s := scheduler.NewFIFOScheduler()
	worker := NewWorker(1, s)
	worker.Start()
	worker.Start()

	s.Terminate()
	assert.NoError(t, worker.Stop())
	assert.NoError(t, worker.Stop())

	select {
	case <-worker.Done():
	default:
		t.Fatal("worker goroutine still running after Stop")
	}
}

func TestWorker_StopWithoutStart(t *testing.T) {
	worker := NewWorker(1, scheduler.NewFIFOScheduler())

	done := make(chan error, 1)
	go func() { done <- worker.Stop() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testutils.DefaultTimeout):
		t.Fatal("Stop blocked on a worker that was never started")
	}
	assert.Equal(t, WorkerStateStopped, worker.State())
}

func TestWorker_StateWhileWorking(t *testing.T) {
	s := scheduler.NewFIFOScheduler()
	worker := NewWorker(1, s)
	worker.Start()

	gate := testutils.NewGate()
	tk := task.New(func() int {
		gate.Pass()
		return 1
	})
	s.Schedule(tk)

	require.True(t, gate.WaitEntered(testutils.DefaultTimeout))
	assert.Equal(t, WorkerStateWorking, worker.State())
	assert.True(t, worker.Stats().IsActive())

	gate.Open()
	_, err := tk.Handle().Wait()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return worker.State() == WorkerStateIdle
	}, time.Second, time.Millisecond)

	s.Terminate()
	require.NoError(t, worker.Stop())
}

func TestWorker_PanicEndsWorker(t *testing.T) {
	s := scheduler.NewFIFOScheduler()
	worker := NewWorker(3, s)

	var exitErr atomic.Value
	worker.SetExitCallback(func(w *Worker, err error) {
		if err != nil {
			exitErr.Store(err)
		}
	})
	worker.Start()

	tk := task.New(func() int { panic("boom") }, task.WithID("task-panic"))
	s.Schedule(tk)

	_, err := tk.Handle().Wait()
	assert.ErrorIs(t, err, types.ErrChannelDisconnected)

	select {
	case <-worker.Done():
	case <-time.After(testutils.DefaultTimeout):
		t.Fatal("worker did not exit after panic")
	}

	// tasks scheduled after the worker died stay queued
	next := task.New(func() int { return 1 })
	s.Schedule(next)
	assert.Equal(t, 1, s.Len())

	s.Terminate()
	err = worker.Stop()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrWorkerPanic)

	var panicErr *types.WorkerPanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, 3, panicErr.WorkerID)
	assert.Equal(t, "task-panic", panicErr.TaskID)
	assert.Equal(t, "boom", panicErr.Recovered)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, err, exitErr.Load())

	_, err = next.Handle().Wait()
	assert.ErrorIs(t, err, types.ErrCancelled)
}

func TestWorker_CancelledTaskCounted(t *testing.T) {
	s := scheduler.NewFIFOScheduler()
	worker := NewWorker(1, s)

	var states []types.TaskState
	done := make(chan struct{}, 2)
	worker.SetCompletionCallback(func(_ time.Duration, state types.TaskState) {
		states = append(states, state)
		done <- struct{}{}
	})

	cancelled := task.New(func() int { return 1 })
	require.NoError(t, cancelled.Handle().Cancel())
	s.Schedule(cancelled)
	s.Schedule(task.New(func() int { return 2 }))

	worker.Start()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(testutils.DefaultTimeout):
			t.Fatal("completion callback not called")
		}
	}

	s.Terminate()
	require.NoError(t, worker.Stop())

	assert.Equal(t, []types.TaskState{types.StateCancelled, types.StateCompleted}, states)
	stats := worker.Stats()
	assert.Equal(t, int64(1), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.TotalCancelled)
}

func TestWorker_ExecutionTimeWithMockClock(t *testing.T) {
	mock := testutils.NewMockClock(t)
	clock := testutils.NewClockWrapper(mock)
	ctx, cancel := context.WithTimeout(context.Background(), testutils.DefaultTimeout)
	defer cancel()

	s := scheduler.NewFIFOScheduler()
	worker := NewWorkerWithClock(1, s, clock)

	var reported []time.Duration
	worker.SetCompletionCallback(func(d time.Duration, _ types.TaskState) {
		reported = append(reported, d)
	})
	worker.Start()

	start := mock.Now()
	for _, step := range []time.Duration{30 * time.Millisecond, 50 * time.Millisecond} {
		step := step
		tk := task.New(func() int {
			clock.Step(ctx, step)
			return 0
		})
		s.Schedule(tk)
		_, err := tk.Handle().Wait()
		require.NoError(t, err)
	}

	s.Terminate()
	require.NoError(t, worker.Stop())

	stats := worker.Stats()
	assert.Equal(t, 80*time.Millisecond, stats.TotalExecutionTime)
	assert.Equal(t, 40*time.Millisecond, stats.AverageExecutionTime())
	assert.Equal(t, start.Add(30*time.Millisecond).UnixNano(), stats.LastTaskTime.UnixNano())
	assert.Equal(t, []time.Duration{30 * time.Millisecond, 50 * time.Millisecond}, reported)
}

func TestWorkerStats_AverageExecutionTimeEmpty(t *testing.T) {
	assert.Equal(t, time.Duration(0), WorkerStats{}.AverageExecutionTime())
	assert.True(t, WorkerStats{State: WorkerStateIdle}.IsIdle())
}
