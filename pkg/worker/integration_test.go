package worker

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jzx17/gotaskpool/pkg/task"
	"github.com/jzx17/gotaskpool/pkg/types"
)

// TestPool_Throughput submits 10,000 increments to 8 workers
func TestPool_Throughput(t *testing.T) {
	pool, err := NewPool(&Config{NumWorkers: 8, Logger: zap.NewNop()})
	require.NoError(t, err)

	const numTasks = 10000
	var counter atomic.Int64
	handles := make([]*task.Handle[struct{}], 0, numTasks)

	start := time.Now()
	for i := 0; i < numTasks; i++ {
		handles = append(handles, pool.Submit(func() { counter.Add(1) }))
	}
	for _, h := range handles {
		_, err := h.Wait()
		require.NoError(t, err)
	}
	duration := time.Since(start)

	t.Logf("Processed %d tasks in %v", numTasks, duration)
	t.Logf("Throughput: %.2f tasks/second", float64(numTasks)/duration.Seconds())

	require.NoError(t, pool.Terminate())
	assert.Equal(t, int64(numTasks), counter.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(numTasks), stats.TotalCommitted)
	assert.Equal(t, int64(numTasks), stats.TotalCompleted)
	assert.Equal(t, int64(0), stats.TotalCancelled)
}

// TestPool_ConcurrentSubmission commits from many goroutines at once
func TestPool_ConcurrentSubmission(t *testing.T) {
	pool, err := NewPool(&Config{NumWorkers: 10, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer pool.Close()

	const (
		numGoroutines     = 20
		tasksPerGoroutine = 100
	)

	var completed atomic.Int64
	var g errgroup.Group
	for i := 0; i < numGoroutines; i++ {
		g.Go(func() error {
			handles := make([]*task.Handle[int], 0, tasksPerGoroutine)
			for j := 0; j < tasksPerGoroutine; j++ {
				handles = append(handles, Commit(pool, func() int {
					completed.Add(1)
					return i*tasksPerGoroutine + j
				}))
			}
			for j, h := range handles {
				v, err := h.Wait()
				if err != nil {
					return err
				}
				if v != i*tasksPerGoroutine+j {
					return errors.New("result delivered to the wrong handle")
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(numGoroutines*tasksPerGoroutine), completed.Load())
}

// TestPool_CancelRace cancels tasks while workers dequeue them. Every handle
// must report exactly the path that actually executed.
func TestPool_CancelRace(t *testing.T) {
	pool, err := NewPool(&Config{NumWorkers: 4, Logger: zap.NewNop()})
	require.NoError(t, err)

	const numTasks = 2000
	ran := make([]atomic.Bool, numTasks)
	handles := make([]*task.Handle[int], numTasks)
	for i := 0; i < numTasks; i++ {
		handles[i] = Commit(pool, func() int {
			ran[i].Store(true)
			return i
		})
	}

	cancelErrs := make([]error, numTasks)
	var g errgroup.Group
	for i := 0; i < numTasks; i++ {
		g.Go(func() error {
			cancelErrs[i] = handles[i].Cancel()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i, h := range handles {
		v, err := h.Wait()
		if cancelErrs[i] == nil {
			assert.ErrorIs(t, err, types.ErrCancelled, "task %d", i)
			assert.Equal(t, types.StateCancelled, h.State())
		} else {
			assert.ErrorIs(t, cancelErrs[i], types.ErrCancelAfterRunning)
			require.NoError(t, err, "task %d", i)
			assert.Equal(t, i, v)
		}
	}

	require.NoError(t, pool.Terminate())

	var cancelled int64
	for i := range handles {
		if cancelErrs[i] == nil {
			cancelled++
			assert.False(t, ran[i].Load(), "cancelled task %d executed", i)
		} else {
			assert.True(t, ran[i].Load(), "task %d never executed", i)
		}
	}
	stats := pool.Stats()
	assert.Equal(t, cancelled, stats.TotalCancelled)
	assert.Equal(t, int64(numTasks)-cancelled, stats.TotalCompleted)
}
