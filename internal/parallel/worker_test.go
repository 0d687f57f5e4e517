package parallel_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paveg/vexpr/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()
	assert.Equal(t, runtime.NumCPU(), pool.Workers())

	pool2 := parallel.NewWorkerPool(4)
	defer pool2.Close()
	assert.Equal(t, 4, pool2.Workers())

	// Negative worker count defaults to CPU count
	pool3 := parallel.NewWorkerPool(-1)
	defer pool3.Close()
	assert.Equal(t, runtime.NumCPU(), pool3.Workers())
}

func TestProcessIndexed(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	// Results should maintain order
	input := []string{"a", "b", "c", "d"}

	results := parallel.ProcessIndexed(pool, input, func(index int, value string) string {
		return value + string(rune('0'+index))
	})

	expected := []string{"a0", "b1", "c2", "d3"}
	assert.Equal(t, expected, results)
}

func TestProcessIndexedEmpty(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	results := parallel.ProcessIndexed(pool, []string{}, func(_ int, value string) string {
		return value
	})

	assert.Nil(t, results)
}

func TestProcessIndexedConcurrency(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	var concurrentCount int64
	var maxConcurrent int64

	input := make([]int, 20)
	for i := range input {
		input[i] = i
	}

	results := parallel.ProcessIndexed(pool, input, func(_ int, x int) int {
		current := atomic.AddInt64(&concurrentCount, 1)
		for {
			maxVal := atomic.LoadInt64(&maxConcurrent)
			if current <= maxVal || atomic.CompareAndSwapInt64(&maxConcurrent, maxVal, current) {
				break
			}
		}

		time.Sleep(10 * time.Millisecond)

		atomic.AddInt64(&concurrentCount, -1)
		return x * 2
	})

	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i*2, r)
	}
	assert.Greater(t, maxConcurrent, int64(1), "Expected some concurrent execution")
}

func TestProcessIndexedContext(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		pool := parallel.NewWorkerPool(3)
		defer pool.Close()

		results, err := parallel.ProcessIndexedContext(context.Background(), pool, []int{1, 2, 3, 4, 5},
			func(_ context.Context, i int, x int) (int, error) {
				return i + x, nil
			})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 5, 7, 9}, results)
	})

	t.Run("first error is returned", func(t *testing.T) {
		pool := parallel.NewWorkerPool(1)
		defer pool.Close()

		boom := errors.New("boom")
		var calls int64
		results, err := parallel.ProcessIndexedContext(context.Background(), pool, []int{1, 2, 3, 4},
			func(_ context.Context, i int, x int) (int, error) {
				atomic.AddInt64(&calls, 1)
				if i == 1 {
					return 0, boom
				}
				return x, nil
			})

		require.ErrorIs(t, err, boom)
		assert.Len(t, results, 4)
		assert.Equal(t, 1, results[0])
		assert.Equal(t, int64(2), atomic.LoadInt64(&calls), "remaining items are skipped")
	})

	t.Run("cancelled context", func(t *testing.T) {
		pool := parallel.NewWorkerPool(2)
		defer pool.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := parallel.ProcessIndexedContext(ctx, pool, []int{1, 2, 3},
			func(_ context.Context, _ int, x int) (int, error) {
				return x, nil
			})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("closed pool", func(t *testing.T) {
		pool := parallel.NewWorkerPool(2)
		pool.Close()

		_, err := parallel.ProcessIndexedContext(context.Background(), pool, []int{1},
			func(_ context.Context, _ int, x int) (int, error) {
				return x, nil
			})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkerPoolClose(t *testing.T) {
	pool := parallel.NewWorkerPool(2)

	results := parallel.ProcessIndexed(pool, []int{1, 2, 3}, func(_ int, x int) int {
		return x
	})
	assert.Equal(t, []int{1, 2, 3}, results)

	pool.Close()
	assert.NotPanics(t, func() {
		pool.Close() // Should be safe to call multiple times
	})
}

func TestLargeDataset(t *testing.T) {
	pool := parallel.NewWorkerPool(runtime.NumCPU())
	defer pool.Close()

	size := 1000
	input := make([]int, size)
	for i := range size {
		input[i] = i
	}

	results := parallel.ProcessIndexed(pool, input, func(_ int, x int) int {
		return x*x + x + 1
	})

	require.Len(t, results, size)
	assert.Equal(t, 1, results[0])
	assert.Equal(t, 3, results[1])
	assert.Equal(t, 7, results[2])
}
