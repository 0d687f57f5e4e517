// Package parallel provides the worker pool used to evaluate many batches
// concurrently.
//
// Work items are fanned out to a fixed number of goroutines and results are
// collected back in input order. Workers share nothing but the worker
// function, so a compiled expression program can be run over independent
// batches without locking.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool. A non-positive count uses one
// worker per CPU.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessIndexed executes work items in parallel while preserving order
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) []R {
	results, _ := ProcessIndexedContext(context.Background(), wp, items,
		func(_ context.Context, i int, item T) (R, error) {
			return worker(i, item), nil
		})
	return results
}

// ProcessIndexedContext executes work items in parallel and returns results
// in input order. The first error cancels the remaining items and is
// returned; results of items that completed are still returned so the
// caller can release them.
func ProcessIndexedContext[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if err := wp.ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(wp.ctx, cancel)
	defer stop()

	// Channel for input items with index
	itemCh := make(chan indexedItem[T], len(items))

	// Channel for results with index
	resultCh := make(chan indexedResult[R], len(items))

	workers := min(wp.numWorkers, len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				if ctx.Err() != nil {
					return
				}
				result, err := worker(ctx, item.index, item.value)
				resultCh <- indexedResult[R]{
					index:  item.index,
					result: result,
					err:    err,
				}
				if err != nil {
					cancel()
				}
			}
		}()
	}

	for i, item := range items {
		itemCh <- indexedItem[T]{index: i, value: item}
	}
	close(itemCh)

	// Close result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect results and maintain order
	var firstErr error
	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.result
		if result.err != nil && firstErr == nil {
			firstErr = result.err
		}
	}

	if firstErr != nil {
		return results, firstErr
	}
	return results, ctx.Err()
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index
type indexedResult[R any] struct {
	index  int
	result R
	err    error
}
