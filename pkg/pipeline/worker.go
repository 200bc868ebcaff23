package pipeline

import (
	"context"
	"sync"
)

// WorkerPool runs workerFunc over submitted tasks on a fixed number of
// goroutines.
type WorkerPool[T any] struct {
	workers    int
	taskQueue  chan T
	workerFunc func(context.Context, T)
	wg         sync.WaitGroup
	ctx        context.Context
}

func NewWorkerPool[T any](workers int, workerFunc func(context.Context, T)) *WorkerPool[T] {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool[T]{
		workers:    workers,
		taskQueue:  make(chan T, workers*2),
		workerFunc: workerFunc,
	}
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	wp.ctx = ctx
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// Submit queues a task. It returns false once the pool's context is done.
func (wp *WorkerPool[T]) Submit(task T) bool {
	select {
	case wp.taskQueue <- task:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (wp *WorkerPool[T]) Stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
}

func (wp *WorkerPool[T]) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			wp.workerFunc(ctx, task)

		case <-ctx.Done():
			return
		}
	}
}

// runIndexed applies fn to every item with at most workers goroutines and
// returns the outputs in input order.
func runIndexed[In, Out any](ctx context.Context, workers int, items []In, fn func(context.Context, In) Out) []Out {
	out := make([]Out, len(items))
	if len(items) == 0 {
		return out
	}

	pool := NewWorkerPool(min(workers, len(items)), func(ctx context.Context, i int) {
		out[i] = fn(ctx, items[i])
	})
	pool.Start(ctx)
	for i := range items {
		if !pool.Submit(i) {
			break
		}
	}
	pool.Stop()
	return out
}
