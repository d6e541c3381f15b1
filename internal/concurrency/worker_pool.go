package concurrency

import (
	"context"
	"sync"
)

// WorkerFn is run once per worker; index identifies the worker.
type WorkerFn func(ctx context.Context, index int)

// SimpleWorkerPool starts concurrency workers and blocks until all of them return.
func SimpleWorkerPool(ctx context.Context, concurrency int, fn WorkerFn) {
	if concurrency < 1 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			fn(ctx, idx)
		}(i)
	}
	wg.Wait()
}
