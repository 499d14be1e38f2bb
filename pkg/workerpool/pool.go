package workerpool

import (
	"context"
	"sync"
)

// ForEach processes items with at most workers concurrent goroutines and
// blocks until all items are handled or the context is cancelled. Item
// failures are the callback's responsibility; one slow or failing item
// never blocks the others.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if len(items) == 0 {
		return
	}

	ch := make(chan T)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range ch {
				fn(ctx, item)
			}
		}()
	}

	for _, item := range items {
		select {
		case ch <- item:
		case <-ctx.Done():
			close(ch)
			wg.Wait()
			return
		}
	}
	close(ch)
	wg.Wait()
}
