package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForEachProcessesAllItems(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]bool, len(items))
	ForEach(context.Background(), 8, items, func(_ context.Context, n int) {
		mu.Lock()
		seen[n] = true
		mu.Unlock()
	})

	assert.Len(t, seen, len(items))
}

func TestForEachBoundsConcurrency(t *testing.T) {
	const workers = 4
	var current, peak int64

	ForEach(context.Background(), workers, make([]struct{}, 50), func(context.Context, struct{}) {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&current, -1)
	})

	assert.LessOrEqual(t, peak, int64(workers))
	assert.Greater(t, peak, int64(0))
}

func TestForEachZeroWorkersStillRuns(t *testing.T) {
	var count int64
	ForEach(context.Background(), 0, []int{1, 2, 3}, func(_ context.Context, _ int) {
		atomic.AddInt64(&count, 1)
	})
	assert.EqualValues(t, 3, count)
}

func TestForEachEmptyItems(t *testing.T) {
	called := false
	ForEach(context.Background(), 4, nil, func(context.Context, int) { called = true })
	assert.False(t, called)
}

func TestForEachStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var processed int64
	ForEach(ctx, 1, make([]struct{}, 1000), func(context.Context, struct{}) {
		if atomic.AddInt64(&processed, 1) == 3 {
			cancel()
		}
	})

	assert.Less(t, atomic.LoadInt64(&processed), int64(1000))
}
