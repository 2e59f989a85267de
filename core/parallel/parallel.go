// Package parallel splits index ranges across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize calls fn over disjoint [start, end) chunks covering [0, items),
// one goroutine per chunk, and returns once all of them are done.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	workers := min(runtime.GOMAXPROCS(0), items)
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := min(start+chunk, items)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) inline when items does not
// exceed threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
