package utils

import (
	"runtime"
	"sync"
)

// ParallelFactor controls the max level of parallelization. Tests may lower it.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// ParallelForEachRow calls f once for every row in [0, height). Rows are split into contiguous
// bands, one goroutine per band, so f must only write state owned by its row. A panic in any band
// is raised again on the calling goroutine once every band has finished.
func ParallelForEachRow(height int, f func(y int)) {
	bands := min(ParallelFactor, height)
	if bands <= 1 {
		for y := 0; y < height; y++ {
			f(y)
		}
		return
	}
	band := (height + bands - 1) / bands
	var (
		wg        sync.WaitGroup
		panicOnce sync.Once
		panicked  interface{}
	)
	for from := 0; from < height; from += band {
		from := from
		to := min(from+band, height)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			for y := from; y < to; y++ {
				f(y)
			}
		}()
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
}
