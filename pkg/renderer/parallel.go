// Package renderer drives the progressive rendering loop: it owns the frame
// buffer, schedules the per-iteration work of an integrator across workers
// and writes the accumulated images to disk or a preview sink.
package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ParallelFor executes body(i) for every i in [0, count) on numWorkers
// goroutines, handing out indices through a shared counter. A panicking body
// aborts its worker; the first panic is returned as an error after all
// workers have finished. numWorkers < 1 uses one worker per CPU.
func ParallelFor(count, numWorkers int, body func(i int)) error {
	if count <= 0 {
		return nil
	}
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > count {
		numWorkers = count
	}

	var (
		next     int64
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	worker := func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("worker panicked: %v", r)
				})
			}
		}()
		for {
			i := int(atomic.AddInt64(&next, 1)) - 1
			if i >= count {
				return
			}
			body(i)
		}
	}

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go worker()
	}
	wg.Wait()
	return firstErr
}
