package engine

import (
	"fmt"
	"runtime"
	"sync"
)

// WorkerPool provides generic parallel execution for embarrassingly
// parallel operator work: per-chunk filter and project evaluation today,
// per-partition aggregation if it ever pays off. Results come back in
// input order, so downstream multiset semantics are unaffected.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a worker pool. workerCount <= 0 uses NumCPU.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{workerCount: workerCount}
}

// ExecuteParallel runs operation on every input and returns the results
// in input order, or the first failure.
func (p *WorkerPool) ExecuteParallel(
	inputs []interface{},
	operation func(interface{}) (interface{}, error),
) ([]interface{}, error) {
	if len(inputs) == 0 {
		return []interface{}{}, nil
	}

	results := make([]interface{}, len(inputs))
	errs := make([]error, len(inputs))

	jobs := make(chan int, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < p.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result, err := operation(inputs[idx])
				results[idx] = result
				errs[idx] = err
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("parallel execution failed at index %d: %w", i, err)
		}
	}

	return results, nil
}

// WorkerCount returns the number of worker goroutines.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}
