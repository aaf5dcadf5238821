package engine

// Options controls engine evaluation behavior.
type Options struct {
	// MaxIterations caps fixpoint loops. A loop that has not converged
	// after this many passes stops with IterationCapExceeded.
	MaxIterations int

	// Workers sets the worker pool size for data-parallel operator
	// evaluation. 0 or 1 disables parallelism.
	Workers int

	// ParallelThreshold is the minimum relation size before filter and
	// project evaluation is split across the worker pool. Small inputs
	// are cheaper to evaluate sequentially.
	ParallelThreshold int

	// EnableDebugLogging gates operator-level trace output.
	EnableDebugLogging bool
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		MaxIterations:     1000,
		Workers:           0,
		ParallelThreshold: 4096,
	}
}
