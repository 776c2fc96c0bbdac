// Package parallel runs independent jobs on a bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int

	// Timeout is the maximum time for the entire operation.
	// Default: 0 (no timeout)
	Timeout time.Duration
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxWorkers: max(2, min(runtime.NumCPU(), 8))}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// WithTimeout returns a new config with the specified timeout.
func (c PoolConfig) WithTimeout(d time.Duration) PoolConfig {
	c.Timeout = d
	return c
}

// TaskResult holds the result of one job.
type TaskResult[T any, R any] struct {
	Input    T
	Result   R
	Error    error
	Duration time.Duration
}

// Map calls fn for every input on at most MaxWorkers goroutines. Results are
// returned in input order. Inputs not started before the context ends carry
// the context error.
func Map[T any, R any](ctx context.Context, inputs []T, config PoolConfig, fn func(ctx context.Context, input T) (R, error)) []TaskResult[T, R] {
	if len(inputs) == 0 {
		return nil
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	results := make([]TaskResult[T, R], len(inputs))
	for i, in := range inputs {
		results[i].Input = in
	}

	taskCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(config.MaxWorkers, len(inputs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskCh {
				start := time.Now()
				res, err := fn(ctx, inputs[idx])
				results[idx].Result = res
				results[idx].Error = err
				results[idx].Duration = time.Since(start)
			}
		}()
	}

	next := 0
submit:
	for ; next < len(inputs); next++ {
		select {
		case <-ctx.Done():
			break submit
		case taskCh <- next:
		}
	}
	close(taskCh)
	wg.Wait()

	for i := next; i < len(inputs); i++ {
		results[i].Error = ctx.Err()
	}
	return results
}
