package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	dErrors "landtrust/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes   int32
	Errors      int32
	Unavailable int32
	NotFounds   int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Unavailable + r.NotFounds
}

// RunConcurrent executes fn in parallel goroutines and buckets the results
// by domain error code.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, unavailable, notFounds atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			if err == nil {
				successes.Add(1)
				return
			}
			switch dErrors.CodeOf(err) {
			case dErrors.CodeUnavailable:
				unavailable.Add(1)
			case dErrors.CodeNotFound:
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes:   successes.Load(),
		Errors:      errs.Load(),
		Unavailable: unavailable.Load(),
		NotFounds:   notFounds.Load(),
	}
}

// RunConcurrentCtx executes fn in parallel goroutines sharing ctx.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}
