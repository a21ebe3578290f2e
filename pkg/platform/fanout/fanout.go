// Package fanout runs independent fallible tasks concurrently and collects
// every outcome, in task order, without letting one failure cancel the rest.
package fanout

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work in a fan-out.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the settled outcome of one Task. Exactly one of Value or Err is
// meaningful: when Err is nil, Value holds the task's return value.
type Result[T any] struct {
	Value   T
	Err     error
	Latency time.Duration
}

// OK reports whether the task settled without error.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// PanicError is recorded when a task panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// SettleAll starts every task at once and blocks until all of them have
// returned. Results are index-aligned with tasks regardless of completion
// order. A failing or panicking task never cancels its siblings; the only
// cancellation comes from ctx itself. An empty task list returns an empty slice.
func SettleAll[T any](ctx context.Context, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	// errgroup.Group without WithContext: no shared cancellation on error.
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = run(ctx, task)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors; outcomes live in results

	return results
}

func run[T any](ctx context.Context, task Task[T]) (res Result[T]) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			var zero T
			res = Result[T]{Value: zero, Err: &PanicError{Value: p}}
		}
		res.Latency = time.Since(start)
	}()

	v, err := task(ctx)
	return Result[T]{Value: v, Err: err}
}
