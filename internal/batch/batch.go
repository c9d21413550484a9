// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package batch runs indexed tasks in fixed-size groups.
//
// Every task in a group runs concurrently and the group is joined with
// all-settled semantics: one failing task never cancels its siblings and
// the next group starts only after the whole current group has finished.
// An optional pause between groups keeps the load of large documents
// spread out over time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPanic wraps a panic recovered from a task.
var ErrPanic = errors.New("batch: task panicked")

// Result is the outcome of one task.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Options controls grouping. A GroupSize below 1 runs every task in one
// group.
type Options struct {
	GroupSize int
	Delay     time.Duration

	// OnSettled is called after each task finishes with the number of
	// finished tasks and the total. Calls are serialised.
	OnSettled func(done, total int)
}

// Run executes task for every index in [0,n) and returns the results in
// index order. The context is checked before each group; once it is done
// the remaining tasks are not started and Run returns the results gathered
// so far together with the context error.
func Run[T any](ctx context.Context, n int, opts Options, task func(ctx context.Context, i int) (T, error)) ([]Result[T], error) {
	if n <= 0 {
		return nil, nil
	}
	size := opts.GroupSize
	if size < 1 || size > n {
		size = n
	}

	results := make([]Result[T], 0, n)
	var mu sync.Mutex
	done := 0

	for start := 0; start < n; start += size {
		if start > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return results, err
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := min(start+size, n)
		group := make([]Result[T], end-start)

		var wg sync.WaitGroup
		wg.Add(len(group))
		for i := start; i < end; i++ {
			go func() {
				defer wg.Done()
				v, err := call(ctx, i, task)
				group[i-start] = Result[T]{Index: i, Value: v, Err: err}

				if opts.OnSettled != nil {
					mu.Lock()
					done++
					opts.OnSettled(done, n)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		results = append(results, group...)
	}
	return results, nil
}

func call[T any](ctx context.Context, i int, task func(context.Context, int) (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return task(ctx, i)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Groups returns how many groups n tasks form at the given size.
func Groups(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size < 1 {
		return 1
	}
	return (n + size - 1) / size
}
