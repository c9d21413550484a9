// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRunOrderAndValues(t *testing.T) {
	res, err := Run(context.Background(), 12, Options{GroupSize: 5}, func(_ context.Context, i int) (int, error) {
		time.Sleep(time.Duration(12-i) * time.Millisecond)
		return i * i, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var got []int
	for i, r := range res {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d", i, r.Index)
		}
		got = append(got, r.Value)
	}
	want := []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81, 100, 121}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	_, err := Run(context.Background(), 23, Options{GroupSize: 5}, func(context.Context, int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p := peak.Load(); p > 5 {
		t.Errorf("peak concurrency = %d, want <= 5", p)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	res, err := Run(context.Background(), 7, Options{GroupSize: 3}, func(_ context.Context, i int) (int, error) {
		switch i {
		case 1:
			return 0, boom
		case 4:
			panic("bad page")
		}
		return i, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res) != 7 {
		t.Fatalf("len(results) = %d, want 7", len(res))
	}
	for i, r := range res {
		switch i {
		case 1:
			if !errors.Is(r.Err, boom) {
				t.Errorf("results[1].Err = %v", r.Err)
			}
		case 4:
			if !errors.Is(r.Err, ErrPanic) {
				t.Errorf("results[4].Err = %v, want ErrPanic", r.Err)
			}
		default:
			if r.Err != nil || r.Value != i {
				t.Errorf("results[%d] = %+v", i, r)
			}
		}
	}
}

func TestRunProgress(t *testing.T) {
	var mu sync.Mutex
	var calls [][2]int
	_, err := Run(context.Background(), 6, Options{
		GroupSize: 4,
		OnSettled: func(done, total int) {
			mu.Lock()
			calls = append(calls, [2]int{done, total})
			mu.Unlock()
		},
	}, func(context.Context, int) (int, error) { return 0, nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := [][2]int{{1, 6}, {2, 6}, {3, 6}, {4, 6}, {5, 6}, {6, 6}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDelayBetweenGroups(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), 3, Options{GroupSize: 1, Delay: 20 * time.Millisecond},
		func(context.Context, int) (int, error) { return 0, nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if el := time.Since(start); el < 40*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 40ms for two pauses", el)
	}
}

func TestRunCancelledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	res, err := Run(ctx, 10, Options{GroupSize: 2, Delay: 10 * time.Millisecond}, func(_ context.Context, i int) (int, error) {
		started.Add(1)
		if i == 1 {
			cancel()
		}
		return i, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(res) != 2 || started.Load() != 2 {
		t.Errorf("results = %d, started = %d; want 2 and 2", len(res), started.Load())
	}
}

func TestRunEmpty(t *testing.T) {
	res, err := Run(context.Background(), 0, Options{}, func(context.Context, int) (int, error) {
		t.Fatal("task called")
		return 0, nil
	})
	if res != nil || err != nil {
		t.Errorf("Run(0) = %v, %v", res, err)
	}
}

func TestGroups(t *testing.T) {
	tests := []struct{ n, size, want int }{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{12, 3, 4},
		{7, 0, 1},
	}
	for _, tt := range tests {
		if got := Groups(tt.n, tt.size); got != tt.want {
			t.Errorf("Groups(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}
