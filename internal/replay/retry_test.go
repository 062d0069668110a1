package replay

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := newRetrier(3, time.Millisecond, nil).do(context.Background(), "write", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetrierReturnsLastError(t *testing.T) {
	calls := 0
	full := errors.New("disk full")
	err := newRetrier(2, time.Millisecond, nil).do(context.Background(), "write", func(context.Context) error {
		calls++
		return full
	})
	if !errors.Is(err, full) {
		t.Fatalf("err = %v, want disk full", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetrierNegativeRetriesRunsOnce(t *testing.T) {
	calls := 0
	_ = newRetrier(-1, 0, nil).do(context.Background(), "write", func(context.Context) error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetrierStopsOnContextError(t *testing.T) {
	calls := 0
	err := newRetrier(5, time.Hour, nil).do(context.Background(), "write", func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) || calls != 1 {
		t.Fatalf("err = %v after %d calls", err, calls)
	}
}

func TestRetrierHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newRetrier(5, time.Hour, nil).do(ctx, "write", func(context.Context) error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}
