package holdings

import (
	"context"
	"time"
)

// Condition is a predicate evaluated against the live page.
type Condition func(ctx context.Context) (bool, error)

// Clock is the time source of every bounded wait.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll evaluates cond every interval until it holds, fails, or timeout has
// elapsed. It returns false, nil on timeout: the caller picks the error.
//
// cond is evaluated once more exactly at the deadline, so Poll never returns
// before timeout has elapsed and never sleeps past it.
func Poll(ctx context.Context, clk Clock, interval, timeout time.Duration, cond Condition) (bool, error) {
	if clk == nil {
		clk = SystemClock
	}
	deadline := clk.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil || ok {
			return ok, err
		}
		left := deadline.Sub(clk.Now())
		if left <= 0 {
			return false, nil
		}
		if err := clk.Sleep(ctx, min(interval, left)); err != nil {
			return false, err
		}
	}
}
