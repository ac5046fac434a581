package timeout

import (
	"context"
	"testing"
	"time"

	"github.com/fluxgraph/fiberflow/internal/errs"
)

func TestTimeout_RejectsWithinTolerance(t *testing.T) {
	to := NewMsec(10)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := to.Future().Await(ctx)
	elapsed := time.Since(start)

	if err != errs.ErrTimedOut {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if elapsed > 150*time.Millisecond {
		t.Fatalf("timeout fired after %v, want well under 150ms", elapsed)
	}
}

func TestTimeout_PostponeUntilRearmsPending(t *testing.T) {
	to := NewMsec(10)
	to.PostponeUntil(time.Now().Add(100 * time.Millisecond))

	select {
	case <-to.Future().Done():
		t.Fatal("timeout fired before its postponed deadline")
	case <-time.After(30 * time.Millisecond):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := to.Future().Await(ctx); err != errs.ErrTimedOut {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
}

func TestTimeout_PostponeOnTerminalIsNoOp(t *testing.T) {
	to := NewMsec(5)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := to.Future().Await(ctx); err != errs.ErrTimedOut {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}

	deadlineBefore := to.Deadline()
	to.PostponeUntil(time.Now().Add(time.Hour))
	if !to.Deadline().Equal(deadlineBefore) {
		t.Fatal("PostponeUntil mutated the deadline of an already-terminal Timeout")
	}
}

func TestTimeout_NewDeadline(t *testing.T) {
	to := NewDeadline(time.Now().Add(10 * time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := to.Future().Await(ctx); err != errs.ErrTimedOut {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
}
