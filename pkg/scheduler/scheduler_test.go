package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fluxgraph/fiberflow/internal/errs"
	"github.com/fluxgraph/fiberflow/pkg/fiber"
	"github.com/fluxgraph/fiberflow/pkg/future"
)

func TestScheduler_DispatchRunsMigratedFiber(t *testing.T) {
	s := New()
	arg := 0
	f := fiber.New(func(_ *fiber.Fiber, _ interface{}) (interface{}, error) {
		arg = 99
		return nil, nil
	}, nil, 0)

	if err := s.MigrateTo(f); err != nil {
		t.Fatalf("MigrateTo: %v", err)
	}

	didWork, err := s.Dispatch()
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !didWork {
		t.Fatal("Dispatch reported no work after a migration")
	}
	if arg != 99 {
		t.Fatalf("arg = %d, want 99", arg)
	}
	if f.Result().Status() != future.Resolved {
		t.Fatalf("Status() = %v, want Resolved (nil return is a success per the Open Question resolution)", f.Result().Status())
	}
}

func TestScheduler_DispatchParksWaitingFiber(t *testing.T) {
	s := New()
	inner := future.NewPending()

	f := fiber.New(func(fib *fiber.Fiber, _ interface{}) (interface{}, error) {
		return fib.Await(inner)
	}, nil, 0)
	_ = s.MigrateTo(f)

	if _, err := s.Dispatch(); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	stats := s.Stats()
	if stats.WaitingLen != 1 || stats.ReadyLen != 0 {
		t.Fatalf("Stats() = %+v, want WaitingLen=1 ReadyLen=0", stats)
	}

	inner.Resolve("value")

	deadline := time.Now().Add(time.Second)
	for s.Stats().ReadyLen == 0 {
		if time.Now().After(deadline) {
			t.Fatal("fiber never returned to the ready queue after its future resolved")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Dispatch(); err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}
	if f.Result().Value() != "value" {
		t.Fatalf("Value() = %v, want value", f.Result().Value())
	}
}

func TestScheduler_DispatchBusyFailsFast(t *testing.T) {
	s := New()
	release := make(chan struct{})
	f := fiber.New(func(fib *fiber.Fiber, _ interface{}) (interface{}, error) {
		fib.Yield()
		<-release
		return nil, nil
	}, nil, 0)
	_ = s.MigrateTo(f)

	go s.Dispatch()

	// Busy-wait for the first Dispatch to actually start so the second
	// call below reliably observes the CAS guard held.
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&s.dispatching) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first Dispatch never became visible as busy")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Dispatch(); err != errs.ErrSchedulerBusy {
		t.Fatalf("second Dispatch err = %v, want ErrSchedulerBusy", err)
	}

	close(release)
}

func TestScheduler_RunStopsOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("Run() err = %v, want DeadlineExceeded", err)
	}
}

func TestScheduler_Push(t *testing.T) {
	s := New()
	fut := s.Push(func() (interface{}, error) { return 5, nil })
	s.Dispatch()

	v, err := fut.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if v != 5 {
		t.Fatalf("v = %v, want 5", v)
	}
}
