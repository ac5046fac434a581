// Package timeout adapts a wall/monotonic clock source to Future,
// the collaborator facade §4.5 describes. It is a thin wrapper over
// time.AfterFunc rather than a hand-rolled timer wheel, since a real
// kernel clock source is explicitly out of scope (§1), the same
// "facade, not a subsystem" treatment the teacher gives its own
// external collaborators (e.g. pkg/core/concurrency/executor_impl.go
// wraps a worker pool behind a narrow Execute/Stats surface without
// reimplementing the runtime scheduler).
package timeout

import (
	"sync"
	"time"

	"github.com/fluxgraph/fiberflow/internal/errs"
	"github.com/fluxgraph/fiberflow/pkg/future"
)

// Clock abstracts wall-clock access so tests can fake time instead of
// sleeping. The package constructors use realClock; the zero value of
// Timeout has no clock and is not usable.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Canceller
}

// Canceller is whatever AfterFunc returns; time.Timer satisfies it.
type Canceller interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Canceller {
	return time.AfterFunc(d, f)
}

// Timeout is a Future that rejects with errs.ErrTimedOut when its
// deadline elapses (§4.5).
type Timeout struct {
	mu       sync.Mutex
	fut      *future.Future
	deadline time.Time
	timer    Canceller
	clock    Clock
}

func newTimeout(d time.Duration, clock Clock) *Timeout {
	if clock == nil {
		clock = realClock{}
	}
	t := &Timeout{
		fut:      future.NewPending(),
		deadline: clock.Now().Add(d),
		clock:    clock,
	}
	t.arm(d)
	return t
}

func (t *Timeout) arm(d time.Duration) {
	t.timer = t.clock.AfterFunc(d, func() {
		t.fut.Reject(errs.ErrTimedOut)
	})
}

// NewDeadline returns a Timeout that rejects once the clock reaches
// deadline.
func NewDeadline(deadline time.Time) *Timeout {
	return newDeadlineWithClock(deadline, realClock{})
}

func newDeadlineWithClock(deadline time.Time, clock Clock) *Timeout {
	d := deadline.Sub(clock.Now())
	if d < 0 {
		d = 0
	}
	t := &Timeout{
		fut:      future.NewPending(),
		deadline: deadline,
		clock:    clock,
	}
	t.arm(d)
	return t
}

// NewMsec returns a Timeout that fires n milliseconds from now.
func NewMsec(n int64) *Timeout { return newTimeout(time.Duration(n)*time.Millisecond, nil) }

// NewSeconds returns a Timeout that fires n seconds from now.
func NewSeconds(n int64) *Timeout { return newTimeout(time.Duration(n)*time.Second, nil) }

// NewUsec returns a Timeout that fires n microseconds from now.
func NewUsec(n int64) *Timeout { return newTimeout(time.Duration(n)*time.Microsecond, nil) }

// Future returns the underlying Future user code awaits.
func (t *Timeout) Future() *future.Future { return t.fut }

// PostponeUntil re-arms a still-pending Timeout to fire at
// newDeadline. Re-arming a terminal Timeout is a no-op (§4.5).
func (t *Timeout) PostponeUntil(newDeadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fut.Status() != future.Pending {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.deadline = newDeadline
	d := newDeadline.Sub(t.clock.Now())
	if d < 0 {
		d = 0
	}
	t.arm(d)
}

// Deadline returns the Timeout's currently armed deadline.
func (t *Timeout) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}
