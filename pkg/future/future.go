// Package future implements the eventual-value/error primitive the
// rest of fiberflow is built on: a Future transitions at most once
// from Pending to a terminal state, and every listener registered on
// it runs exactly once, in registration order, after that transition
// is visible.
//
// The design mirrors pkg/fluxor/reactive.go's Future/Promise pair from
// the teacher repository (detach-then-invoke listeners, OnSuccess /
// OnFailure / Then / Catch / Map, an Await that blocks on a channel),
// generalized with an explicit Status enum and a chain() primitive per
// the runtime's future-graph design.
package future

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fluxgraph/fiberflow/internal/errs"
)

// Status is the terminal/non-terminal state of a Future.
type Status int32

const (
	Pending Status = iota
	Resolved
	Rejected
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Listener is invoked exactly once when a Future becomes terminal.
type Listener func(f *Future)

// Future is an entity with a monotone status, a value or error once
// terminal, and an ordered listener list that drains synchronously
// on completion. The zero value is not usable; construct with
// NewPending, NewResolved or NewRejected.
type Future struct {
	id string

	mu        sync.Mutex
	status    Status
	value     interface{}
	err       error
	listeners []Listener
	done      chan struct{}
}

// NewPending returns a Future with no result yet.
func NewPending() *Future {
	return &Future{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}
}

// NewResolved returns a Future that is already terminal with value v.
func NewResolved(v interface{}) *Future {
	f := NewPending()
	f.Resolve(v)
	return f
}

// NewRejected returns a Future that is already terminal with err.
func NewRejected(err error) *Future {
	f := NewPending()
	f.Reject(err)
	return f
}

// ID returns the Future's opaque identifier, useful for logging.
func (f *Future) ID() string { return f.id }

// Status returns the current status under lock.
func (f *Future) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Value returns the resolved value, or nil if pending/rejected.
func (f *Future) Value() interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err returns the rejection error, or nil if pending/resolved.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Resolve attempts the single legal Pending->Resolved transition.
// It is a no-op if the Future is already terminal.
func (f *Future) Resolve(v interface{}) bool {
	return f.complete(v, nil)
}

// Reject attempts the single legal Pending->Rejected transition.
// It is a no-op if the Future is already terminal.
func (f *Future) Reject(err error) bool {
	return f.complete(nil, err)
}

// complete performs the exactly-once transition and drains the
// listener list outside the lock, so a listener that itself completes
// another future (or re-adds a listener) can never deadlock on f.mu.
func (f *Future) complete(v interface{}, err error) bool {
	f.mu.Lock()
	if f.status != Pending {
		f.mu.Unlock()
		return false
	}
	if err != nil {
		f.status = Rejected
		f.err = err
	} else {
		f.status = Resolved
		f.value = v
	}
	listeners := f.listeners
	f.listeners = nil
	f.mu.Unlock()

	close(f.done)
	for _, l := range listeners {
		l(f)
	}
	return true
}

// AddListener invokes cb immediately if the Future is already
// terminal; otherwise it appends cb to the listener list, to be run
// in registration order when the Future completes.
func (f *Future) AddListener(cb Listener) {
	f.mu.Lock()
	if f.status != Pending {
		f.mu.Unlock()
		cb(f)
		return
	}
	f.listeners = append(f.listeners, cb)
	f.mu.Unlock()
}

// OnSuccess registers cb to run with the resolved value. Returns f for
// chaining, matching the teacher's Vert.x-style fluent API.
func (f *Future) OnSuccess(cb func(interface{})) *Future {
	f.AddListener(func(f *Future) {
		if f.status == Resolved {
			cb(f.value)
		}
	})
	return f
}

// OnFailure registers cb to run with the rejection error.
func (f *Future) OnFailure(cb func(error)) *Future {
	f.AddListener(func(f *Future) {
		if f.status == Rejected {
			cb(f.err)
		}
	})
	return f
}

// Await blocks until the Future is terminal or ctx is cancelled.
func (f *Future) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.Value(), f.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done exposes the completion signal for callers (such as fiber.Fiber)
// that need to select on more than just this Future.
func (f *Future) Done() <-chan struct{} { return f.done }

// Chain arranges for dst to be completed with src's outcome once src
// becomes terminal. If src is already terminal this happens
// synchronously. Construction-time cycles (chaining a future to
// itself, directly or transitively) are the caller's responsibility to
// avoid; Chain does not attempt cycle detection.
func Chain(src, dst *Future) {
	src.AddListener(func(s *Future) {
		if s.status == Resolved {
			dst.Resolve(s.value)
		} else {
			dst.Reject(s.err)
		}
	})
}

// Then runs fn with src's value once resolved. If fn returns a
// *Future, the result Future forwards that Future's eventual outcome
// (classic monadic bind); otherwise the returned value completes the
// result Future directly. Rejections propagate without running fn.
func Then(src *Future, fn func(interface{}) (interface{}, error)) *Future {
	out := NewPending()
	src.AddListener(func(s *Future) {
		if s.status == Rejected {
			out.Reject(s.err)
			return
		}
		result, err := fn(s.value)
		if err != nil {
			out.Reject(err)
			return
		}
		if inner, ok := result.(*Future); ok {
			Chain(inner, out)
			return
		}
		out.Resolve(result)
	})
	return out
}

// Catch runs fn with src's rejection error and lets fn recover by
// returning a replacement value. Resolutions propagate without
// running fn.
func Catch(src *Future, fn func(error) (interface{}, error)) *Future {
	out := NewPending()
	src.AddListener(func(s *Future) {
		if s.status == Resolved {
			out.Resolve(s.value)
			return
		}
		result, err := fn(s.err)
		if err != nil {
			out.Reject(err)
			return
		}
		if inner, ok := result.(*Future); ok {
			Chain(inner, out)
			return
		}
		out.Resolve(result)
	})
	return out
}

// Map synchronously transforms a resolved value, matching
// pkg/fluxor/reactive.go's Future.Map.
func Map(src *Future, fn func(interface{}) interface{}) *Future {
	return Then(src, func(v interface{}) (interface{}, error) {
		return fn(v), nil
	})
}

// All resolves with the ordered values of every input Future once all
// have resolved, or rejects as soon as the first rejection is observed
// (fail-fast), matching Promise.all semantics. The rejection is a
// tagged DEPENDENCY_FAILED error carrying that input's error message.
func All(futures []*Future) *Future {
	out := NewPending()
	n := len(futures)
	if n == 0 {
		out.Resolve([]interface{}{})
		return out
	}

	var mu sync.Mutex
	values := make([]interface{}, n)
	remaining := n

	for i, f := range futures {
		i := i
		f.AddListener(func(s *Future) {
			if s.status == Rejected {
				out.Reject(errs.New(errs.DomainFuture, "DEPENDENCY_FAILED", s.err.Error()))
				return
			}
			mu.Lock()
			values[i] = s.value
			remaining--
			done := remaining == 0
			mu.Unlock()
			if done {
				out.Resolve(values)
			}
		})
	}
	return out
}

// Any resolves with the first Future to resolve and swallows
// rejections unless every input rejects, in which case it rejects
// with a tagged DEPENDENCY_FAILED error carrying the message of the
// last rejection observed.
func Any(futures []*Future) *Future {
	out := NewPending()
	n := len(futures)
	if n == 0 {
		out.Reject(errs.New(errs.DomainFuture, "DEPENDENCY_FAILED", "future.Any called with no futures"))
		return out
	}

	var mu sync.Mutex
	remaining := n
	var lastErr error

	for _, f := range futures {
		f.AddListener(func(s *Future) {
			if s.status == Resolved {
				out.Resolve(s.value)
				return
			}
			mu.Lock()
			lastErr = s.err
			remaining--
			done := remaining == 0
			mu.Unlock()
			if done {
				out.Reject(errs.New(errs.DomainFuture, "DEPENDENCY_FAILED", lastErr.Error()))
			}
		})
	}
	return out
}

// First resolves or rejects with whichever input Future settles
// first; later settlements are discarded because Resolve/Reject on an
// already-terminal Future is a no-op.
func First(futures []*Future) *Future {
	out := NewPending()
	for _, f := range futures {
		Chain(f, out)
	}
	return out
}

// AllRace has the same observable settlement contract as First: the
// fastest input wins and stragglers are discarded by the idempotent
// completion rule. It is kept as a distinct name because §6's external
// API lists future_first and future_all_race separately; it simply
// calls First.
func AllRace(futures []*Future) *Future {
	return First(futures)
}
