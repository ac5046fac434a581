// Package fiber implements a user-space coroutine bound to a Future
// result. It mirrors pkg/core/concurrency/mailbox.go's "hide the
// channel behind a small interface" style and pkg/reactor/reactor.go's
// goroutine-per-entity loop, generalized so a Fiber's body can suspend
// at well-defined await points instead of running to completion.
//
// There is no real ucontext/makecontext swap here: Go already manages
// its own goroutine stacks, so §4.2's swap_to is realized as a
// blocking handoff between the fiber's own goroutine and whatever
// goroutine is driving it (normally a scheduler.Scheduler's dispatch
// loop) over a pair of unbuffered channels. Exactly one side runs at a
// time, which is the property swap_to exists to guarantee. See
// DESIGN.md for the full reasoning.
package fiber

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fluxgraph/fiberflow/internal/errs"
	"github.com/fluxgraph/fiberflow/internal/xlog"
	"github.com/fluxgraph/fiberflow/pkg/future"
)

// State is a Fiber's position in its lifecycle (§3).
type State int32

const (
	// Detached is the state of a freshly created Fiber: it owns a
	// Stack and an entry function but has no scheduler affinity yet.
	Detached State = iota
	// Ready means the Fiber is linked into some scheduler's ready
	// queue, waiting to be dispatched.
	Ready
	// Running means the Fiber's goroutine currently holds control.
	Running
	// Waiting means the Fiber is parked on a Future's listener list.
	Waiting
	// Exited is terminal: entry_fn returned or panicked.
	Exited
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Exited:
		return "exited"
	default:
		return "detached"
	}
}

// EntryFunc is the user-supplied body of a Fiber. A nil error and nil
// value is treated as a legitimate resolved result (see DESIGN.md's
// Open Question resolution), not as a rejection.
type EntryFunc func(f *Fiber, data interface{}) (interface{}, error)

// SchedulerHandle is the narrow surface a Fiber needs from whatever
// scheduler owns it. scheduler.Scheduler implements this; defining it
// here (rather than importing the scheduler package) keeps fiber free
// of a dependency cycle, matching the teacher's habit of depending on
// small locally-declared interfaces (pkg/core/concurrency/mailbox.go)
// instead of concrete neighbor packages.
type SchedulerHandle interface {
	// MarkReady moves a Waiting fiber back onto the scheduler's ready
	// queue. Called from arbitrary threads (§5's cross-thread
	// contract), e.g. from a Future listener fired by an AIO
	// completion.
	MarkReady(f *Fiber)
}

// YieldKind tags why a Fiber's goroutine handed control back to
// whatever goroutine called Resume.
type YieldKind int

const (
	YieldWaiting YieldKind = iota
	YieldReady
	YieldExited
)

type yieldSignal struct {
	kind YieldKind
}

// Fiber is a cooperatively scheduled coroutine with its own notional
// Stack and an embedded result Future that terminates when entry_fn
// returns or panics (§3).
type Fiber struct {
	id string
	mu sync.Mutex

	state     State
	stack     Stack
	entryFn   EntryFunc
	entryData interface{}
	result    *future.Future
	scheduler SchedulerHandle

	started   bool
	resumeCh  chan struct{}
	yieldCh   chan yieldSignal

	log xlog.Logger
}

// New allocates a Fiber. The Fiber starts Detached; call
// scheduler.Scheduler.MigrateTo to give it affinity and begin running
// it; that is the only way to start a Fiber (§3 Lifecycle).
func New(entryFn EntryFunc, data interface{}, stackSize uint64) *Fiber {
	return &Fiber{
		id:        uuid.New().String(),
		stack:     NewStack(stackSize),
		entryFn:   entryFn,
		entryData: data,
		result:    future.NewPending(),
		resumeCh:  make(chan struct{}),
		yieldCh:   make(chan yieldSignal),
		log:       xlog.Nop(),
	}
}

// ID returns the Fiber's opaque identifier, useful for logging.
func (f *Fiber) ID() string { return f.id }

// SetLogger installs a logger used for trampoline panic diagnostics.
func (f *Fiber) SetLogger(l xlog.Logger) { f.log = l }

// State returns the Fiber's current lifecycle state.
func (f *Fiber) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stack returns the Fiber's stack accounting record.
func (f *Fiber) Stack() Stack { return f.stack }

// Result is the embedded Future that terminates when entry_fn returns
// or the trampoline converts a panic into a rejection.
func (f *Fiber) Result() *future.Future { return f.result }

// bindScheduler gives the Fiber affinity, refusing to rebind a
// currently Running fiber (§4.3 Migration: "migrating an already
// RUNNING fiber is illegal").
func (f *Fiber) bindScheduler(s SchedulerHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Running {
		return errs.ErrIllegalMigration
	}
	f.scheduler = s
	f.state = Ready
	return nil
}

// BindScheduler is exported for scheduler.Scheduler.MigrateTo, which
// lives in a different package and must be the only caller.
func (f *Fiber) BindScheduler(s SchedulerHandle) error { return f.bindScheduler(s) }

// Resume hands control to the Fiber's goroutine (starting it on the
// first call) and blocks until the Fiber yields back, either because
// it is now Waiting on a Future, it voluntarily yielded, or it
// Exited. The caller, normally a scheduler's dispatch loop, is
// responsible for treating the two sides as mutually exclusive.
func (f *Fiber) Resume() YieldKind {
	f.mu.Lock()
	if !f.started {
		f.started = true
		f.state = Running
		go f.trampoline()
	} else {
		f.state = Running
	}
	f.mu.Unlock()

	f.resumeCh <- struct{}{}
	sig := <-f.yieldCh
	return sig.kind
}

// trampoline is the goroutine body every Fiber runs on. It blocks for
// the first Resume, runs entry_fn, and on return (or panic) completes
// the result Future and performs the final handoff back to whichever
// goroutine is waiting in Resume (§4.2 Exit).
func (f *Fiber) trampoline() {
	<-f.resumeCh

	var (
		value interface{}
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				f.log.Errorf("fiber %s: recovered panic in entry_fn: %v", f.id, r)
				err = errs.New(errs.DomainFiber, "PANIC", fmt.Sprint(r))
			}
		}()
		value, err = f.entryFn(f, f.entryData)
	}()

	f.mu.Lock()
	f.state = Exited
	f.mu.Unlock()

	if err != nil {
		f.result.Reject(err)
	} else {
		f.result.Resolve(value)
	}

	f.yieldCh <- yieldSignal{kind: YieldExited}
}

// Await suspends the calling Fiber until fut becomes terminal,
// returning its value or error (§4.2's "Await inside a fiber"). It
// must be called from inside the Fiber's own entry_fn goroutine.
//
// If fut is already terminal this returns synchronously with no
// yield, matching Future.AddListener's synchronous-invoke-when-
// terminal rule.
func (f *Fiber) Await(fut *future.Future) (interface{}, error) {
	select {
	case <-fut.Done():
		return fut.Value(), fut.Err()
	default:
	}

	fut.AddListener(func(*future.Future) {
		f.mu.Lock()
		sched := f.scheduler
		f.state = Ready
		f.mu.Unlock()
		if sched != nil {
			sched.MarkReady(f)
		}
	})

	f.mu.Lock()
	f.state = Waiting
	f.mu.Unlock()

	f.yieldCh <- yieldSignal{kind: YieldWaiting}
	<-f.resumeCh

	return fut.Value(), fut.Err()
}

// Yield voluntarily hands control back to the driving goroutine
// without blocking on any Future, modeling §4.3 dispatch step 3's
// "READY (yield without blocking)" branch.
func (f *Fiber) Yield() {
	f.mu.Lock()
	f.state = Ready
	f.mu.Unlock()

	f.yieldCh <- yieldSignal{kind: YieldReady}
	<-f.resumeCh
}
