// Package scheduler implements the runnable/waiting queues and the
// context-switch driver that move Fibers from ready to running to
// waiting and back, exposed as an event-loop source with
// prepare/check/dispatch hooks (§4.3).
//
// The C original's recursive mutex is split into two locks here,
// matching §9's own suggested fallback ("model the same invariant
// with a thread-local 'I own this scheduler' flag") plus a second,
// genuinely reentrant-safe lock for the queues themselves:
//
//   - dispatching is a non-reentrant guard around Dispatch() itself:
//     only one goroutine may be draining a given Scheduler's ready
//     queue at a time, and a second caller fails fast with
//     ErrSchedulerBusy, mirroring §4.3's "fail-fast if any other
//     thread holds it".
//   - queueMu protects ready/waiting/current and is held only for the
//     duration of a slice/map mutation, never across a Fiber.Resume or
//     a listener invocation, so MarkReady/MigrateTo calls arriving
//     from a Future listener fired on a completely different thread
//     (§5's cross-thread contract) never have to re-enter a lock the
//     dispatch loop is still holding.
//
// Grounded on pkg/reactor/reactor.go's goroutine-loop-plus-mailbox
// shape and pkg/core/concurrency/executor's worker-loop bookkeeping.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fluxgraph/fiberflow/internal/errs"
	"github.com/fluxgraph/fiberflow/internal/xlog"
	"github.com/fluxgraph/fiberflow/pkg/config"
	"github.com/fluxgraph/fiberflow/pkg/fiber"
	"github.com/fluxgraph/fiberflow/pkg/future"
	"github.com/fluxgraph/fiberflow/pkg/metrics"
)

// Stats is a point-in-time snapshot of a Scheduler's queues, the Go
// analogue of the teacher's concurrency.ExecutorStats.
type Stats struct {
	ReadyLen       int
	WaitingLen     int
	DispatchedTotal uint64
}

// Scheduler drives a set of Fibers from a single owner goroutine at a
// time (§4.3). Multiple Schedulers may coexist on different
// goroutines; a Fiber belongs to exactly one Scheduler.
type Scheduler struct {
	id string

	queueMu sync.Mutex
	ready   []*fiber.Fiber
	waiting map[*fiber.Fiber]struct{}
	current *fiber.Fiber

	dispatching int32 // CAS guard, 0=free 1=held

	wakeCh chan struct{} // buffered(1) "dirty" flag for event-loop integration

	dispatchedTotal uint64

	cfg config.SchedulerConfig
	log xlog.Logger
	m   *metrics.Metrics
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithConfig overrides the scheduler's tunables (dispatch budget,
// default stack size) from config.SchedulerConfig.
func WithConfig(cfg config.SchedulerConfig) Option {
	return func(s *Scheduler) { s.cfg = cfg }
}

// WithLogger installs a logger, matching the teacher's convention of
// an optional logger Option on long-lived components.
func WithLogger(l xlog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMetrics points the Scheduler at a non-default Metrics
// collection, used by tests to avoid colliding with the global
// registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.m = m }
}

// New constructs a Scheduler with an empty ready/waiting set.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		id:      uuid.New().String(),
		waiting: make(map[*fiber.Fiber]struct{}),
		wakeCh:  make(chan struct{}, 1),
		cfg:     config.DefaultSchedulerConfig(),
		log:     xlog.Nop(),
		m:       metrics.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the Scheduler's opaque identifier, used to label
// metrics and log lines.
func (s *Scheduler) ID() string { return s.id }

// NewFiber constructs a Fiber sized from this Scheduler's configured
// default stack size, the Go analogue of fiber_new's "allocates a
// stack (default if 0)" falling back to whatever the owning
// scheduler was tuned with rather than the package-wide default.
func (s *Scheduler) NewFiber(entryFn fiber.EntryFunc, data interface{}) *fiber.Fiber {
	return fiber.New(entryFn, data, s.cfg.DefaultStackSize)
}

// MigrateTo transfers a Fiber's affinity to s and places it in s's
// ready queue. This is the only legal way to start an unstarted
// Fiber (§4.3 Migration). Migrating an already-Running fiber fails
// with errs.ErrIllegalMigration.
func (s *Scheduler) MigrateTo(f *fiber.Fiber) error {
	if err := f.BindScheduler(s); err != nil {
		return err
	}
	s.enqueueReady(f)
	return nil
}

// MarkReady implements fiber.SchedulerHandle: it moves a Waiting
// fiber back onto the ready queue, called from whatever goroutine
// observed the Future f was blocked on complete, possibly a
// different thread than the one driving Dispatch (§5).
func (s *Scheduler) MarkReady(f *fiber.Fiber) {
	s.enqueueReady(f)
}

func (s *Scheduler) enqueueReady(f *fiber.Fiber) {
	s.queueMu.Lock()
	delete(s.waiting, f)
	s.ready = append(s.ready, f)
	s.queueMu.Unlock()
	s.Wake()
}

// Push wraps an arbitrary closure in a throwaway Fiber and migrates
// it to s, the Go analogue of scheduler_push for code that wants to
// run on the scheduler's single-active-fiber discipline without
// hand-rolling a Fiber.
func (s *Scheduler) Push(fn func() (interface{}, error)) *future.Future {
	f := fiber.New(func(*fiber.Fiber, interface{}) (interface{}, error) {
		return fn()
	}, nil, 0)
	if err := s.MigrateTo(f); err != nil {
		// A freshly created Fiber is always Detached, so MigrateTo can
		// only fail here if that invariant is ever violated elsewhere;
		// surface it as a rejected Future instead of discarding it.
		return future.NewRejected(err)
	}
	return f.Result()
}

// Dispatch drains the ready queue: pop the head fiber, resume it,
// react to how it yielded, repeat until the queue is empty or the
// configured dispatch budget is exceeded (§4.3 steps 1-5). It returns
// ErrSchedulerBusy if another goroutine is already dispatching this
// Scheduler, and (false, nil) if there was nothing to do.
func (s *Scheduler) Dispatch() (bool, error) {
	if !atomic.CompareAndSwapInt32(&s.dispatching, 0, 1) {
		return false, errs.ErrSchedulerBusy
	}
	defer atomic.StoreInt32(&s.dispatching, 0)

	start := time.Now()
	defer func() {
		s.m.SchedulerDispatchDuration.WithLabelValues(s.id).Observe(time.Since(start).Seconds())
	}()

	budget := s.cfg.DispatchBudget
	if budget <= 0 {
		budget = config.DefaultSchedulerConfig().DispatchBudget
	}

	didWork := false
	for i := 0; budget <= 0 || i < budget; i++ {
		s.queueMu.Lock()
		if len(s.ready) == 0 {
			s.queueMu.Unlock()
			break
		}
		f := s.ready[0]
		s.ready = s.ready[1:]
		s.current = f
		s.queueMu.Unlock()

		didWork = true
		atomic.AddUint64(&s.dispatchedTotal, 1)
		s.m.SchedulerDispatchedTotal.WithLabelValues(s.id).Inc()

		kind := f.Resume()

		s.queueMu.Lock()
		s.current = nil
		switch kind {
		case fiber.YieldExited:
			delete(s.waiting, f)
			outcome := "resolved"
			if f.Result().Status() == future.Rejected {
				outcome = "rejected"
			}
			s.m.FiberExitsTotal.WithLabelValues(s.id, outcome).Inc()
		case fiber.YieldWaiting:
			// A listener on another thread may already have fired and
			// called MarkReady between f.Resume() returning and this
			// lock being taken (§5's cross-thread contract); in that
			// case f is already back on s.ready and must not also be
			// recorded as waiting.
			if f.State() == fiber.Waiting {
				s.waiting[f] = struct{}{}
			}
		case fiber.YieldReady:
			s.ready = append(s.ready, f)
		}
		readyLen, waitingLen := len(s.ready), len(s.waiting)
		s.queueMu.Unlock()

		s.m.SchedulerReadyDepth.WithLabelValues(s.id).Set(float64(readyLen))
		s.m.SchedulerWaitingDepth.WithLabelValues(s.id).Set(float64(waitingLen))
	}
	return didWork, nil
}

// Prepare reports whether Dispatch has work to do right now, the
// event-loop source's "prepare" hook (§4.3).
func (s *Scheduler) Prepare() bool {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return len(s.ready) > 0
}

// Check is the event-loop source's "check" hook. For this Scheduler
// it is identical to Prepare: readiness never depends on external
// poll results, only on the ready queue's length.
func (s *Scheduler) Check() bool { return s.Prepare() }

// Wake marks the event-loop source dirty without blocking, so a
// Fiber or MarkReady call from another thread can nudge a host loop
// parked on WakeCh.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// WakeCh exposes the wake signal for a host event loop's select.
func (s *Scheduler) WakeCh() <-chan struct{} { return s.wakeCh }

// Stats returns a snapshot of the scheduler's queues.
func (s *Scheduler) Stats() Stats {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return Stats{
		ReadyLen:        len(s.ready),
		WaitingLen:      len(s.waiting),
		DispatchedTotal: atomic.LoadUint64(&s.dispatchedTotal),
	}
}

// Run drives the scheduler as its own event loop until ctx is
// cancelled, dispatching whenever Prepare reports work or WakeCh
// fires. It exists for the CLI demo and for tests that don't want to
// hand-roll a poll loop; a real host event loop would instead call
// Dispatch directly from its own prepare/check/dispatch hooks.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if s.Prepare() {
			if _, err := s.Dispatch(); err != nil && err != errs.ErrSchedulerBusy {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wakeCh:
		}
	}
}

var (
	defaultMu sync.Mutex
	defaultSched *Scheduler
)

// GetDefault returns a process-wide default Scheduler, constructing
// one on first use. The C API distinguishes a thread-default from a
// process-wide default (scheduler_get_thread_default vs
// scheduler_get_default); Go goroutines have no stable thread
// identity to key a thread-local off of, so this package only offers
// the process-wide flavor; see DESIGN.md.
func GetDefault() *Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSched == nil {
		defaultSched = New()
	}
	return defaultSched
}

// SetDefault overrides the process-wide default Scheduler, mainly for
// tests that want a clean one.
func SetDefault(s *Scheduler) {
	defaultMu.Lock()
	defaultSched = s
	defaultMu.Unlock()
}
