// Package aio defines the asynchronous I/O backend contract (§6) and
// a reference in-memory implementation. A real kernel AIO facility is
// explicitly out of scope (§1); this package exists so the
// Backend/Context interface is exercised end-to-end in its own tests.
// The scheduler and channel packages do not import it; the Futures it
// returns are ordinary Futures to them. This is the same "fake the
// external collaborator behind its own interface" treatment pkg/core/concurrency/executor_impl.go gives a
// worker pool.
package aio

import (
	"io"
	"sync"

	"github.com/fluxgraph/fiberflow/internal/xlog"
	"github.com/fluxgraph/fiberflow/pkg/future"
)

// Backend creates Contexts, mirroring the C API's create_context().
type Backend interface {
	CreateContext() (Context, error)
}

// Context issues read/write operations that complete asynchronously,
// each represented as an ordinary Future the scheduler and channel
// cores treat like any other (§6).
type Context interface {
	Read(fd io.ReaderAt, buf []byte, offset int64) *future.Future
	Write(fd io.WriterAt, buf []byte, offset int64) *future.Future
	Close() error
}

// job is one unit of simulated-async work handed to a worker.
type job func()

// InMemoryBackend runs reads/writes on a small fixed worker pool and
// resolves each operation's Future from whichever worker picks up the
// job, modeling "completions delivered by the AIO event source" (§6)
// without a real io_uring/POSIX AIO binding.
type InMemoryBackend struct {
	workers int
	log     xlog.Logger
}

// NewInMemoryBackend creates a Backend backed by workers goroutines
// (at least 1).
func NewInMemoryBackend(workers int) *InMemoryBackend {
	if workers < 1 {
		workers = 1
	}
	return &InMemoryBackend{workers: workers, log: xlog.Nop()}
}

// SetLogger installs a logger for worker diagnostics.
func (b *InMemoryBackend) SetLogger(l xlog.Logger) { b.log = l }

func (b *InMemoryBackend) CreateContext() (Context, error) {
	ctx := &inMemoryContext{
		jobs: make(chan job),
		done: make(chan struct{}),
		log:  b.log,
	}
	for i := 0; i < b.workers; i++ {
		ctx.wg.Add(1)
		go ctx.worker()
	}
	return ctx, nil
}

type inMemoryContext struct {
	jobs chan job
	done chan struct{}
	wg   sync.WaitGroup
	log  xlog.Logger

	closeOnce sync.Once
}

func (c *inMemoryContext) worker() {
	defer c.wg.Done()
	for {
		select {
		case j, ok := <-c.jobs:
			if !ok {
				return
			}
			j()
		case <-c.done:
			return
		}
	}
}

// Read schedules buf to be filled from fd at offset on a worker
// goroutine, resolving the returned Future with the number of bytes
// read, or rejecting with the underlying I/O error. io.EOF is not
// treated as an error: a short read at end of file resolves with the
// bytes read so far.
func (c *inMemoryContext) Read(fd io.ReaderAt, buf []byte, offset int64) *future.Future {
	p := future.NewPromise()
	c.submit(func() {
		n, err := fd.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			p.Reject(err)
			return
		}
		p.Resolve(n)
	})
	return p.Future
}

// Write schedules buf to be written to fd at offset on a worker
// goroutine, resolving the returned Future with the number of bytes
// written.
func (c *inMemoryContext) Write(fd io.WriterAt, buf []byte, offset int64) *future.Future {
	p := future.NewPromise()
	c.submit(func() {
		n, err := fd.WriteAt(buf, offset)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(n)
	})
	return p.Future
}

func (c *inMemoryContext) submit(j job) {
	select {
	case c.jobs <- j:
	case <-c.done:
	}
}

func (c *inMemoryContext) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
	return nil
}
