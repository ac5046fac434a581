package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll drives every Scheduler in scheds concurrently, one goroutine
// each, until ctx is cancelled or any of them returns a non-context
// error, in which case the others are cancelled too. This is the
// multi-scheduler analogue of a single Scheduler.Run, grounded on
// errgroup's standard fan-out/fan-in shutdown pattern rather than a
// hand-rolled sync.WaitGroup plus error-channel.
func RunAll(ctx context.Context, scheds ...*Scheduler) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range scheds {
		s := s
		g.Go(func() error {
			err := s.Run(gctx)
			if err == context.Canceled || err == context.DeadlineExceeded {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
