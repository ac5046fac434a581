// fiberflow-demo wires a Scheduler, a handful of Fibers, a Channel
// and a Timeout together end to end, in the spirit of
// cmd/example/main.go's "deploy a couple of reactors and watch them
// talk over the bus" shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxgraph/fiberflow/internal/xlog"
	"github.com/fluxgraph/fiberflow/pkg/fchan"
	"github.com/fluxgraph/fiberflow/pkg/fiber"
	"github.com/fluxgraph/fiberflow/pkg/future"
	"github.com/fluxgraph/fiberflow/pkg/scheduler"
	"github.com/fluxgraph/fiberflow/pkg/timeout"
)

func main() {
	log := xlog.New("fiberflow-demo")
	sched := scheduler.New(scheduler.WithLogger(log))

	ch := fchan.New(2)

	// Producer fiber: sends three resolved futures, then closes the
	// send half.
	producer := fiber.New(func(f *fiber.Fiber, _ interface{}) (interface{}, error) {
		for i := 1; i <= 3; i++ {
			sent := ch.Send(future.NewResolved(i))
			depth, err := f.Await(sent)
			if err != nil {
				return nil, err
			}
			log.Infof("producer: item %d accepted at queue depth %v", i, depth)
		}
		ch.CloseSend()
		return "producer done", nil
	}, nil, 0)

	// Consumer fiber: receives until the channel reports closed.
	consumer := fiber.New(func(f *fiber.Fiber, _ interface{}) (interface{}, error) {
		received := 0
		for {
			v, err := f.Await(ch.Receive())
			if err != nil {
				log.Infof("consumer: channel closed after %d items", received)
				return received, nil
			}
			received++
			log.Infof("consumer: received %v", v)
		}
	}, nil, 0)

	// Timeout fiber: awaits a short deadline to show the facade
	// integrating with Fiber.Await like any other Future.
	timer := fiber.New(func(f *fiber.Fiber, _ interface{}) (interface{}, error) {
		to := timeout.NewMsec(50)
		_, err := f.Await(to.Future())
		return nil, err
	}, nil, 0)

	for _, f := range []*fiber.Fiber{producer, consumer, timer} {
		if err := sched.MigrateTo(f); err != nil {
			log.Errorf("migrate: %v", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := sched.Run(ctx); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		log.Errorf("scheduler run: %v", err)
	}

	val, err := timer.Result().Await(context.Background())
	fmt.Printf("timeout fiber result: value=%v err=%v\n", val, err)

	stats := sched.Stats()
	fmt.Printf("scheduler %s stats: ready=%d waiting=%d dispatched=%d\n",
		sched.ID(), stats.ReadyLen, stats.WaitingLen, stats.DispatchedTotal)
}
