// Package metrics exposes the Prometheus collectors every fiberflow
// runtime component reports through, grounded on
// pkg/observability/prometheus/metrics.go's pattern: a package-level
// registry wrapped with a service label, promauto-registered
// collectors grouped on a Metrics struct, and a sync.Once-guarded
// global accessor alongside an explicit constructor for tests that
// want an isolated registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the registry fiberflow-demo and tests that
	// don't care about isolation register against.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer wraps DefaultRegistry with a "service" label,
	// matching the teacher's DefaultRegisterer.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "fiberflow"}, DefaultRegistry)

	once    sync.Once
	metrics *Metrics
)

// Metrics holds every collector the scheduler, fiber and channel
// packages report through.
type Metrics struct {
	SchedulerReadyDepth       *prometheus.GaugeVec
	SchedulerWaitingDepth     *prometheus.GaugeVec
	SchedulerDispatchDuration *prometheus.HistogramVec
	SchedulerDispatchedTotal  *prometheus.CounterVec

	FiberExitsTotal *prometheus.CounterVec

	ChannelQueueDepth     *prometheus.GaugeVec
	ChannelSendQueueDepth *prometheus.GaugeVec
	ChannelRecvQueueDepth *prometheus.GaugeVec
	ChannelClosedTotal    *prometheus.CounterVec
}

// Get returns the process-wide Metrics instance, constructing it
// against DefaultRegisterer on first use.
func Get() *Metrics {
	once.Do(func() {
		metrics = New(DefaultRegisterer)
	})
	return metrics
}

// New builds a fresh Metrics collection against registerer, useful in
// tests that want collectors unregistered from the global registry.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		SchedulerReadyDepth: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fiberflow_scheduler_ready_depth",
				Help: "Number of fibers currently in a scheduler's ready queue",
			},
			[]string{"scheduler_id"},
		),
		SchedulerWaitingDepth: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fiberflow_scheduler_waiting_depth",
				Help: "Number of fibers currently parked in a scheduler's waiting set",
			},
			[]string{"scheduler_id"},
		),
		SchedulerDispatchDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fiberflow_scheduler_dispatch_duration_seconds",
				Help:    "Wall-clock time spent inside one Dispatch() drain",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scheduler_id"},
		),
		SchedulerDispatchedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberflow_scheduler_fibers_dispatched_total",
				Help: "Total number of fiber resumes performed by a scheduler",
			},
			[]string{"scheduler_id"},
		),
		FiberExitsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberflow_fiber_exits_total",
				Help: "Total number of fibers that reached the Exited state, by outcome",
			},
			[]string{"scheduler_id", "outcome"}, // outcome: resolved, rejected
		),
		ChannelQueueDepth: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fiberflow_channel_queue_depth",
				Help: "Number of in-flight items currently queued in a channel",
			},
			[]string{"channel_id"},
		),
		ChannelSendQueueDepth: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fiberflow_channel_sendq_depth",
				Help: "Number of producers parked on a channel by backpressure",
			},
			[]string{"channel_id"},
		),
		ChannelRecvQueueDepth: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fiberflow_channel_recvq_depth",
				Help: "Number of receivers parked on a channel awaiting an item",
			},
			[]string{"channel_id"},
		),
		ChannelClosedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberflow_channel_closed_total",
				Help: "Total number of channel close operations, by half closed",
			},
			[]string{"half"}, // half: send, receive
		),
	}
}
