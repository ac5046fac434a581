// Package fchan implements the bounded FIFO of futures that hands
// work between producers and consumers (§4.4). It is deliberately not
// a native Go `chan`: a native channel cannot express channel_send's
// contract of handing the caller back a Future that only resolves
// once backpressure clears, so sendq/recvq/queue and the pairing step
// are modeled explicitly behind a mutex, the way
// pkg/core/concurrency/mailbox_impl.go hides its internal channel
// behind Send/Receive/TryReceive rather than exposing chan directly.
package fchan

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fluxgraph/fiberflow/internal/errs"
	"github.com/fluxgraph/fiberflow/pkg/config"
	"github.com/fluxgraph/fiberflow/pkg/future"
	"github.com/fluxgraph/fiberflow/pkg/metrics"
)

// Unbounded is the capacity sentinel for a channel with no
// backpressure limit (§3 "positive integer (unbounded sentinel
// allowed)").
const Unbounded = -1

// item is the unit of transport: the future a producer sent, paired
// with the promise handed back to that producer (§3).
type item struct {
	inner       *future.Future
	sendPromise *future.Promise
}

// Channel is a bounded FIFO pairing sends with receives, with
// capacity backpressure and ordered handoff (§3/§4.4).
type Channel struct {
	id string

	mu         sync.Mutex
	capacity   int
	queue      []*item
	sendq      []*item
	recvq      []*future.Promise
	canSend    bool
	canReceive bool

	m *metrics.Metrics
}

// New creates a Channel with the given capacity (Unbounded for no
// limit, per §3). A capacity of 0 is treated as config's
// DefaultChannelConfig.DefaultCapacity.
func New(capacity int) *Channel {
	if capacity == 0 {
		capacity = config.DefaultChannelConfig().DefaultCapacity
	}
	return &Channel{
		id:         uuid.New().String(),
		capacity:   capacity,
		canSend:    true,
		canReceive: true,
		m:          metrics.Get(),
	}
}

// ID returns the channel's opaque identifier, used to label metrics.
func (c *Channel) ID() string { return c.id }

// CanSend reports whether the send half is still open.
func (c *Channel) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSend
}

// CanReceive reports whether the receive half is still open.
func (c *Channel) CanReceive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canReceive
}

// pairing is a deferred action produced while holding c.mu and run
// only after it is released, per §4.4's "listener invocations and
// promise resolutions are performed after releasing the channel
// lock, to avoid reentrant deadlocks".
type pairing struct {
	chainSrc, chainDst *future.Future
	resolvePromise     *future.Promise
	resolveLen         int
}

// Send allocates an item wrapping inner and returns the send
// promise's Future, which resolves with the post-push queue depth
// once the item is (or becomes) queued, or rejects with
// ErrChannelClosed if the send half is already closed (§4.4 send).
func (c *Channel) Send(inner *future.Future) *future.Future {
	c.mu.Lock()
	if !c.canSend {
		c.mu.Unlock()
		return future.NewRejected(errs.ErrChannelClosed)
	}

	sendPromise := future.NewPromise()
	it := &item{inner: inner, sendPromise: sendPromise}

	resolveNow := -1
	if len(c.sendq) == 0 && (c.capacity < 0 || len(c.queue) < c.capacity) {
		c.queue = append(c.queue, it)
		resolveNow = len(c.queue)
	} else {
		c.sendq = append(c.sendq, it)
	}

	pairs := c.pairLocked()
	c.reportDepthLocked()
	c.mu.Unlock()

	if resolveNow >= 0 {
		sendPromise.Resolve(resolveNow)
	}
	applyPairings(pairs)

	return sendPromise.Future
}

// Receive allocates a receiver promise and returns its Future, which
// resolves with whatever value the paired send's future eventually
// carries, or rejects with ErrChannelClosed if the receive half is
// closed or no further items can ever arrive (§4.4 receive).
func (c *Channel) Receive() *future.Future {
	c.mu.Lock()
	if !c.canReceive {
		c.mu.Unlock()
		return future.NewRejected(errs.ErrChannelClosed)
	}
	if !c.canSend && len(c.queue)+len(c.sendq) <= len(c.recvq) {
		c.mu.Unlock()
		return future.NewRejected(errs.ErrChannelClosed)
	}

	p := future.NewPromise()
	c.recvq = append(c.recvq, p)

	pairs := c.pairLocked()
	c.reportDepthLocked()
	c.mu.Unlock()

	applyPairings(pairs)

	return p.Future
}

// pairLocked runs the pairing step (§4.4): while both queue and recvq
// are non-empty, match the head item with the head receiver, and
// backfill queue from sendq when capacity allows. Must be called with
// c.mu held; returns the chain/resolve actions to perform after
// unlocking.
func (c *Channel) pairLocked() []pairing {
	var pairs []pairing
	for len(c.queue) > 0 && len(c.recvq) > 0 {
		it := c.queue[0]
		c.queue = c.queue[1:]
		p := c.recvq[0]
		c.recvq = c.recvq[1:]

		pairs = append(pairs, pairing{chainSrc: it.inner, chainDst: p.Future})

		if len(c.sendq) > 0 && (c.capacity < 0 || len(c.queue) < c.capacity) {
			moved := c.sendq[0]
			c.sendq = c.sendq[1:]
			c.queue = append(c.queue, moved)
			pairs = append(pairs, pairing{resolvePromise: moved.sendPromise, resolveLen: len(c.queue)})
		}
	}
	return pairs
}

func applyPairings(pairs []pairing) {
	for _, p := range pairs {
		switch {
		case p.chainSrc != nil:
			future.Chain(p.chainSrc, p.chainDst)
		case p.resolvePromise != nil:
			p.resolvePromise.Resolve(p.resolveLen)
		}
	}
}

func (c *Channel) reportDepthLocked() {
	c.m.ChannelQueueDepth.WithLabelValues(c.id).Set(float64(len(c.queue)))
	c.m.ChannelSendQueueDepth.WithLabelValues(c.id).Set(float64(len(c.sendq)))
	c.m.ChannelRecvQueueDepth.WithLabelValues(c.id).Set(float64(len(c.recvq)))
}

// CloseSend clears CanSend and rejects any recvq entries beyond what
// the items already queued or backpressured can ever fulfill (§4.4
// Close).
func (c *Channel) CloseSend() {
	c.mu.Lock()
	c.canSend = false
	fulfillable := len(c.queue) + len(c.sendq)
	var excess []*future.Promise
	if len(c.recvq) > fulfillable {
		excess = append(excess, c.recvq[fulfillable:]...)
		c.recvq = c.recvq[:fulfillable]
	}
	c.reportDepthLocked()
	c.mu.Unlock()

	c.m.ChannelClosedTotal.WithLabelValues("send").Inc()
	for _, p := range excess {
		p.Reject(errs.ErrChannelClosed)
	}
}

// CloseReceive clears CanReceive and drains queue, sendq and recvq,
// rejecting every pending sendq/recvq promise with ErrChannelClosed
// (§4.4 Close). Items already in queue carry no separate promise,
// since their producer was already told the item was accepted, so
// they are simply discarded.
func (c *Channel) CloseReceive() {
	c.mu.Lock()
	c.canReceive = false
	c.canSend = false
	sendq := c.sendq
	recvq := c.recvq
	c.queue = nil
	c.sendq = nil
	c.recvq = nil
	c.reportDepthLocked()
	c.mu.Unlock()

	c.m.ChannelClosedTotal.WithLabelValues("receive").Inc()
	for _, it := range sendq {
		it.sendPromise.Reject(errs.ErrChannelClosed)
	}
	for _, p := range recvq {
		p.Reject(errs.ErrChannelClosed)
	}
}

// Len returns the number of items currently sitting in the channel's
// main queue (not counting backpressured sendq entries).
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Capacity returns the channel's configured capacity (Unbounded for
// no limit).
func (c *Channel) Capacity() int { return c.capacity }
