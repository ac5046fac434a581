package fchan

import (
	"context"
	"testing"
	"time"

	"github.com/fluxgraph/fiberflow/internal/errs"
	"github.com/fluxgraph/fiberflow/pkg/future"
)

func await(t *testing.T, f *future.Future) (interface{}, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return f.Await(ctx)
}

func TestChannel_FIFO(t *testing.T) {
	ch := New(2)

	f1 := future.NewPending()
	f2 := future.NewPending()
	f3 := future.NewPending()

	ch.Send(f1)
	ch.Send(f2)
	ch.Send(f3)

	f1.Resolve("a")
	f2.Resolve("b")
	f3.Resolve("c")

	r1, err := await(t, ch.Receive())
	if err != nil || r1 != "a" {
		t.Fatalf("receive 1 = %v, %v, want a, nil", r1, err)
	}
	r2, err := await(t, ch.Receive())
	if err != nil || r2 != "b" {
		t.Fatalf("receive 2 = %v, %v, want b, nil", r2, err)
	}
	r3, err := await(t, ch.Receive())
	if err != nil || r3 != "c" {
		t.Fatalf("receive 3 = %v, %v, want c, nil", r3, err)
	}

	fourth := ch.Receive()
	select {
	case <-fourth.Done():
		t.Fatal("fourth receive settled before close_send, want still pending")
	case <-time.After(20 * time.Millisecond):
	}

	ch.CloseSend()

	_, err = await(t, fourth)
	if err != errs.ErrChannelClosed {
		t.Fatalf("fourth receive err = %v, want ErrChannelClosed", err)
	}
}

func TestChannel_Backpressure(t *testing.T) {
	ch := New(1)

	send1 := ch.Send(future.NewResolved("x"))
	v1, err := await(t, send1)
	if err != nil {
		t.Fatalf("send1: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("send1 queue depth = %v, want 1", v1)
	}

	send2 := ch.Send(future.NewResolved("y"))
	select {
	case <-send2.Done():
		t.Fatal("send2 settled before any receive freed capacity")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := await(t, ch.Receive()); err != nil {
		t.Fatalf("receive: %v", err)
	}

	v2, err := await(t, send2)
	if err != nil {
		t.Fatalf("send2 after receive: %v", err)
	}
	if v2 != 1 {
		t.Fatalf("send2 queue depth = %v, want 1", v2)
	}
}

func TestChannel_SendOnClosedSendRejects(t *testing.T) {
	ch := New(1)
	ch.CloseSend()

	_, err := await(t, ch.Send(future.NewResolved(1)))
	if err != errs.ErrChannelClosed {
		t.Fatalf("err = %v, want ErrChannelClosed", err)
	}
}

func TestChannel_ReceiveOnClosedReceiveRejects(t *testing.T) {
	ch := New(1)
	ch.CloseReceive()

	_, err := await(t, ch.Receive())
	if err != errs.ErrChannelClosed {
		t.Fatalf("err = %v, want ErrChannelClosed", err)
	}
}

func TestChannel_CloseReceiveDrainsSendq(t *testing.T) {
	ch := New(1)
	ch.Send(future.NewResolved("a")) // fills queue
	send2 := ch.Send(future.NewResolved("b")) // parked in sendq

	ch.CloseReceive()

	_, err := await(t, send2)
	if err != errs.ErrChannelClosed {
		t.Fatalf("send2 err = %v, want ErrChannelClosed", err)
	}
	if ch.CanSend() || ch.CanReceive() {
		t.Fatal("channel should report both halves closed")
	}
}

func TestChannel_CloseSendRejectsExcessReceivers(t *testing.T) {
	ch := New(4)

	r1 := ch.Receive()
	r2 := ch.Receive()

	ch.Send(future.NewResolved("only one item"))
	ch.CloseSend()

	v1, err := await(t, r1)
	if err != nil || v1 != "only one item" {
		t.Fatalf("r1 = %v, %v, want only one item, nil", v1, err)
	}
	if _, err := await(t, r2); err != errs.ErrChannelClosed {
		t.Fatalf("r2 err = %v, want ErrChannelClosed", err)
	}
}

func TestChannel_Unbounded(t *testing.T) {
	ch := New(Unbounded)
	for i := 0; i < 100; i++ {
		send := ch.Send(future.NewResolved(i))
		if _, err := await(t, send); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if ch.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", ch.Len())
	}
}
