package aio

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"
)

func TestInMemoryBackend_ReadWrite(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "aio-test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	backend := NewInMemoryBackend(2)
	ctx, err := backend.CreateContext()
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	defer ctx.Close()

	payload := []byte("hello fiberflow")
	wfut := ctx.Write(f, payload, 0)

	awaitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := wfut.Await(awaitCtx)
	if err != nil {
		t.Fatalf("write await: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("wrote %v bytes, want %d", n, len(payload))
	}

	buf := make([]byte, len(payload))
	rfut := ctx.Read(f, buf, 0)
	n, err = rfut.Await(awaitCtx)
	if err != nil {
		t.Fatalf("read await: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("read %v bytes, want %d", n, len(payload))
	}
	if !bytes.Equal(buf, payload) {
		t.Fatalf("read %q, want %q", buf, payload)
	}
}

func TestInMemoryBackend_ReadAtEOFResolvesZero(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "aio-test-empty")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	backend := NewInMemoryBackend(1)
	ctx, _ := backend.CreateContext()
	defer ctx.Close()

	buf := make([]byte, 16)
	rfut := ctx.Read(f, buf, 0)

	awaitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := rfut.Await(awaitCtx)
	if err != nil {
		t.Fatalf("read from empty file should resolve with 0, not reject: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %v, want 0", n)
	}
}
