package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnqueueDeliversSettledPath(t *testing.T) {
	done := make(chan struct{})
	ingested := make(chan string, 1)
	enqueue(context.Background(), done, ingested, "/drop/app.log")
	assert.Equal(t, "/drop/app.log", <-ingested)
}

func TestEnqueueReturnsAfterWatchExit(t *testing.T) {
	// A settle timer firing after the watch loop has exited must not leave
	// its goroutine blocked on the unbuffered channel.
	done := make(chan struct{})
	ingested := make(chan string)

	finished := make(chan struct{})
	go func() {
		enqueue(context.Background(), done, ingested, "/drop/late.log")
		close(finished)
	}()

	close(done)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("enqueue still blocked after the watch exited")
	}
}

func TestEnqueueHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ingested := make(chan string)

	finished := make(chan struct{})
	go func() {
		enqueue(ctx, done, ingested, "/drop/late.log")
		close(finished)
	}()

	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("enqueue still blocked after cancellation")
	}
}
