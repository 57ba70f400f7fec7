package main

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingWaiter struct {
	workersDone *atomic.Bool
	sawDone     bool
}

func (w *recordingWaiter) Wait() {
	w.sawDone = w.workersDone.Load()
}

func TestDrain_WaitsForWorkersFirst(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	var (
		workers sync.WaitGroup
		done    atomic.Bool
	)

	workers.Add(1)
	go func() {
		defer workers.Done()
		<-ctx.Done()
		// a submission still finishing after cancellation
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
	}()

	svc := &recordingWaiter{workersDone: &done}
	drain(stop, &workers, svc)

	assert.True(t, svc.sawDone, "service waited while a worker was still running")
	assert.Error(t, ctx.Err())
}
