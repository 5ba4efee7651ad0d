// Package dispatcher implements the control loop: a FIFO queue of tasks
// executed one by one by a single goroutine.
//
// Engine callbacks arrive on arbitrary threads and must never wait for the
// consumer, so they only Post. Everything that changes consumer-visible state
// runs inside the loop, thus it needs no locking of its own.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/xsync"
)

type Task func(ctx context.Context)

type Dispatcher struct {
	locker  xsync.Mutex
	queue   []Task
	wakeCh  chan struct{}
	closed  bool
	started atomic.Bool
	doneCh  chan struct{}

	id uint64
}

var dispatcherCount atomic.Uint64

func New() *Dispatcher {
	return &Dispatcher{
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		id:     dispatcherCount.Add(1),
	}
}

type ctxKeyLoop struct{}

// IsInLoop reports whether ctx was handed out by the loop of d.
func (d *Dispatcher) IsInLoop(ctx context.Context) bool {
	id, _ := ctx.Value(ctxKeyLoop{}).(uint64)
	return id == d.id
}

// Start launches the loop. The loop ends when ctx is cancelled or Close is
// called; queued tasks are executed before exiting on Close.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("the dispatcher is already started")
	}
	loopCtx := context.WithValue(ctx, ctxKeyLoop{}, d.id)
	observability.Go(loopCtx, d.loop)
	return nil
}

func (d *Dispatcher) loop(ctx context.Context) {
	logger.Debugf(ctx, "dispatcher loop started")
	defer logger.Debugf(ctx, "dispatcher loop ended")
	defer close(d.doneCh)
	noLogCtx := xsync.WithNoLogging(ctx, true)
	for {
		tasks, closed := xsync.DoR2(noLogCtx, &d.locker, func() ([]Task, bool) {
			tasks := d.queue
			d.queue = nil
			return tasks, d.closed
		})
		for _, task := range tasks {
			task(ctx)
		}
		if closed && len(tasks) == 0 {
			return
		}
		if len(tasks) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-d.wakeCh:
		}
	}
}

// Post enqueues a task. It never waits for the loop. Returns false if the
// dispatcher is closed.
func (d *Dispatcher) Post(ctx context.Context, task Task) bool {
	ok := xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() bool {
		if d.closed {
			return false
		}
		d.queue = append(d.queue, task)
		return true
	})
	if !ok {
		logger.Tracef(ctx, "the dispatcher is closed, dropping a task")
		return false
	}
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// Do executes fn on the loop and waits for it. If ctx already belongs to the
// loop, fn is executed in place.
func (d *Dispatcher) Do(ctx context.Context, fn Task) error {
	if d.IsInLoop(ctx) {
		fn(ctx)
		return nil
	}

	doneCh := make(chan struct{})
	if !d.Post(ctx, func(ctx context.Context) {
		defer close(doneCh)
		fn(ctx)
	}) {
		return fmt.Errorf("the dispatcher is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.doneCh:
		select {
		case <-doneCh:
			return nil
		default:
			return fmt.Errorf("the dispatcher loop ended before the task was executed")
		}
	case <-doneCh:
		return nil
	}
}

// DoR1 is Do for functions returning a value.
func DoR1[R0 any](ctx context.Context, d *Dispatcher, fn func(ctx context.Context) R0) (R0, error) {
	var r0 R0
	err := d.Do(ctx, func(ctx context.Context) {
		r0 = fn(ctx)
	})
	return r0, err
}

// Close stops accepting tasks; already queued tasks are still executed.
func (d *Dispatcher) Close(ctx context.Context) {
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		d.closed = true
	})
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// Wait blocks until the loop exits.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if !d.started.Load() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.doneCh:
		return nil
	}
}
