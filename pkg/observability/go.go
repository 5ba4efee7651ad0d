package observability

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// RepanicDelay is how long Call waits between reporting a panic and
// propagating it.
var RepanicDelay = time.Second

// Call runs fn. A panic in fn is reported and then propagated.
func Call(ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		r := recover()
		if !reportPanic(ctx, r) {
			return
		}
		time.Sleep(RepanicDelay)
		panic(r)
	}()
	fn(ctx)
}

// CallSafe runs fn and only reports a panic, without propagating it.
func CallSafe(ctx context.Context, fn func(ctx context.Context)) (panicked bool) {
	defer func() { panicked = reportPanic(ctx, recover()) }()
	fn(ctx)
	return
}

func Go(ctx context.Context, fn func(ctx context.Context)) {
	go Call(ctx, fn)
}

func GoSafe(ctx context.Context, fn func(ctx context.Context)) {
	go CallSafe(ctx, fn)
}

func reportPanic(ctx context.Context, r any) bool {
	if r == nil {
		return false
	}
	logger.FromCtx(ctx).
		WithField("stack_trace", string(debug.Stack())).
		Errorf("panic: %v", r)
	errmon.ObserveRecoverCtx(ctx, r)
	belt.Flush(ctx)
	return true
}
