package clock

import (
	"context"

	"github.com/benbjohnson/clock"
)

type Clock = clock.Clock
type Ticker = clock.Ticker
type Timer = clock.Timer
type Mock = clock.Mock

var globalClock Clock = clock.New()

func Get() Clock {
	return globalClock
}

func Set(clk Clock) {
	globalClock = clk
}

type ctxKeyClock struct{}

// CtxWithClock overrides the clock used by everything that receives ctx.
func CtxWithClock(ctx context.Context, clk Clock) context.Context {
	return context.WithValue(ctx, ctxKeyClock{}, clk)
}

// FromCtx returns the clock stored by CtxWithClock, or the global one.
func FromCtx(ctx context.Context) Clock {
	if clk, ok := ctx.Value(ctxKeyClock{}).(Clock); ok && clk != nil {
		return clk
	}
	return Get()
}

func New() Clock {
	return clock.New()
}

func NewMock() *Mock {
	return clock.NewMock()
}
