// Package seekcoalescer debounces bursts of seek requests (e.g. dragging a
// seek bar) into at most one engine seek per period, and keeps periodic
// position updates silent while a burst is being absorbed.
package seekcoalescer

import (
	"context"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/clock"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/player/dispatcher"
)

const DefaultPeriod = time.Second

type Poster interface {
	Post(ctx context.Context, task dispatcher.Task) bool
}

// SeekFunc applies a seek to the engine.
type SeekFunc func(ctx context.Context, target time.Duration) error

// Coalescer lives on the control loop: RequestSeek must be called from the
// loop, and timer ticks are posted onto it.
type Coalescer struct {
	poster Poster
	seek   SeekFunc
	period time.Duration

	pending       time.Duration
	hasPending    bool
	lastApplied   time.Duration
	tickConnected bool
	timerActive   bool
	generation    uint64
	stopTimer     context.CancelFunc

	// leadingApplied is set while the last applied seek is the immediate
	// one of the burst and no timer tick happened since.
	leadingApplied bool

	seeksApplied uint64
}

func New(
	poster Poster,
	seek SeekFunc,
) *Coalescer {
	return &Coalescer{
		poster:        poster,
		seek:          seek,
		period:        DefaultPeriod,
		tickConnected: true,
	}
}

// RequestSeek records target as the only pending seek and disconnects the
// tick signal. The first request of a burst is applied immediately.
func (c *Coalescer) RequestSeek(ctx context.Context, target time.Duration) {
	logger.Debugf(ctx, "RequestSeek(ctx, %v)", target)
	c.pending, c.hasPending = target, true
	c.disconnectTick(ctx)

	if c.timerActive {
		return
	}
	c.startTimer(ctx)
	c.applyPending(ctx)
	c.leadingApplied = true
}

// IsTickConnected reports whether periodic position updates may be
// forwarded to the consumer.
func (c *Coalescer) IsTickConnected() bool {
	return c.tickConnected
}

// ForwardTick calls fn only if the tick signal is connected.
func (c *Coalescer) ForwardTick(ctx context.Context, fn func(ctx context.Context)) bool {
	if !c.tickConnected {
		logger.Tracef(ctx, "the tick signal is disconnected, not forwarding")
		return false
	}
	fn(ctx)
	return true
}

func (c *Coalescer) IsTimerActive() bool {
	return c.timerActive
}

func (c *Coalescer) HasPending() bool {
	return c.hasPending
}

// SeeksApplied returns the amount of seeks sent to the engine.
func (c *Coalescer) SeeksApplied() uint64 {
	return c.seeksApplied
}

func (c *Coalescer) onTimer(ctx context.Context, generation uint64) {
	if !c.timerActive || generation != c.generation {
		logger.Tracef(ctx, "stale seek timer tick: %d != %d", generation, c.generation)
		return
	}

	if c.hasPending && c.leadingApplied && c.pending == c.lastApplied {
		logger.Debugf(ctx, "dropping a repeated seek to %v", c.pending)
		c.hasPending = false
	}
	c.leadingApplied = false

	if !c.hasPending {
		c.endBurst(ctx)
		return
	}

	c.applyPending(ctx)
	c.connectTick(ctx)
	// the timer keeps running to catch seeks requested during this one
}

func (c *Coalescer) applyPending(ctx context.Context) {
	target := c.pending
	c.hasPending = false
	c.lastApplied = target
	c.seeksApplied++

	logger.Debugf(ctx, "real seek: %v", target)
	if err := c.seek(ctx, target); err != nil {
		logger.Warnf(ctx, "unable to seek to %v: %v", target, err)
	}
}

func (c *Coalescer) endBurst(ctx context.Context) {
	logger.Debugf(ctx, "seek burst is over")
	c.stopTimerIfActive()
	c.connectTick(ctx)
}

func (c *Coalescer) disconnectTick(ctx context.Context) {
	if !c.tickConnected {
		return
	}
	logger.Tracef(ctx, "disconnecting the tick signal")
	c.tickConnected = false
}

func (c *Coalescer) connectTick(ctx context.Context) {
	if c.tickConnected {
		return
	}
	logger.Tracef(ctx, "reconnecting the tick signal")
	c.tickConnected = true
}

func (c *Coalescer) startTimer(ctx context.Context) {
	c.generation++
	generation := c.generation
	c.timerActive = true

	ticker := clock.FromCtx(ctx).Ticker(c.period)
	stopCh := make(chan struct{})
	c.stopTimer = func() { close(stopCh) }

	observability.Go(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
			}
			c.poster.Post(ctx, func(ctx context.Context) {
				c.onTimer(ctx, generation)
			})
		}
	})
}

func (c *Coalescer) stopTimerIfActive() {
	if !c.timerActive {
		return
	}
	c.timerActive = false
	c.stopTimer()
	c.stopTimer = nil
}

// Close stops the timer. Pending seeks are discarded.
func (c *Coalescer) Close(ctx context.Context) {
	c.hasPending = false
	c.leadingApplied = false
	c.stopTimerIfActive()
	c.connectTick(ctx)
}
