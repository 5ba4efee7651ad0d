package player

import (
	"bytes"
	"context"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/eventbus"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

// Notifications. Each of them is sent to the bus of the player from the
// control loop, in the order the underlying events happened.

type StateChanged struct {
	State types.State
}

type TimeChanged struct {
	Time time.Duration
}

type LengthChanged struct {
	Length time.Duration
}

type SeekableChanged struct {
	Seekable bool
}

type FramePublished struct {
	Frame types.Frame
}

type VideoSizeChanged struct {
	Width  int
	Height int
}

const (
	notificationQueueSize = 64
	notificationPileSize  = 4096
	frameQueueSize        = 2
)

// notificationOptions never make the control loop wait for a subscriber: a
// subscriber that falls notificationPileSize events behind is unsubscribed.
func notificationOptions() []eventbus.Option {
	return []eventbus.Option{
		eventbus.OptionQueueSize(notificationQueueSize),
		eventbus.OptionOnOverflow(eventbus.OnOverflowPileUpOrClose(notificationPileSize, 0)),
	}
}

// frameOptions drop frames a subscriber is not ready to take.
func frameOptions() []eventbus.Option {
	return []eventbus.Option{
		eventbus.OptionQueueSize(frameQueueSize),
		eventbus.OptionOnOverflow(eventbus.OnOverflowDrop{}),
	}
}

func publish[E any](ctx context.Context, p *MediaPlayer, ev E) {
	r := eventbus.SendEvent(ctx, p.bus, ev)
	if r.DropCountImmediate > 0 {
		logger.Tracef(ctx, "%T was dropped for %d subscribers", ev, r.DropCountImmediate)
	}
}

// subscribe delivers the events of type E to fn on a goroutine of the
// subscription, until the returned function is called or the player is
// closed.
func subscribe[E any](
	p *MediaPlayer,
	opts []eventbus.Option,
	fn func(ctx context.Context, ev E),
) (context.CancelFunc, error) {
	if p.closed.Load() {
		return nil, types.ErrClosed
	}

	ctx, cancel := context.WithCancel(p.ctx)
	sub := eventbus.Subscribe[E](ctx, p.bus, opts...)
	if sub == nil {
		cancel()
		return nil, types.ErrClosed
	}
	eventCh := sub.EventChan()

	unsubscribe := func() {
		cancel()
		sub.Finish(context.WithoutCancel(ctx))
	}
	id := xsync.DoR1(ctx, &p.subscriptionsLocker, func() uint64 {
		p.subscriptionCount++
		p.subscriptions[p.subscriptionCount] = unsubscribe
		return p.subscriptionCount
	})
	if p.closed.Load() {
		p.unsubscribeAll(ctx)
		return nil, types.ErrClosed
	}

	observability.Go(ctx, func(ctx context.Context) {
		var sample E
		logger.Debugf(ctx, "delivering %T", sample)
		defer logger.Debugf(ctx, "/delivering %T", sample)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-eventCh:
				if !ok {
					if ctx.Err() == nil {
						logger.Warnf(ctx, "the subscriber of %T was too slow and got unsubscribed", sample)
					}
					return
				}
				fn(ctx, ev)
			}
		}
	})

	return func() {
		p.subscriptionsLocker.Do(context.Background(), func() {
			delete(p.subscriptions, id)
		})
		unsubscribe()
	}, nil
}

func (p *MediaPlayer) unsubscribeAll(ctx context.Context) {
	unsubscribes := xsync.DoR1(ctx, &p.subscriptionsLocker, func() []context.CancelFunc {
		var r []context.CancelFunc
		for id, unsubscribe := range p.subscriptions {
			r = append(r, unsubscribe)
			delete(p.subscriptions, id)
		}
		return r
	})
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}

// Handlers are called on a goroutine of their own subscription: the
// notifications of one subscription arrive in order, but there is no
// ordering between different subscriptions. A handler may call the
// player's commands. The handler's ctx is cancelled on unsubscription and
// on Close.

func (p *MediaPlayer) OnStateChanged(fn func(ctx context.Context, state types.State)) (context.CancelFunc, error) {
	return subscribe(p, notificationOptions(), func(ctx context.Context, ev StateChanged) {
		fn(ctx, ev.State)
	})
}

func (p *MediaPlayer) OnTimeChanged(fn func(ctx context.Context, t time.Duration)) (context.CancelFunc, error) {
	return subscribe(p, notificationOptions(), func(ctx context.Context, ev TimeChanged) {
		fn(ctx, ev.Time)
	})
}

func (p *MediaPlayer) OnLengthChanged(fn func(ctx context.Context, length time.Duration)) (context.CancelFunc, error) {
	return subscribe(p, notificationOptions(), func(ctx context.Context, ev LengthChanged) {
		fn(ctx, ev.Length)
	})
}

func (p *MediaPlayer) OnSeekableChanged(fn func(ctx context.Context, seekable bool)) (context.CancelFunc, error) {
	return subscribe(p, notificationOptions(), func(ctx context.Context, ev SeekableChanged) {
		fn(ctx, ev.Seekable)
	})
}

// OnFramePublished is only triggered in custom-render mode. Every handler
// gets its own copy of the frame data. Frames the handler is not ready to
// take are dropped.
func (p *MediaPlayer) OnFramePublished(fn func(ctx context.Context, frame types.Frame)) (context.CancelFunc, error) {
	return subscribe(p, frameOptions(), func(ctx context.Context, ev FramePublished) {
		frame := ev.Frame
		frame.Data = bytes.Clone(frame.Data)
		fn(ctx, frame)
	})
}

func (p *MediaPlayer) OnVideoSizeChanged(fn func(ctx context.Context, width, height int)) (context.CancelFunc, error) {
	return subscribe(p, notificationOptions(), func(ctx context.Context, ev VideoSizeChanged) {
		fn(ctx, ev.Width, ev.Height)
	})
}
