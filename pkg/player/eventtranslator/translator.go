// Package eventtranslator converts the raw event stream of an engine into
// the player lifecycle (types.State) and scalar notifications.
package eventtranslator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/player/dispatcher"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

// Listener receives the translated notifications on the control loop, in
// the order the engine raised the underlying events.
type Listener interface {
	OnStateChanged(ctx context.Context, state types.State)
	OnTimeChanged(ctx context.Context, t time.Duration)
	OnLengthChanged(ctx context.Context, length time.Duration)
	OnSeekableChanged(ctx context.Context, seekable bool)
	OnVideoSizeChanged(ctx context.Context, width, height int)
}

// Poster enqueues a task onto the control loop without waiting.
type Poster interface {
	Post(ctx context.Context, task dispatcher.Task) bool
}

// EventSource is the subscription surface of an engine.
type EventSource interface {
	Capabilities() types.Capabilities
	Subscribe(ctx context.Context, kinds []types.EventKind, callback types.EventCallback) (context.CancelFunc, error)
}

type Translator struct {
	ctx          context.Context
	poster       Poster
	listener     Listener
	capabilities types.Capabilities
	unsubscribe  context.CancelFunc

	// accessed only from the control loop:
	state              types.State
	bufferingCompleted bool
}

// New subscribes to every kind of types.SubscribedEventKinds on the engine.
func New(
	ctx context.Context,
	source EventSource,
	poster Poster,
	listener Listener,
) (*Translator, error) {
	t := &Translator{
		ctx:          xsync.WithNoLogging(ctx, true),
		poster:       poster,
		listener:     listener,
		capabilities: source.Capabilities(),
		state:        types.StateNoState,
	}
	logger.Debugf(ctx, "engine capabilities: %#+v", t.capabilities)

	unsubscribe, err := source.Subscribe(ctx, types.SubscribedEventKinds(), t.onEvent)
	if err != nil {
		return nil, fmt.Errorf("unable to subscribe to the engine events: %w", err)
	}
	t.unsubscribe = unsubscribe
	return t, nil
}

// onEvent is called by the engine from its own threads.
func (t *Translator) onEvent(ev types.Event) {
	t.poster.Post(t.ctx, func(ctx context.Context) {
		t.process(ctx, ev)
	})
}

// State returns the last emitted state. Control loop only.
func (t *Translator) State() types.State {
	return t.state
}

func (t *Translator) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

func (t *Translator) process(ctx context.Context, ev types.Event) {
	logger.Tracef(ctx, "engine event: %s %#+v", ev.Kind, ev)

	switch ev.Kind {
	case types.EventKindTimeChanged:
		if ev.Time < 0 {
			logger.Tracef(ctx, "ignoring a negative time: %v", ev.Time)
			return
		}
		t.listener.OnTimeChanged(ctx, ev.Time)
	case types.EventKindLengthChanged:
		if ev.Length < 0 {
			logger.Tracef(ctx, "ignoring a negative length: %v", ev.Length)
			return
		}
		t.listener.OnLengthChanged(ctx, ev.Length)
	case types.EventKindSeekableChanged:
		t.listener.OnSeekableChanged(ctx, ev.Seekable)
	case types.EventKindVideoSizeChanged:
		if ev.Width <= 0 || ev.Height <= 0 {
			logger.Debugf(ctx, "ignoring an invalid video size: %dx%d", ev.Width, ev.Height)
			return
		}
		t.listener.OnVideoSizeChanged(ctx, ev.Width, ev.Height)

	case types.EventKindNothingSpecial:
		t.emitState(ctx, types.StateNoState)
	case types.EventKindOpening:
		t.emitState(ctx, types.StateOpening)
	case types.EventKindBuffering:
		t.onBuffering(ctx, ev.Cache)
	case types.EventKindPlaying:
		t.onPlaying(ctx)
	case types.EventKindPaused:
		t.emitState(ctx, types.StatePaused)
	case types.EventKindStopped:
		t.bufferingCompleted = false
		t.emitState(ctx, types.StateStopped)
	case types.EventKindEndReached:
		t.bufferingCompleted = false
		t.emitState(ctx, types.StateEnded)
	case types.EventKindEncounteredError:
		t.emitState(ctx, types.StateError)

	case types.EventKindMediaChanged:
		t.bufferingCompleted = false
	case types.EventKindForward,
		types.EventKindBackward,
		types.EventKindPositionChanged,
		types.EventKindPausableChanged,
		types.EventKindTitleChanged,
		types.EventKindSnapshotTaken:
		// no externally visible effect
	default:
		logger.Warnf(ctx, "unexpected engine event kind: %s", ev.Kind)
	}
}

func (t *Translator) onBuffering(ctx context.Context, cache float64) {
	if math.IsNaN(cache) || cache < 0 || cache > 100 {
		logger.Debugf(ctx, "ignoring an invalid cache fill value: %v", cache)
		return
	}

	if cache < 100 {
		t.bufferingCompleted = false
		t.emitState(ctx, types.StateBuffering)
		return
	}

	if t.capabilities.NativeBufferingCompleteTransition {
		// the engine raises "playing" itself
		return
	}
	if t.bufferingCompleted {
		return
	}
	t.bufferingCompleted = true
	t.emitState(ctx, types.StatePlaying)
}

func (t *Translator) onPlaying(ctx context.Context) {
	if t.bufferingCompleted && t.state == types.StatePlaying {
		logger.Tracef(ctx, "'playing' was already signaled for this media")
		return
	}
	t.bufferingCompleted = true
	t.emitState(ctx, types.StatePlaying)
}

func (t *Translator) emitState(ctx context.Context, state types.State) {
	logger.Debugf(ctx, "state: %s -> %s", t.state, state)
	t.state = state
	t.listener.OnStateChanged(ctx, state)
}
