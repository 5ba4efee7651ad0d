// Package dummy implements a scriptable in-memory engine.
//
// It records every command it receives and raises events only when asked
// (Emit), or, with OptionSimulate, mimics what a real engine would raise.
package dummy

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/player/backend/subscription"
	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

type Command struct {
	Name string
	Args []any
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

type videoFormat struct {
	format        types.PixelFormat
	width, height int
	pitch         int
}

type Engine struct {
	locker       xsync.Mutex
	capabilities types.Capabilities
	simulate     bool
	frameRate    float64

	commands      []Command
	commandErrors map[string]error
	subscribers   subscription.Set

	media        string
	playing      bool
	paused       bool
	position     time.Duration
	length       time.Duration
	seekable     bool
	videoOutputs int
	videoSize    [2]int
	format       *videoFormat
	sink         types.RenderSink
	window       uintptr
	adjust       map[types.Adjust]float64
	closed       bool
	stopSimulate context.CancelFunc
}

var (
	_ types.Engine               = (*Engine)(nil)
	_ types.VideoCallbacksEngine = (*Engine)(nil)
	_ types.SurfaceEngine        = (*Engine)(nil)
)

func New(opts ...Option) *Engine {
	cfg := Options(opts).config()
	return &Engine{
		capabilities: types.Capabilities{
			NativeBufferingCompleteTransition: cfg.NativeBufferingCompleteTransition,
			CustomRender:                      true,
		},
		simulate:      cfg.Simulate,
		frameRate:     cfg.FrameRate,
		length:        cfg.MediaLength,
		seekable:      true,
		videoOutputs:  cfg.VideoOutputs,
		videoSize:     [2]int{cfg.VideoWidth, cfg.VideoHeight},
		commandErrors: map[string]error{},
		adjust:        map[types.Adjust]float64{},
	}
}

// Factory returns an engine.Factory producing dummy engines.
func Factory(opts ...Option) engine.Factory {
	return func(ctx context.Context, cfg types.Config) (types.Engine, error) {
		return New(opts...), nil
	}
}

// NewContext returns an engine context for the dummy backend.
func NewContext(opts ...Option) *engine.Context {
	return engine.NewContext(types.BackendDummy, nil, Factory(opts...))
}

func (e *Engine) Capabilities() types.Capabilities {
	return e.capabilities
}

func (e *Engine) Subscribe(
	ctx context.Context,
	kinds []types.EventKind,
	callback types.EventCallback,
) (context.CancelFunc, error) {
	if e.IsClosed() {
		return nil, types.ErrClosed
	}
	return e.subscribers.Subscribe(kinds, callback), nil
}

// Emit invokes the subscribed callbacks from the calling goroutine, the way
// a native engine does it from its own threads.
func (e *Engine) Emit(ev types.Event) {
	e.subscribers.Emit(ev)
}

// SubscriberCount returns the amount of active subscriptions.
func (e *Engine) SubscriberCount() int {
	return e.subscribers.Len()
}

// Commands returns the commands received so far.
func (e *Engine) Commands() []Command {
	return xsync.DoR1(context.Background(), &e.locker, func() []Command {
		return append([]Command(nil), e.commands...)
	})
}

// CommandNames returns the names of the commands received so far.
func (e *Engine) CommandNames() []string {
	var names []string
	for _, cmd := range e.Commands() {
		names = append(names, cmd.Name)
	}
	return names
}

func (e *Engine) ResetCommands() {
	e.locker.Do(context.Background(), func() {
		e.commands = nil
	})
}

// SetCommandError makes the command fail with err (nil to succeed again).
func (e *Engine) SetCommandError(name string, err error) {
	e.locker.Do(context.Background(), func() {
		if err == nil {
			delete(e.commandErrors, name)
			return
		}
		e.commandErrors[name] = err
	})
}

func (e *Engine) SetSeekable(seekable bool) {
	e.locker.Do(context.Background(), func() {
		e.seekable = seekable
	})
}

func (e *Engine) SetVideoOutputCount(count int) {
	e.locker.Do(context.Background(), func() {
		e.videoOutputs = count
	})
}

// Adjust returns the last value set for the adjustment.
func (e *Engine) Adjust(adjust types.Adjust) (float64, bool) {
	return xsync.DoR2(context.Background(), &e.locker, func() (float64, bool) {
		v, ok := e.adjust[adjust]
		return v, ok
	})
}

// record is called with e.locker held.
func (e *Engine) record(name string, args ...any) error {
	e.commands = append(e.commands, Command{Name: name, Args: args})
	if e.closed {
		return types.ErrClosed
	}
	return e.commandErrors[name]
}

func (e *Engine) do(ctx context.Context, name string, fn func() []types.Event, args ...any) error {
	events, err := xsync.DoR2(ctx, &e.locker, func() ([]types.Event, error) {
		if err := e.record(name, args...); err != nil {
			return nil, err
		}
		if fn == nil {
			return nil, nil
		}
		return fn(), nil
	})
	if err != nil {
		return err
	}
	if e.simulate {
		for _, ev := range events {
			e.Emit(ev)
		}
	}
	return nil
}

func (e *Engine) SetMedia(ctx context.Context, source string) error {
	return e.do(ctx, "set-media", func() []types.Event {
		e.media = source
		e.position = 0
		e.playing, e.paused = false, false
		return []types.Event{{Kind: types.EventKindMediaChanged}}
	}, source)
}

func (e *Engine) Media() string {
	return xsync.DoR1(context.Background(), &e.locker, func() string {
		return e.media
	})
}

func (e *Engine) Play(ctx context.Context) error {
	err := e.do(ctx, "play", func() []types.Event {
		if e.media == "" {
			return []types.Event{{Kind: types.EventKindEncounteredError}}
		}
		e.playing, e.paused = true, false
		events := []types.Event{
			{Kind: types.EventKindOpening},
			{Kind: types.EventKindBuffering, Cache: 50},
			{Kind: types.EventKindBuffering, Cache: 100},
		}
		if e.capabilities.NativeBufferingCompleteTransition {
			events = append(events, types.Event{Kind: types.EventKindPlaying})
		}
		events = append(events,
			types.Event{Kind: types.EventKindLengthChanged, Length: e.length},
			types.Event{Kind: types.EventKindSeekableChanged, Seekable: e.seekable},
			types.Event{Kind: types.EventKindVideoSizeChanged, Width: e.videoSize[0], Height: e.videoSize[1]},
		)
		return events
	})
	if err != nil {
		return err
	}
	isPlaying := xsync.DoR1(ctx, &e.locker, func() bool {
		return e.playing
	})
	if e.simulate && isPlaying {
		e.startSimulation(ctx)
	}
	return nil
}

func (e *Engine) SetPause(ctx context.Context, pause bool) error {
	return e.do(ctx, "set-pause", func() []types.Event {
		return e.setPauseLocked(pause)
	}, pause)
}

func (e *Engine) setPauseLocked(pause bool) []types.Event {
	if !e.playing || e.paused == pause {
		return nil
	}
	e.paused = pause
	if pause {
		return []types.Event{{Kind: types.EventKindPaused}}
	}
	return []types.Event{{Kind: types.EventKindPlaying}}
}

func (e *Engine) TogglePause(ctx context.Context) error {
	return e.do(ctx, "toggle-pause", func() []types.Event {
		return e.setPauseLocked(!e.paused)
	})
}

func (e *Engine) Stop(ctx context.Context) error {
	err := e.do(ctx, "stop", func() []types.Event {
		e.playing, e.paused = false, false
		e.position = 0
		return []types.Event{{Kind: types.EventKindStopped}}
	})
	e.stopSimulation()
	return err
}

func (e *Engine) GetTime(ctx context.Context) (time.Duration, error) {
	return xsync.DoR2(ctx, &e.locker, func() (time.Duration, error) {
		if e.closed {
			return 0, types.ErrClosed
		}
		return e.position, nil
	})
}

func (e *Engine) SetTime(ctx context.Context, t time.Duration) error {
	return e.do(ctx, "set-time", func() []types.Event {
		e.position = t
		return []types.Event{{Kind: types.EventKindTimeChanged, Time: t}}
	}, t)
}

func (e *Engine) IsSeekable(ctx context.Context) bool {
	return xsync.DoR1(ctx, &e.locker, func() bool {
		return e.seekable
	})
}

func (e *Engine) VideoOutputCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &e.locker, func() int {
		return e.videoOutputs
	})
}

func (e *Engine) SetSubtitleTrack(ctx context.Context, index int) error {
	return e.do(ctx, "set-subtitle", nil, index)
}

func (e *Engine) SetSubtitleFile(ctx context.Context, path string) error {
	return e.do(ctx, "set-subtitle-file", nil, path)
}

func (e *Engine) SetTitle(ctx context.Context, index int) error {
	return e.do(ctx, "set-title", nil, index)
}

func (e *Engine) SetChapter(ctx context.Context, index int) error {
	return e.do(ctx, "set-chapter", nil, index)
}

func (e *Engine) SetAudioTrack(ctx context.Context, index int) error {
	return e.do(ctx, "set-audio-track", nil, index)
}

func (e *Engine) SetAdjustInt(ctx context.Context, adjust types.Adjust, value int) error {
	return e.do(ctx, "set-adjust-int", func() []types.Event {
		e.adjust[adjust] = float64(value)
		return nil
	}, adjust, value)
}

func (e *Engine) SetAdjustFloat(ctx context.Context, adjust types.Adjust, value float64) error {
	return e.do(ctx, "set-adjust-float", func() []types.Event {
		e.adjust[adjust] = value
		return nil
	}, adjust, value)
}

func (e *Engine) SetAspectRatio(ctx context.Context, aspectRatio string) error {
	return e.do(ctx, "set-aspect-ratio", nil, aspectRatio)
}

func (e *Engine) SetWindow(ctx context.Context, handle uintptr) error {
	return e.do(ctx, "set-window", func() []types.Event {
		e.window = handle
		return nil
	}, handle)
}

func (e *Engine) SetVideoFormat(
	ctx context.Context,
	format types.PixelFormat,
	width, height, pitch int,
) error {
	return e.do(ctx, "set-video-format", func() []types.Event {
		e.format = &videoFormat{format: format, width: width, height: height, pitch: pitch}
		return nil
	}, format, width, height, pitch)
}

func (e *Engine) SetVideoCallbacks(ctx context.Context, sink types.RenderSink) error {
	return e.do(ctx, "set-video-callbacks", func() []types.Event {
		e.sink = sink
		return nil
	})
}

// RenderFrame does what a render thread of a native engine does: locks the
// sink, fills the buffer and unlocks it. Returns false if there is no sink or
// the sink provided no buffer.
func (e *Engine) RenderFrame(
	ctx context.Context,
	fill func(buf []byte, width, height, pitch int),
) bool {
	sink, format := xsync.DoR2(xsync.WithNoLogging(ctx, true), &e.locker, func() (types.RenderSink, *videoFormat) {
		return e.sink, e.format
	})
	if sink == nil || format == nil {
		return false
	}
	buf := sink.Lock(ctx)
	defer sink.Unlock(ctx)
	if buf == nil {
		return false
	}
	if len(buf) < format.pitch*format.height {
		logger.Errorf(ctx, "the buffer is smaller than declared: %d < %d", len(buf), format.pitch*format.height)
		return false
	}
	if fill != nil {
		fill(buf, format.width, format.height, format.pitch)
	}
	return true
}

func (e *Engine) Close(ctx context.Context) error {
	e.stopSimulation()
	e.locker.Do(ctx, func() {
		e.commands = append(e.commands, Command{Name: "close"})
		e.closed = true
		e.sink = nil
	})
	e.subscribers.Clear()
	return nil
}

func (e *Engine) IsClosed() bool {
	return xsync.DoR1(context.Background(), &e.locker, func() bool {
		return e.closed
	})
}
