// Package player provides MediaPlayer: a thread-safe playback model on top
// of an asynchronous native engine.
//
// All the state of a MediaPlayer lives on its control loop. Commands may be
// called from any goroutine; they are executed on the loop in call order.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/eventbus"
	"github.com/xaionaro-go/playercore/pkg/player/adjustment"
	"github.com/xaionaro-go/playercore/pkg/player/dispatcher"
	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/eventtranslator"
	"github.com/xaionaro-go/playercore/pkg/player/framepipeline"
	"github.com/xaionaro-go/playercore/pkg/player/framing"
	"github.com/xaionaro-go/playercore/pkg/player/seekcoalescer"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

type MediaPlayer struct {
	Config types.Config

	handle     *engine.Handle
	dispatcher *dispatcher.Dispatcher
	translator *eventtranslator.Translator
	coalescer  *seekcoalescer.Coalescer
	pipeline   *framepipeline.Pipeline
	bus        *eventbus.EventBus
	closed     atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc

	subscriptionsLocker xsync.Mutex
	subscriptions       map[uint64]context.CancelFunc
	subscriptionCount   uint64

	// accessed only from the control loop:
	adjustments adjustment.Set
	media       string
	state       types.State
	length      time.Duration
	aspectRatio framing.AspectRatio
}

// New creates a player with its own engine instance from engineCtx.
func New(
	ctx context.Context,
	engineCtx *engine.Context,
	opts ...types.Option,
) (_ret *MediaPlayer, _err error) {
	logger.Debugf(ctx, "New")
	defer func() { logger.Debugf(ctx, "/New: %v", _err) }()

	handle, err := engineCtx.NewHandle(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create an engine instance: %w", err)
	}

	cfg := engineCtx.Config
	types.Options(opts).Apply(&cfg)

	ctx, cancel := context.WithCancel(ctx)
	p := &MediaPlayer{
		Config:        cfg,
		handle:        handle,
		dispatcher:    dispatcher.New(),
		bus:           eventbus.New(),
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: map[uint64]context.CancelFunc{},
		state:         types.StateNoState,
		aspectRatio:   framing.AspectRatioAuto,
	}
	p.coalescer = seekcoalescer.New(p.dispatcher, handle.SetTime)
	p.pipeline = framepipeline.New(handle.VideoCallbacks(), p.dispatcher, p.onFrame, cfg)

	if err := p.dispatcher.Start(ctx); err != nil {
		_ = p.closeEngine(ctx)
		cancel()
		return nil, err
	}

	p.translator, err = eventtranslator.New(ctx, handle, p.dispatcher, listener{p})
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}

	if err := p.do(ctx, p.setupOutput); err != nil {
		logger.Warnf(ctx, "unable to setup the video output: %v", err)
	}
	return p, nil
}

func (p *MediaPlayer) setupOutput(ctx context.Context) error {
	if p.Config.CustomRender {
		if err := p.pipeline.UseCustomRender(ctx); err != nil {
			return fmt.Errorf("unable to enable custom render: %w", err)
		}
		return nil
	}
	if p.Config.WindowHandle == 0 {
		return nil
	}
	err := p.handle.SetWindow(ctx, p.Config.WindowHandle)
	if errors.Is(err, types.ErrNotSupported) {
		logger.Debugf(ctx, "the engine does not support changing the window")
		return nil
	}
	return err
}

// do executes fn on the control loop and waits for it.
func (p *MediaPlayer) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.closed.Load() {
		return types.ErrClosed
	}
	var err error
	if doErr := p.dispatcher.Do(ctx, func(ctx context.Context) {
		err = fn(ctx)
	}); doErr != nil {
		return doErr
	}
	return err
}

func query[T any](ctx context.Context, p *MediaPlayer, fn func(ctx context.Context) T) T {
	var zero T
	if p.closed.Load() {
		return zero
	}
	r, err := dispatcher.DoR1(ctx, p.dispatcher, fn)
	if err != nil {
		logger.Debugf(ctx, "unable to query the player: %v", err)
		return zero
	}
	return r
}

func (p *MediaPlayer) Backend() types.Backend {
	return p.handle.Backend()
}

// SetMedia sets the source to be played by the next Play.
func (p *MediaPlayer) SetMedia(ctx context.Context, source string) error {
	return p.do(ctx, func(ctx context.Context) error {
		if err := p.handle.SetMedia(ctx, source); err != nil {
			return err
		}
		p.media = source
		p.length = 0
		return nil
	})
}

func (p *MediaPlayer) Media(ctx context.Context) string {
	return query(ctx, p, func(ctx context.Context) string {
		return p.media
	})
}

// Play starts the playback. The resulting state is reported through
// OnStateChanged; a failure here is not retried.
func (p *MediaPlayer) Play(ctx context.Context) error {
	return p.do(ctx, p.handle.Play)
}

func (p *MediaPlayer) Pause(ctx context.Context) error {
	return p.do(ctx, p.handle.Pause)
}

func (p *MediaPlayer) Resume(ctx context.Context) error {
	return p.do(ctx, p.handle.Resume)
}

func (p *MediaPlayer) TogglePause(ctx context.Context) error {
	return p.do(ctx, p.handle.TogglePause)
}

func (p *MediaPlayer) Stop(ctx context.Context) error {
	return p.do(ctx, p.handle.Stop)
}

func (p *MediaPlayer) State(ctx context.Context) types.State {
	return query(ctx, p, func(ctx context.Context) types.State {
		return p.state
	})
}

// Time returns the current playback position as reported by the engine.
func (p *MediaPlayer) Time(ctx context.Context) time.Duration {
	return query(ctx, p, p.handle.Time)
}

func (p *MediaPlayer) Length(ctx context.Context) time.Duration {
	return query(ctx, p, func(ctx context.Context) time.Duration {
		return p.length
	})
}

// SetTime seeks immediately, bypassing seek coalescing.
func (p *MediaPlayer) SetTime(ctx context.Context, t time.Duration) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.handle.SetTime(ctx, t)
	})
}

// RequestSeek is the seek for rapid sequences of requests (e.g. dragging a
// seek bar): the requests are collapsed into at most one engine seek per
// seekcoalescer.DefaultPeriod, and time-changed notifications are
// suppressed until the seeking is over.
func (p *MediaPlayer) RequestSeek(ctx context.Context, t time.Duration) error {
	if t < 0 {
		return fmt.Errorf("negative seek target %v", t)
	}
	return p.do(ctx, func(ctx context.Context) error {
		p.coalescer.RequestSeek(ctx, t)
		return nil
	})
}

func (p *MediaPlayer) IsSeekable(ctx context.Context) bool {
	return query(ctx, p, p.handle.IsSeekable)
}

func (p *MediaPlayer) HasVideoOutput(ctx context.Context) bool {
	return query(ctx, p, p.handle.HasVideoOutput)
}

// SetSubtitle selects a subtitle track; a negative index disables subtitles.
// On failure the current selection is kept.
func (p *MediaPlayer) SetSubtitle(ctx context.Context, index int) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.handle.SetSubtitleTrack(ctx, index)
	})
}

func (p *MediaPlayer) SetSubtitleFile(ctx context.Context, path string) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.handle.SetSubtitleFile(ctx, path)
	})
}

func (p *MediaPlayer) SetTitle(ctx context.Context, index int) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.handle.SetTitle(ctx, index)
	})
}

func (p *MediaPlayer) SetChapter(ctx context.Context, index int) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.handle.SetChapter(ctx, index)
	})
}

func (p *MediaPlayer) SetAudioTrack(ctx context.Context, index int) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.handle.SetAudioTrack(ctx, index)
	})
}

func (p *MediaPlayer) setAdjustment(ctx context.Context, kind adjustment.Kind, value float64) error {
	return p.do(ctx, func(ctx context.Context) error {
		return p.adjustments.Apply(ctx, p.handle, p.handle.HasVideoOutput(ctx), kind, value)
	})
}

func (p *MediaPlayer) getAdjustment(ctx context.Context, kind adjustment.Kind) float64 {
	return query(ctx, p, func(ctx context.Context) float64 {
		return p.adjustments.Get(kind)
	})
}

// SetBrightness sets the brightness in range [-1, 1], 0 is neutral.
func (p *MediaPlayer) SetBrightness(ctx context.Context, value float64) error {
	return p.setAdjustment(ctx, adjustment.KindBrightness, value)
}

func (p *MediaPlayer) Brightness(ctx context.Context) float64 {
	return p.getAdjustment(ctx, adjustment.KindBrightness)
}

// SetContrast sets the contrast in range [-1, 1], 0 is neutral.
func (p *MediaPlayer) SetContrast(ctx context.Context, value float64) error {
	return p.setAdjustment(ctx, adjustment.KindContrast, value)
}

func (p *MediaPlayer) Contrast(ctx context.Context) float64 {
	return p.getAdjustment(ctx, adjustment.KindContrast)
}

// SetHue sets the hue in range [0, 1]; negative values are treated as 0.
func (p *MediaPlayer) SetHue(ctx context.Context, value float64) error {
	return p.setAdjustment(ctx, adjustment.KindHue, value)
}

func (p *MediaPlayer) Hue(ctx context.Context) float64 {
	return p.getAdjustment(ctx, adjustment.KindHue)
}

// SetSaturation sets the saturation in range [-1, 1], 0 is neutral.
func (p *MediaPlayer) SetSaturation(ctx context.Context, value float64) error {
	return p.setAdjustment(ctx, adjustment.KindSaturation, value)
}

func (p *MediaPlayer) Saturation(ctx context.Context) float64 {
	return p.getAdjustment(ctx, adjustment.KindSaturation)
}

func (p *MediaPlayer) SetAspectRatio(ctx context.Context, ar framing.AspectRatio) error {
	return p.do(ctx, func(ctx context.Context) error {
		if err := p.handle.SetAspectRatio(ctx, ar.EngineValue()); err != nil {
			return err
		}
		p.aspectRatio = ar
		return nil
	})
}

func (p *MediaPlayer) AspectRatio(ctx context.Context) framing.AspectRatio {
	return query(ctx, p, func(ctx context.Context) framing.AspectRatio {
		return p.aspectRatio
	})
}

// UseCustomRender makes the engine render into memory and the player publish
// frames (see OnFramePublished). A failure disables frame publishing only.
func (p *MediaPlayer) UseCustomRender(ctx context.Context) error {
	return p.do(ctx, p.pipeline.UseCustomRender)
}

func (p *MediaPlayer) RenderMode(ctx context.Context) framepipeline.Mode {
	return query(ctx, p, func(ctx context.Context) framepipeline.Mode {
		return p.pipeline.Mode()
	})
}

// VideoSize returns the last declared video size.
func (p *MediaPlayer) VideoSize(ctx context.Context) (int, int) {
	size := query(ctx, p, func(ctx context.Context) [2]int {
		w, h := p.pipeline.VideoSize()
		return [2]int{w, h}
	})
	return size[0], size[1]
}

func (p *MediaPlayer) FrameStats() framepipeline.Stats {
	return p.pipeline.Stats()
}

func (p *MediaPlayer) onFrame(ctx context.Context, frame types.Frame) {
	publish(ctx, p, FramePublished{Frame: frame})
}

func (p *MediaPlayer) closeEngine(ctx context.Context) error {
	return p.handle.Close(ctx)
}

// Close stops the playback and releases the engine instance.
func (p *MediaPlayer) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	var mErr *multierror.Error
	err := p.dispatcher.Do(ctx, func(ctx context.Context) {
		if p.translator != nil {
			p.translator.Close()
		}
		p.coalescer.Close(ctx)
		p.pipeline.Close(ctx)
	})
	if err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if err := p.closeEngine(ctx); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	p.dispatcher.Close(ctx)
	if !p.dispatcher.IsInLoop(ctx) {
		if err := p.dispatcher.Wait(ctx); err != nil {
			mErr = multierror.Append(mErr, err)
		}
		p.cancel()
	}
	p.unsubscribeAll(ctx)
	return mErr.ErrorOrNil()
}
