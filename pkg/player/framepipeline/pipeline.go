// Package framepipeline hands rendered frames over from the engine render
// thread to the control loop.
package framepipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/experimental/metrics"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/player/dispatcher"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

type Mode int

const (
	ModeNativeSurface = Mode(iota)
	ModeCustomRender
	// ModeDisabled is custom-render mode after a failure: no frames are published.
	ModeDisabled
)

func (m Mode) String() string {
	switch m {
	case ModeNativeSurface:
		return "native-surface"
	case ModeCustomRender:
		return "custom-render"
	case ModeDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("unknown_mode_%d", int(m))
	}
}

type Poster interface {
	Post(ctx context.Context, task dispatcher.Task) bool
}

// FrameHandler receives published frames on the control loop.
type FrameHandler func(ctx context.Context, frame types.Frame)

type Stats struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
	Skipped   uint64
}

// Pipeline is driven from the control loop, except for the sink which is
// driven by the engine render thread.
type Pipeline struct {
	engine        types.VideoCallbacksEngine
	poster        Poster
	handler       FrameHandler
	maxBufferSize int

	mode   Mode
	width  int
	height int
	sink   *CustomBufferSink

	mailboxLocker xsync.Mutex
	mailbox       *types.Frame

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a pipeline in native-surface mode. engine may be nil if the
// engine is unable to render into a buffer.
func New(
	engine types.VideoCallbacksEngine,
	poster Poster,
	handler FrameHandler,
	cfg types.Config,
) *Pipeline {
	return &Pipeline{
		engine:        engine,
		poster:        poster,
		handler:       handler,
		maxBufferSize: cfg.MaxFrameBufferSize,
		mode:          ModeNativeSurface,
		width:         cfg.DefaultVideoWidth,
		height:        cfg.DefaultVideoHeight,
	}
}

func (p *Pipeline) Mode() Mode {
	return p.mode
}

// VideoSize returns the last declared video size.
func (p *Pipeline) VideoSize() (int, int) {
	return p.width, p.height
}

// UseCustomRender switches to custom-render mode. On failure the pipeline
// stays unable to publish frames; it does not affect playback.
func (p *Pipeline) UseCustomRender(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "UseCustomRender")
	defer func() { logger.Debugf(ctx, "/UseCustomRender: %v", _err) }()

	switch p.mode {
	case ModeCustomRender:
		return nil
	case ModeDisabled:
		return fmt.Errorf("custom render is disabled after a previous failure")
	}

	if p.engine == nil {
		return fmt.Errorf("unable to render into a buffer: %w", types.ErrNotSupported)
	}

	buffer, err := allocate(p.width, p.height, p.maxBufferSize)
	if err != nil {
		p.mode = ModeDisabled
		return err
	}

	p.sink = newCustomBufferSink(p.publish)
	p.sink.swap(ctx, buffer, p.width, p.height)
	if err := p.declareFormat(ctx, p.width, p.height); err != nil {
		p.fail(ctx)
		return err
	}
	if err := p.engine.SetVideoCallbacks(ctx, p.sink); err != nil {
		p.fail(ctx)
		return fmt.Errorf("unable to register the video callbacks: %w", err)
	}
	p.sink.resume(ctx)
	p.mode = ModeCustomRender
	return nil
}

// SetVideoSize reconfigures the producer buffer and the engine output format
// for the new size. No frame is rendered in the meantime.
func (p *Pipeline) SetVideoSize(ctx context.Context, width, height int) (_err error) {
	logger.Debugf(ctx, "SetVideoSize(ctx, %d, %d)", width, height)
	defer func() { logger.Debugf(ctx, "/SetVideoSize(ctx, %d, %d): %v", width, height, _err) }()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid video size %dx%d", width, height)
	}

	if p.mode != ModeCustomRender {
		p.width, p.height = width, height
		return nil
	}
	if width == p.width && height == p.height {
		return nil
	}

	buffer, err := allocate(width, height, p.maxBufferSize)
	if err != nil {
		p.fail(ctx)
		return err
	}

	p.sink.swap(ctx, buffer, width, height)
	p.width, p.height = width, height
	if err := p.declareFormat(ctx, width, height); err != nil {
		p.fail(ctx)
		return err
	}
	p.sink.resume(ctx)
	return nil
}

func (p *Pipeline) declareFormat(ctx context.Context, width, height int) error {
	pitch := width * types.BytesPerPixel
	if err := p.engine.SetVideoFormat(ctx, types.PixelFormatRV32, width, height, pitch); err != nil {
		return fmt.Errorf("unable to set the video format %s %dx%d (pitch %d): %w", types.PixelFormatRV32, width, height, pitch, err)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context) {
	logger.Errorf(ctx, "disabling custom render, no frames will be published")
	if p.sink != nil {
		p.sink.disable(ctx)
	}
	p.mode = ModeDisabled
	p.clearMailbox(ctx)
}

// publish is called by the sink on the render thread with the sink locked.
func (p *Pipeline) publish(ctx context.Context, frame types.Frame) {
	ctx = xsync.WithNoLogging(ctx, true)
	p.published.Add(1)
	metrics.FromCtx(ctx).Count("frames_published").Add(1)

	wasEmpty := xsync.DoR1(ctx, &p.mailboxLocker, func() bool {
		wasEmpty := p.mailbox == nil
		p.mailbox = &frame
		return wasEmpty
	})
	if !wasEmpty {
		p.countDrop(ctx)
		return
	}
	p.poster.Post(ctx, p.deliver)
}

func (p *Pipeline) deliver(ctx context.Context) {
	frame := xsync.DoR1(xsync.WithNoLogging(ctx, true), &p.mailboxLocker, func() *types.Frame {
		frame := p.mailbox
		p.mailbox = nil
		return frame
	})
	if frame == nil {
		return
	}
	if p.mode != ModeCustomRender || frame.Width != p.width || frame.Height != p.height {
		logger.Tracef(ctx, "dropping a stale %dx%d frame (current: %s %dx%d)", frame.Width, frame.Height, p.mode, p.width, p.height)
		p.countDrop(ctx)
		return
	}
	p.delivered.Add(1)
	p.handler(ctx, *frame)
}

func (p *Pipeline) clearMailbox(ctx context.Context) {
	p.mailboxLocker.Do(xsync.WithNoLogging(ctx, true), func() {
		p.mailbox = nil
	})
}

func (p *Pipeline) countDrop(ctx context.Context) {
	p.dropped.Add(1)
	metrics.FromCtx(ctx).Count("frames_dropped").Add(1)
}

func (p *Pipeline) Stats() Stats {
	stats := Stats{
		Published: p.published.Load(),
		Delivered: p.delivered.Load(),
		Dropped:   p.dropped.Load(),
	}
	if p.sink != nil {
		stats.Skipped = p.sink.Skipped()
	}
	return stats
}

// Close stops publishing frames.
func (p *Pipeline) Close(ctx context.Context) {
	if p.sink != nil {
		p.sink.disable(ctx)
	}
	p.clearMailbox(ctx)
}
