// Package engine owns native engine instances and exposes their command
// surface to the player.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

// Handle exclusively owns a single engine instance. Commands are expected to
// be issued from the control loop only; nothing is retried on failure.
type Handle struct {
	context *Context
	engine  types.Engine
	closed  atomic.Bool
}

var _ types.Engine = (*Handle)(nil)

func newHandle(c *Context, engine types.Engine) *Handle {
	return &Handle{
		context: c,
		engine:  engine,
	}
}

func (h *Handle) Backend() types.Backend {
	return h.context.Backend
}

func (h *Handle) Capabilities() types.Capabilities {
	return h.engine.Capabilities()
}

// VideoCallbacks returns the custom-render surface of the engine, or nil.
func (h *Handle) VideoCallbacks() types.VideoCallbacksEngine {
	vc, ok := h.engine.(types.VideoCallbacksEngine)
	if !ok || !h.engine.Capabilities().CustomRender {
		return nil
	}
	return vc
}

func (h *Handle) Subscribe(
	ctx context.Context,
	kinds []types.EventKind,
	callback types.EventCallback,
) (context.CancelFunc, error) {
	if h.closed.Load() {
		return nil, types.ErrClosed
	}
	return h.engine.Subscribe(ctx, kinds, callback)
}

func (h *Handle) command(
	ctx context.Context,
	name string,
	fn func() error,
) (_err error) {
	logger.Debugf(ctx, "%s", name)
	defer func() { logger.Debugf(ctx, "/%s: %v", name, _err) }()
	if h.closed.Load() {
		return types.ErrCommand{Command: name, Err: types.ErrClosed}
	}
	if err := fn(); err != nil {
		return types.ErrCommand{Command: name, Err: err}
	}
	return nil
}

func (h *Handle) SetMedia(ctx context.Context, source string) error {
	if source == "" {
		return fmt.Errorf("empty media source")
	}
	return h.command(ctx, fmt.Sprintf("set-media '%s'", source), func() error {
		return h.engine.SetMedia(ctx, source)
	})
}

func (h *Handle) Play(ctx context.Context) error {
	return h.command(ctx, "play", func() error {
		return h.engine.Play(ctx)
	})
}

func (h *Handle) SetPause(ctx context.Context, pause bool) error {
	return h.command(ctx, fmt.Sprintf("set-pause %v", pause), func() error {
		return h.engine.SetPause(ctx, pause)
	})
}

func (h *Handle) Pause(ctx context.Context) error {
	return h.SetPause(ctx, true)
}

func (h *Handle) Resume(ctx context.Context) error {
	return h.SetPause(ctx, false)
}

func (h *Handle) TogglePause(ctx context.Context) error {
	return h.command(ctx, "toggle-pause", func() error {
		return h.engine.TogglePause(ctx)
	})
}

func (h *Handle) Stop(ctx context.Context) error {
	return h.command(ctx, "stop", func() error {
		return h.engine.Stop(ctx)
	})
}

func (h *Handle) GetTime(ctx context.Context) (time.Duration, error) {
	if h.closed.Load() {
		return 0, types.ErrClosed
	}
	return h.engine.GetTime(ctx)
}

// Time is GetTime that reports failures as zero.
func (h *Handle) Time(ctx context.Context) time.Duration {
	t, err := h.GetTime(ctx)
	if err != nil {
		logger.Debugf(ctx, "unable to get the current time: %v", err)
		return 0
	}
	return t
}

func (h *Handle) SetTime(ctx context.Context, t time.Duration) error {
	return h.command(ctx, fmt.Sprintf("set-time %v", t), func() error {
		if t < 0 {
			return fmt.Errorf("negative time")
		}
		return h.engine.SetTime(ctx, t)
	})
}

func (h *Handle) IsSeekable(ctx context.Context) bool {
	if h.closed.Load() {
		return false
	}
	return h.engine.IsSeekable(ctx)
}

func (h *Handle) VideoOutputCount(ctx context.Context) int {
	if h.closed.Load() {
		return 0
	}
	return h.engine.VideoOutputCount(ctx)
}

func (h *Handle) HasVideoOutput(ctx context.Context) bool {
	return h.VideoOutputCount(ctx) > 0
}

func (h *Handle) SetSubtitleTrack(ctx context.Context, index int) error {
	return h.command(ctx, fmt.Sprintf("set-subtitle %d", index), func() error {
		return h.engine.SetSubtitleTrack(ctx, index)
	})
}

func (h *Handle) SetSubtitleFile(ctx context.Context, path string) error {
	return h.command(ctx, fmt.Sprintf("set-subtitle-file '%s'", path), func() error {
		return h.engine.SetSubtitleFile(ctx, path)
	})
}

func (h *Handle) SetTitle(ctx context.Context, index int) error {
	return h.command(ctx, fmt.Sprintf("set-title %d", index), func() error {
		return h.engine.SetTitle(ctx, index)
	})
}

func (h *Handle) SetChapter(ctx context.Context, index int) error {
	return h.command(ctx, fmt.Sprintf("set-chapter %d", index), func() error {
		return h.engine.SetChapter(ctx, index)
	})
}

func (h *Handle) SetAudioTrack(ctx context.Context, index int) error {
	return h.command(ctx, fmt.Sprintf("set-audio-track %d", index), func() error {
		return h.engine.SetAudioTrack(ctx, index)
	})
}

func (h *Handle) SetAdjustInt(ctx context.Context, adjust types.Adjust, value int) error {
	return h.command(ctx, fmt.Sprintf("set-adjust %s=%d", adjust, value), func() error {
		return h.engine.SetAdjustInt(ctx, adjust, value)
	})
}

func (h *Handle) SetAdjustFloat(ctx context.Context, adjust types.Adjust, value float64) error {
	return h.command(ctx, fmt.Sprintf("set-adjust %s=%f", adjust, value), func() error {
		return h.engine.SetAdjustFloat(ctx, adjust, value)
	})
}

func (h *Handle) SetAspectRatio(ctx context.Context, aspectRatio string) error {
	return h.command(ctx, fmt.Sprintf("set-aspect-ratio '%s'", aspectRatio), func() error {
		return h.engine.SetAspectRatio(ctx, aspectRatio)
	})
}

// SetWindow makes the engine draw into the native window.
func (h *Handle) SetWindow(ctx context.Context, handle uintptr) error {
	return h.command(ctx, fmt.Sprintf("set-window %#x", handle), func() error {
		surface, ok := h.engine.(types.SurfaceEngine)
		if !ok {
			return types.ErrNotSupported
		}
		return surface.SetWindow(ctx, handle)
	})
}

// Close closes the engine instance and releases the Context reference.
func (h *Handle) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	var mErr *multierror.Error
	if err := h.engine.Close(ctx); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to close the engine: %w", err))
	}
	if err := h.context.Release(ctx); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	return mErr.ErrorOrNil()
}
