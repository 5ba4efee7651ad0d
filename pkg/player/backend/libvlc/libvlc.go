//go:build with_libvlc
// +build with_libvlc

package libvlc

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"sync/atomic"
	"time"

	vlc "github.com/adrg/libvlc-go/v3"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/playercore/pkg/player/backend/subscription"
	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

const Supported = true

type library struct{}

func (library) Init(ctx context.Context, cfg types.Config) error {
	args := []string{"--no-video-title-show"}
	if cfg.Title != "" {
		args = append(args, fmt.Sprintf("--video-title=%s", cfg.Title))
	}
	logger.Debugf(ctx, "vlc.Init(%v)", args)
	return vlc.Init(args...)
}

func (library) Release(ctx context.Context) error {
	logger.Debugf(ctx, "vlc.Release()")
	return vlc.Release()
}

// NewContext returns the process-wide libvlc context.
func NewContext(opts ...types.Option) *engine.Context {
	return engine.NewContext(types.BackendLibVLC, library{}, func(ctx context.Context, cfg types.Config) (types.Engine, error) {
		return New(ctx, cfg)
	}, opts...)
}

var nativeEvents = map[vlc.Event]types.EventKind{
	vlc.MediaPlayerMediaChanged:     types.EventKindMediaChanged,
	vlc.MediaPlayerNothingSpecial:   types.EventKindNothingSpecial,
	vlc.MediaPlayerOpening:          types.EventKindOpening,
	vlc.MediaPlayerBuffering:        types.EventKindBuffering,
	vlc.MediaPlayerPlaying:          types.EventKindPlaying,
	vlc.MediaPlayerPaused:           types.EventKindPaused,
	vlc.MediaPlayerStopped:          types.EventKindStopped,
	vlc.MediaPlayerForward:          types.EventKindForward,
	vlc.MediaPlayerBackward:         types.EventKindBackward,
	vlc.MediaPlayerEndReached:       types.EventKindEndReached,
	vlc.MediaPlayerEncounteredError: types.EventKindEncounteredError,
	vlc.MediaPlayerTimeChanged:      types.EventKindTimeChanged,
	vlc.MediaPlayerPositionChanged:  types.EventKindPositionChanged,
	vlc.MediaPlayerSeekableChanged:  types.EventKindSeekableChanged,
	vlc.MediaPlayerPausableChanged:  types.EventKindPausableChanged,
	vlc.MediaPlayerTitleChanged:     types.EventKindTitleChanged,
	vlc.MediaPlayerSnapshotTaken:    types.EventKindSnapshotTaken,
	vlc.MediaPlayerLengthChanged:    types.EventKindLengthChanged,
	vlc.MediaPlayerVout:             types.EventKindVideoSizeChanged,
}

type LibVLC struct {
	locker       xsync.Mutex
	player       *vlc.Player
	media        *vlc.Media
	eventManager *vlc.EventManager
	eventIDs     []vlc.EventID
	subscribers  subscription.Set
	closed       atomic.Bool
}

var (
	_ types.Engine        = (*LibVLC)(nil)
	_ types.SurfaceEngine = (*LibVLC)(nil)
	_ videoAdjuster       = (*vlc.Player)(nil)
)

// New creates a player; the library must be initialized (see NewContext).
func New(ctx context.Context, cfg types.Config) (_ *LibVLC, _err error) {
	logger.Debugf(ctx, "New")
	defer func() { logger.Debugf(ctx, "/New: %v", _err) }()

	player, err := vlc.NewPlayer()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a VLC player: %w", err)
	}

	manager, err := player.EventManager()
	if err != nil {
		_ = player.Release()
		return nil, fmt.Errorf("unable to initialize a VLC event manager: %w", err)
	}

	p := &LibVLC{
		player:       player,
		eventManager: manager,
	}
	for nativeEvent, kind := range nativeEvents {
		kind := kind
		eventID, err := manager.Attach(nativeEvent, func(vlc.Event, interface{}) {
			p.onNativeEvent(kind)
		}, nil)
		if err != nil {
			_ = p.Close(ctx)
			return nil, fmt.Errorf("unable to attach the '%s' event handler: %w", kind, err)
		}
		p.eventIDs = append(p.eventIDs, eventID)
	}

	if cfg.WindowHandle != 0 {
		if err := p.SetWindow(ctx, cfg.WindowHandle); err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
	}
	return p, nil
}

// onNativeEvent is called from libvlc threads. libvlc events carry their
// payload in a union not exposed by the bindings, so the payload is queried.
func (p *LibVLC) onNativeEvent(kind types.EventKind) {
	if p.closed.Load() {
		return
	}
	ev := types.Event{Kind: kind}
	switch kind {
	case types.EventKindTimeChanged:
		ts, err := p.player.MediaTime()
		if err != nil {
			return
		}
		ev.Time = time.Duration(ts) * time.Millisecond
	case types.EventKindLengthChanged:
		ts, err := p.player.MediaLength()
		if err != nil {
			return
		}
		ev.Length = time.Duration(ts) * time.Millisecond
	case types.EventKindSeekableChanged:
		ev.Seekable = p.player.IsSeekable()
	case types.EventKindVideoSizeChanged:
		width, height, err := p.player.VideoDimensions()
		if err != nil {
			return
		}
		ev.Width, ev.Height = int(width), int(height)
	case types.EventKindBuffering:
		ev.Cache = 0
		if state, err := p.player.MediaState(); err == nil && state == vlc.MediaPlaying {
			ev.Cache = 100
		}
	}
	p.subscribers.Emit(ev)
}

func (p *LibVLC) Capabilities() types.Capabilities {
	return types.Capabilities{
		NativeBufferingCompleteTransition: true,
	}
}

func (p *LibVLC) Subscribe(
	ctx context.Context,
	kinds []types.EventKind,
	callback types.EventCallback,
) (context.CancelFunc, error) {
	if p.closed.Load() {
		return nil, types.ErrClosed
	}
	return p.subscribers.Subscribe(kinds, callback), nil
}

func (p *LibVLC) SetMedia(ctx context.Context, source string) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		var (
			media *vlc.Media
			err   error
		)
		if urlParsed, _err := url.Parse(source); _err == nil && urlParsed.Scheme != "" && len(urlParsed.Scheme) > 1 {
			media, err = p.player.LoadMediaFromURL(source)
		} else {
			media, err = p.player.LoadMediaFromPath(source)
		}
		if err != nil {
			return fmt.Errorf("unable to open '%s': %w", source, err)
		}
		if p.media != nil {
			if err := p.media.Release(); err != nil {
				logger.Errorf(ctx, "unable to release the previous media: %v", err)
			}
		}
		p.media = media
		return nil
	})
}

func (p *LibVLC) Play(ctx context.Context) error {
	return p.player.Play()
}

func (p *LibVLC) SetPause(ctx context.Context, pause bool) error {
	return p.player.SetPause(pause)
}

func (p *LibVLC) TogglePause(ctx context.Context) error {
	return p.player.TogglePause()
}

func (p *LibVLC) Stop(ctx context.Context) error {
	return p.player.Stop()
}

func (p *LibVLC) GetTime(ctx context.Context) (time.Duration, error) {
	ts, err := p.player.MediaTime()
	if err != nil {
		return 0, fmt.Errorf("unable to get current position: %w", err)
	}
	return time.Duration(ts) * time.Millisecond, nil
}

func (p *LibVLC) SetTime(ctx context.Context, t time.Duration) error {
	return p.player.SetMediaTime(int(t.Milliseconds()))
}

func (p *LibVLC) IsSeekable(ctx context.Context) bool {
	return p.player.IsSeekable()
}

func (p *LibVLC) VideoOutputCount(ctx context.Context) int {
	return p.player.VideoOutputCount()
}

func (p *LibVLC) SetSubtitleTrack(ctx context.Context, index int) error {
	return p.player.SetSubtitleTrack(index)
}

func (p *LibVLC) SetSubtitleFile(ctx context.Context, path string) error {
	return types.ErrNotSupported
}

func (p *LibVLC) SetTitle(ctx context.Context, index int) error {
	return p.player.SetTitle(index)
}

func (p *LibVLC) SetChapter(ctx context.Context, index int) error {
	return p.player.SetChapter(index)
}

func (p *LibVLC) SetAudioTrack(ctx context.Context, index int) error {
	return p.player.SetAudioTrack(index)
}

func (p *LibVLC) SetAdjustInt(ctx context.Context, adjust types.Adjust, value int) error {
	return setAdjust(p.player, adjust, float64(value))
}

func (p *LibVLC) SetAdjustFloat(ctx context.Context, adjust types.Adjust, value float64) error {
	return setAdjust(p.player, adjust, value)
}

func (p *LibVLC) SetAspectRatio(ctx context.Context, aspectRatio string) error {
	return p.player.SetAspectRatio(aspectRatio)
}

func (p *LibVLC) SetWindow(ctx context.Context, handle uintptr) error {
	switch runtime.GOOS {
	case "windows":
		return p.player.SetHWND(handle)
	case "darwin":
		return p.player.SetNSObject(handle)
	default:
		return p.player.SetXWindow(uint32(handle))
	}
}

func (p *LibVLC) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.subscribers.Clear()
	if len(p.eventIDs) > 0 {
		p.eventManager.Detach(p.eventIDs...)
		p.eventIDs = nil
	}

	var mErr *multierror.Error
	mErr = multierror.Append(mErr, p.player.Stop())
	p.locker.Do(ctx, func() {
		if p.media != nil {
			mErr = multierror.Append(mErr, p.media.Release())
			p.media = nil
		}
	})
	mErr = multierror.Append(mErr, p.player.Release())
	return mErr.ErrorOrNil()
}
