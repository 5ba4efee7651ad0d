package types

import (
	"context"
	"time"
)

// Capabilities describes the feature level of an engine instance.
type Capabilities struct {
	// NativeBufferingCompleteTransition is true if the engine raises an explicit
	// "playing" event itself once its cache is filled to 100%.
	NativeBufferingCompleteTransition bool

	// CustomRender is true if the engine implements VideoCallbacksEngine.
	CustomRender bool
}

type Adjust int

const (
	AdjustUndefined Adjust = iota
	AdjustEnable
	AdjustBrightness
	AdjustContrast
	AdjustHue
	AdjustSaturation
)

func (a Adjust) String() string {
	switch a {
	case AdjustEnable:
		return "enable"
	case AdjustBrightness:
		return "brightness"
	case AdjustContrast:
		return "contrast"
	case AdjustHue:
		return "hue"
	case AdjustSaturation:
		return "saturation"
	default:
		return "undefined"
	}
}

// Engine is the native playback backend. Commands are issued only from the
// control loop; the callback passed to Subscribe is invoked from arbitrary
// engine threads.
type Engine interface {
	Capabilities() Capabilities

	Subscribe(ctx context.Context, kinds []EventKind, callback EventCallback) (context.CancelFunc, error)

	SetMedia(ctx context.Context, source string) error
	Play(ctx context.Context) error
	SetPause(ctx context.Context, pause bool) error
	TogglePause(ctx context.Context) error
	Stop(ctx context.Context) error

	GetTime(ctx context.Context) (time.Duration, error)
	SetTime(ctx context.Context, t time.Duration) error
	IsSeekable(ctx context.Context) bool
	VideoOutputCount(ctx context.Context) int

	SetSubtitleTrack(ctx context.Context, index int) error
	SetSubtitleFile(ctx context.Context, path string) error
	SetTitle(ctx context.Context, index int) error
	SetChapter(ctx context.Context, index int) error
	SetAudioTrack(ctx context.Context, index int) error

	SetAdjustInt(ctx context.Context, adjust Adjust, value int) error
	SetAdjustFloat(ctx context.Context, adjust Adjust, value float64) error
	SetAspectRatio(ctx context.Context, aspectRatio string) error

	Close(ctx context.Context) error
}

// VideoCallbacksEngine is implemented by engines able to render into a
// caller-provided buffer.
type VideoCallbacksEngine interface {
	SetVideoFormat(ctx context.Context, format PixelFormat, width, height, pitch int) error
	SetVideoCallbacks(ctx context.Context, sink RenderSink) error
}

// SurfaceEngine is implemented by engines able to render into a native window.
type SurfaceEngine interface {
	SetWindow(ctx context.Context, handle uintptr) error
}

// RenderSink receives frames from the engine's render thread.
//
// The engine calls Lock right before writing a frame into the returned
// storage, and Unlock right after the write is complete. A nil storage means
// the frame must be skipped; Unlock is still called.
type RenderSink interface {
	Lock(ctx context.Context) []byte
	Unlock(ctx context.Context)
}
