package framepipeline

import (
	"context"
	"sync/atomic"

	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

// NativeSurfaceSink is the sink of the native-surface mode: the engine draws
// into a window on its own, so there is nothing to lock.
type NativeSurfaceSink struct{}

var _ types.RenderSink = NativeSurfaceSink{}

func (NativeSurfaceSink) Lock(ctx context.Context) []byte { return nil }
func (NativeSurfaceSink) Unlock(ctx context.Context)      {}

// CustomBufferSink owns the producer buffer the engine renders into.
//
// Lock acquires the critical section and Unlock releases it, so a single
// frame write is never concurrent with a reconfiguration or with the copy
// made by Unlock.
type CustomBufferSink struct {
	locker    xsync.Mutex
	buffer    []byte
	width     int
	height    int
	suspended bool
	publish   func(ctx context.Context, frame types.Frame)

	seq     uint64
	skipped atomic.Uint64
}

var _ types.RenderSink = (*CustomBufferSink)(nil)

func newCustomBufferSink(
	publish func(ctx context.Context, frame types.Frame),
) *CustomBufferSink {
	return &CustomBufferSink{
		publish:   publish,
		suspended: true,
	}
}

// Lock is called by the engine render thread before writing a frame. A nil
// result means the frame is skipped.
func (s *CustomBufferSink) Lock(ctx context.Context) []byte {
	s.locker.ManualLock(xsync.WithNoLogging(ctx, true))
	if s.suspended || s.buffer == nil {
		s.skipped.Add(1)
		return nil
	}
	return s.buffer
}

// Unlock is called by the engine render thread after the frame is written.
func (s *CustomBufferSink) Unlock(ctx context.Context) {
	defer s.locker.ManualUnlock(xsync.WithNoLogging(ctx, true))
	if s.suspended || s.buffer == nil {
		return
	}
	s.seq++
	frame := types.Frame{
		Data:        make([]byte, len(s.buffer)),
		Width:       s.width,
		Height:      s.height,
		PixelFormat: types.PixelFormatRV32,
		Seq:         s.seq,
	}
	copy(frame.Data, s.buffer)
	s.publish(ctx, frame)
}

// swap installs a new producer buffer and leaves the sink suspended until
// resume is called.
func (s *CustomBufferSink) swap(
	ctx context.Context,
	buffer []byte,
	width, height int,
) {
	s.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		s.buffer = buffer
		s.width, s.height = width, height
		s.suspended = true
	})
}

func (s *CustomBufferSink) resume(ctx context.Context) {
	s.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		s.suspended = false
	})
}

// disable drops the producer buffer; all further frames are skipped.
func (s *CustomBufferSink) disable(ctx context.Context) {
	s.swap(ctx, nil, 0, 0)
}

// Skipped returns the amount of Lock calls that returned no storage.
func (s *CustomBufferSink) Skipped() uint64 {
	return s.skipped.Load()
}
