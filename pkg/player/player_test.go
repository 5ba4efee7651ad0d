package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/eventbus"
	"github.com/xaionaro-go/playercore/pkg/clock"
	"github.com/xaionaro-go/playercore/pkg/player/backend/dummy"
	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/framepipeline"
	"github.com/xaionaro-go/playercore/pkg/player/framing"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// notifications collects the notifications per kind: the order is only
// guaranteed within one kind.
type notifications struct {
	locker sync.Mutex
	log    map[string][]string
	frames []types.Frame
}

func (n *notifications) add(kind, s string) {
	n.locker.Lock()
	defer n.locker.Unlock()
	if n.log == nil {
		n.log = map[string][]string{}
	}
	n.log[kind] = append(n.log[kind], s)
}

func (n *notifications) Log(kind string) []string {
	n.locker.Lock()
	defer n.locker.Unlock()
	return append([]string(nil), n.log[kind]...)
}

func (n *notifications) Frames() []types.Frame {
	n.locker.Lock()
	defer n.locker.Unlock()
	return append([]types.Frame(nil), n.frames...)
}

func (n *notifications) waitLog(t *testing.T, kind string, expected ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(n.Log(kind)) >= len(expected)
	}, time.Second, time.Millisecond, "%s: %v", kind, n.Log(kind))
	require.Equal(t, expected, n.Log(kind), kind)
}

func (n *notifications) subscribe(t *testing.T, p *MediaPlayer) {
	_, err := p.OnStateChanged(func(ctx context.Context, state types.State) {
		n.add("state", state.String())
	})
	require.NoError(t, err)
	_, err = p.OnTimeChanged(func(ctx context.Context, ts time.Duration) {
		n.add("time", fmt.Sprint(ts.Milliseconds()))
	})
	require.NoError(t, err)
	_, err = p.OnLengthChanged(func(ctx context.Context, length time.Duration) {
		n.add("length", fmt.Sprint(length.Milliseconds()))
	})
	require.NoError(t, err)
	_, err = p.OnSeekableChanged(func(ctx context.Context, seekable bool) {
		n.add("seekable", fmt.Sprint(seekable))
	})
	require.NoError(t, err)
	_, err = p.OnVideoSizeChanged(func(ctx context.Context, width, height int) {
		n.add("size", fmt.Sprintf("%dx%d", width, height))
	})
	require.NoError(t, err)
	_, err = p.OnFramePublished(func(ctx context.Context, frame types.Frame) {
		n.locker.Lock()
		defer n.locker.Unlock()
		n.frames = append(n.frames, frame)
	})
	require.NoError(t, err)
}

func newTestPlayer(
	t *testing.T,
	ctx context.Context,
	dummyOpts dummy.Options,
	opts ...types.Option,
) (*MediaPlayer, *dummy.Engine, *notifications) {
	var e *dummy.Engine
	engineCtx := engine.NewContext(types.BackendDummy, nil, func(ctx context.Context, cfg types.Config) (types.Engine, error) {
		e = dummy.New(dummyOpts...)
		return e, nil
	})
	p, err := New(ctx, engineCtx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, p.Close(context.Background()))
		require.True(t, e.IsClosed())
		require.Zero(t, engineCtx.RefCount(context.Background()))
	})

	n := &notifications{}
	n.subscribe(t, p)
	return p, e, n
}

// waitLoop returns once everything posted to the control loop so far is
// processed.
func waitLoop(ctx context.Context, p *MediaPlayer) {
	p.State(ctx)
}

func TestMediaPlayerPlay(t *testing.T) {
	ctx := context.Background()
	p, e, n := newTestPlayer(t, ctx, nil)

	require.NoError(t, p.SetMedia(ctx, "file.mkv"))
	require.Equal(t, "file.mkv", p.Media(ctx))
	require.NoError(t, p.Play(ctx))

	go func() {
		e.Emit(types.Event{Kind: types.EventKindOpening})
		e.Emit(types.Event{Kind: types.EventKindBuffering, Cache: 40})
		e.Emit(types.Event{Kind: types.EventKindBuffering, Cache: 100})
		e.Emit(types.Event{Kind: types.EventKindTimeChanged, Time: 0})
	}()

	n.waitLog(t, "state", "opening", "buffering", "playing")
	n.waitLog(t, "time", "0")
	require.Equal(t, types.StatePlaying, p.State(ctx))
	require.Equal(t, []string{"set-media", "play"}, e.CommandNames())
}

func TestMediaPlayerSeekDrag(t *testing.T) {
	mock := clock.NewMock()
	ctx := clock.CtxWithClock(context.Background(), mock)
	p, e, n := newTestPlayer(t, ctx, nil)

	require.NoError(t, p.SetMedia(ctx, "file.mkv"))
	require.NoError(t, p.Play(ctx))
	e.Emit(types.Event{Kind: types.EventKindTimeChanged, Time: 500 * time.Millisecond})
	n.waitLog(t, "time", "500")
	e.ResetCommands()

	require.NoError(t, p.RequestSeek(ctx, 1000*time.Millisecond))
	mock.Add(100 * time.Millisecond)
	require.NoError(t, p.RequestSeek(ctx, 2000*time.Millisecond))
	mock.Add(100 * time.Millisecond)
	require.NoError(t, p.RequestSeek(ctx, 3000*time.Millisecond))

	// engine ticks during the coalescing window
	e.Emit(types.Event{Kind: types.EventKindTimeChanged, Time: 1000 * time.Millisecond})
	e.Emit(types.Event{Kind: types.EventKindTimeChanged, Time: 1040 * time.Millisecond})
	waitLoop(ctx, p)

	mock.Add(800 * time.Millisecond)
	require.Eventually(t, func() bool {
		return len(e.Commands()) == 2
	}, time.Second, time.Millisecond)
	cmds := e.Commands()
	require.Equal(t, "set-time", cmds[0].Name)
	require.Equal(t, []any{1000 * time.Millisecond}, cmds[0].Args)
	require.Equal(t, "set-time", cmds[1].Name)
	require.Equal(t, []any{3000 * time.Millisecond}, cmds[1].Args)

	e.Emit(types.Event{Kind: types.EventKindTimeChanged, Time: 3000 * time.Millisecond})
	// the suppressed ticks would have been delivered before this one
	n.waitLog(t, "time", "500", "3000")

	mock.Add(time.Second)
	mock.Add(time.Second)
	waitLoop(ctx, p)
	require.Len(t, e.Commands(), 2)
}

func TestMediaPlayerCustomRender(t *testing.T) {
	ctx := context.Background()
	p, e, n := newTestPlayer(t, ctx, nil, types.OptionCustomRender(true))
	require.Equal(t, framepipeline.ModeCustomRender, p.RenderMode(ctx))

	require.True(t, e.RenderFrame(ctx, nil))
	require.Eventually(t, func() bool { return len(n.Frames()) == 1 }, time.Second, time.Millisecond)
	frame := n.Frames()[0]
	require.Equal(t, 640, frame.Width)
	require.Equal(t, 480, frame.Height)
	require.Len(t, frame.Data, 640*480*4)

	e.Emit(types.Event{Kind: types.EventKindVideoSizeChanged, Width: 320, Height: 240})
	waitLoop(ctx, p)
	w, h := p.VideoSize(ctx)
	require.Equal(t, 320, w)
	require.Equal(t, 240, h)
	n.waitLog(t, "size", "320x240")

	require.True(t, e.RenderFrame(ctx, nil))
	require.Eventually(t, func() bool { return len(n.Frames()) == 2 }, time.Second, time.Millisecond)
	frame = n.Frames()[1]
	require.True(t, frame.IsConsistent())
	require.Equal(t, 320, frame.Width)
	require.Len(t, frame.Data, 320*240*4)
	require.Equal(t, uint64(2), p.FrameStats().Delivered)
}

func TestMediaPlayerNativeSurface(t *testing.T) {
	ctx := context.Background()
	p, e, n := newTestPlayer(t, ctx, nil, types.OptionWindowHandle(0x42))
	require.Equal(t, framepipeline.ModeNativeSurface, p.RenderMode(ctx))
	require.Equal(t, []string{"set-window"}, e.CommandNames())
	require.False(t, e.RenderFrame(ctx, nil))

	e.Emit(types.Event{Kind: types.EventKindVideoSizeChanged, Width: 1280, Height: 720})
	waitLoop(ctx, p)
	w, h := p.VideoSize(ctx)
	require.Equal(t, 1280, w)
	require.Equal(t, 720, h)
	require.Empty(t, n.Frames())
}

func TestMediaPlayerAdjustments(t *testing.T) {
	ctx := context.Background()
	p, e, _ := newTestPlayer(t, ctx, dummy.Options{dummy.OptionVideoOutputs(0)})

	require.NoError(t, p.SetBrightness(ctx, 0.5))
	require.NoError(t, p.SetHue(ctx, 0.25))
	require.Equal(t, 0.5, p.Brightness(ctx))
	require.Equal(t, 0.25, p.Hue(ctx))
	require.Empty(t, e.Commands(), "no video output yet")

	e.SetVideoOutputCount(1)
	e.Emit(types.Event{Kind: types.EventKindVideoSizeChanged, Width: 640, Height: 360})
	waitLoop(ctx, p)

	enabled, ok := e.Adjust(types.AdjustEnable)
	require.True(t, ok)
	require.Equal(t, 1.0, enabled)
	brightness, ok := e.Adjust(types.AdjustBrightness)
	require.True(t, ok)
	require.InDelta(t, 1.5, brightness, 1e-9)
	hue, ok := e.Adjust(types.AdjustHue)
	require.True(t, ok)
	require.Equal(t, 90.0, hue)

	e.ResetCommands()
	require.NoError(t, p.SetContrast(ctx, -1))
	require.NoError(t, p.SetSaturation(ctx, 1))
	require.Equal(t, []string{"set-adjust-float", "set-adjust-float"}, e.CommandNames())
	contrast, _ := e.Adjust(types.AdjustContrast)
	require.Equal(t, 0.0, contrast)
	saturation, _ := e.Adjust(types.AdjustSaturation)
	require.Equal(t, 3.0, saturation)
	require.Equal(t, -1.0, p.Contrast(ctx))
	require.Equal(t, 1.0, p.Saturation(ctx))
}

func TestMediaPlayerCommands(t *testing.T) {
	ctx := context.Background()
	p, e, n := newTestPlayer(t, ctx, nil)

	require.NoError(t, p.SetMedia(ctx, "file.mkv"))
	require.NoError(t, p.Play(ctx))
	require.NoError(t, p.Pause(ctx))
	require.NoError(t, p.Resume(ctx))
	require.NoError(t, p.TogglePause(ctx))
	require.NoError(t, p.SetTime(ctx, 5*time.Second))
	require.Equal(t, 5*time.Second, p.Time(ctx))
	require.True(t, p.IsSeekable(ctx))
	require.True(t, p.HasVideoOutput(ctx))
	require.NoError(t, p.SetSubtitle(ctx, 1))
	require.NoError(t, p.SetSubtitleFile(ctx, "file.srt"))
	require.NoError(t, p.SetTitle(ctx, 0))
	require.NoError(t, p.SetChapter(ctx, 2))
	require.NoError(t, p.SetAudioTrack(ctx, 1))
	require.NoError(t, p.SetAspectRatio(ctx, framing.AspectRatio16x9))
	require.Equal(t, framing.AspectRatio16x9, p.AspectRatio(ctx))
	require.NoError(t, p.Stop(ctx))
	require.Error(t, p.RequestSeek(ctx, -time.Second))

	e.SetCommandError("set-audio-track", fmt.Errorf("no such track"))
	require.Error(t, p.SetAudioTrack(ctx, 7))
	e.SetCommandError("set-aspect-ratio", fmt.Errorf("unsupported"))
	require.Error(t, p.SetAspectRatio(ctx, framing.AspectRatio4x3))
	require.Equal(t, framing.AspectRatio16x9, p.AspectRatio(ctx), "the selection must be kept on failure")

	e.Emit(types.Event{Kind: types.EventKindLengthChanged, Length: time.Minute})
	e.Emit(types.Event{Kind: types.EventKindSeekableChanged, Seekable: true})
	e.Emit(types.Event{Kind: types.EventKindStopped})
	waitLoop(ctx, p)
	require.Equal(t, time.Minute, p.Length(ctx))
	n.waitLog(t, "length", "60000")
	n.waitLog(t, "seekable", "true")
	n.waitLog(t, "state", "stopped")
}

func TestMediaPlayerHandlerCallsPlayer(t *testing.T) {
	ctx := context.Background()
	p, e, _ := newTestPlayer(t, ctx, nil)

	_, err := p.OnStateChanged(func(ctx context.Context, state types.State) {
		if state != types.StateEnded {
			return
		}
		if err := p.Stop(ctx); err != nil {
			t.Errorf("unable to stop from a handler: %v", err)
		}
	})
	require.NoError(t, err)

	e.Emit(types.Event{Kind: types.EventKindEndReached})
	require.Eventually(t, func() bool {
		return len(e.CommandNames()) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, []string{"stop"}, e.CommandNames())
}

func TestMediaPlayerNotificationBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, e, _ := newTestPlayer(t, ctx, nil)

	sub := eventbus.Subscribe[StateChanged](ctx, p.bus, eventbus.OptionQueueSize(10))
	defer sub.Finish(ctx)

	var (
		locker sync.Mutex
		states []types.State
	)
	unsubscribe, err := p.OnStateChanged(func(ctx context.Context, state types.State) {
		locker.Lock()
		defer locker.Unlock()
		states = append(states, state)
	})
	require.NoError(t, err)

	e.Emit(types.Event{Kind: types.EventKindOpening})
	select {
	case ev := <-sub.EventChan():
		require.Equal(t, StateChanged{State: types.StateOpening}, ev)
	case <-time.After(time.Second):
		t.Fatal("no state-changed event on the bus")
	}
	require.Eventually(t, func() bool {
		locker.Lock()
		defer locker.Unlock()
		return len(states) == 1
	}, time.Second, time.Millisecond)

	unsubscribe()
	e.Emit(types.Event{Kind: types.EventKindPlaying})
	select {
	case ev := <-sub.EventChan():
		require.Equal(t, StateChanged{State: types.StatePlaying}, ev)
	case <-time.After(time.Second):
		t.Fatal("no state-changed event on the bus")
	}
	waitLoop(ctx, p)
	locker.Lock()
	defer locker.Unlock()
	require.Equal(t, []types.State{types.StateOpening}, states)
}

func TestMediaPlayerSlowHandler(t *testing.T) {
	ctx := context.Background()
	p, e, n := newTestPlayer(t, ctx, nil)

	release := make(chan struct{})
	_, err := p.OnStateChanged(func(ctx context.Context, state types.State) {
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	require.NoError(t, err)

	for range 100 {
		e.Emit(types.Event{Kind: types.EventKindPaused})
		e.Emit(types.Event{Kind: types.EventKindPlaying})
	}
	require.NoError(t, p.SetMedia(ctx, "file.mkv"))
	require.Equal(t, types.StatePlaying, p.State(ctx))
	require.Eventually(t, func() bool {
		return len(n.Log("state")) == 200
	}, time.Second, time.Millisecond)
	close(release)
}

func TestMediaPlayerFramePerHandler(t *testing.T) {
	ctx := context.Background()
	p, e, _ := newTestPlayer(t, ctx, nil, types.OptionCustomRender(true))

	var (
		locker sync.Mutex
		frames [2][]types.Frame
	)
	for idx := range frames {
		_, err := p.OnFramePublished(func(ctx context.Context, frame types.Frame) {
			frame.Data[0] = byte(idx + 10)
			locker.Lock()
			defer locker.Unlock()
			frames[idx] = append(frames[idx], frame)
		})
		require.NoError(t, err)
	}

	require.True(t, e.RenderFrame(ctx, func(buf []byte, width, height, pitch int) {
		buf[0] = 1
	}))
	require.Eventually(t, func() bool {
		locker.Lock()
		defer locker.Unlock()
		return len(frames[0]) == 1 && len(frames[1]) == 1
	}, time.Second, time.Millisecond)

	locker.Lock()
	defer locker.Unlock()
	require.Equal(t, byte(10), frames[0][0].Data[0])
	require.Equal(t, byte(11), frames[1][0].Data[0])
	require.Equal(t, frames[0][0].Seq, frames[1][0].Seq)
}

func TestMediaPlayerClose(t *testing.T) {
	ctx := context.Background()
	var e *dummy.Engine
	engineCtx := engine.NewContext(types.BackendDummy, nil, func(ctx context.Context, cfg types.Config) (types.Engine, error) {
		e = dummy.New()
		return e, nil
	})
	p, err := New(ctx, engineCtx)
	require.NoError(t, err)
	require.Equal(t, 1, e.SubscriberCount())

	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Close(ctx))
	require.True(t, e.IsClosed())
	require.Zero(t, e.SubscriberCount())
	require.ErrorIs(t, p.Play(ctx), types.ErrClosed)
	require.Equal(t, types.StateNoState, p.State(ctx))
	e.Emit(types.Event{Kind: types.EventKindPlaying})
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := NewManager(types.OptionTitle("test"))
	require.Contains(t, m.SupportedBackends(), BackendDummy)

	p0, err := m.NewPlayer(ctx, BackendDummy)
	require.NoError(t, err)
	p1, err := m.NewPlayer(ctx, BackendDummy, types.OptionCustomRender(true))
	require.NoError(t, err)
	require.Equal(t, BackendDummy, p0.Backend())
	require.Equal(t, "test", p1.Config.Title)
	require.Equal(t, framepipeline.ModeCustomRender, p1.RenderMode(ctx))
	require.Equal(t, 2, m.Contexts[BackendDummy].RefCount(ctx))

	_, err = m.NewPlayer(ctx, Backend("unknown"))
	require.Error(t, err)

	require.NoError(t, m.Close(ctx))
	require.Zero(t, m.Contexts[BackendDummy].RefCount(ctx))
	require.ErrorIs(t, p0.Play(ctx), types.ErrClosed)
}
