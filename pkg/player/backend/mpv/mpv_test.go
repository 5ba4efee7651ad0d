package mpv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dexterlb/mpvipc"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

type fakeConn struct {
	locker     sync.Mutex
	calls      []string
	properties map[string]any
	events     chan *mpvipc.Event
	stop       chan struct{}
	closed     bool
}

var _ Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{
		properties: map[string]any{},
		events:     make(chan *mpvipc.Event),
	}
}

func (c *fakeConn) Call(arguments ...any) (any, error) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.calls = append(c.calls, strings.TrimSuffix(fmt.Sprintln(arguments...), "\n"))
	return nil, nil
}

func (c *fakeConn) Set(property string, value any) error {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.calls = append(c.calls, fmt.Sprintf("set %s=%v", property, value))
	c.properties[property] = value
	return nil
}

func (c *fakeConn) Get(property string) (any, error) {
	c.locker.Lock()
	defer c.locker.Unlock()
	v, ok := c.properties[property]
	if !ok {
		return nil, fmt.Errorf("property unavailable")
	}
	return v, nil
}

func (c *fakeConn) NewEventListener() (chan *mpvipc.Event, chan struct{}) {
	c.stop = make(chan struct{})
	return c.events, c.stop
}

func (c *fakeConn) Close() error {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.closed = true
	close(c.events)
	return nil
}

func (c *fakeConn) Calls() []string {
	c.locker.Lock()
	defer c.locker.Unlock()
	calls := c.calls
	c.calls = nil
	return calls
}

func newTestMPV(t *testing.T) (*MPV, *fakeConn) {
	ctx := context.Background()
	conn := newFakeConn()
	p := newMPV(types.Options{}.Config(ctx), conn)
	require.NoError(t, p.init(ctx))
	t.Cleanup(func() { _ = p.Close(ctx) })
	calls := conn.Calls()
	require.Len(t, calls, len(observedProperties)+1)
	require.Equal(t, "set pause=true", calls[len(calls)-1])
	return p, conn
}

func TestMPVCommands(t *testing.T) {
	ctx := context.Background()
	p, conn := newTestMPV(t)

	require.Error(t, p.Play(ctx), "no media")
	require.NoError(t, p.SetMedia(ctx, "/tmp/a.mkv"))
	require.NoError(t, p.Play(ctx))
	require.NoError(t, p.Play(ctx))
	require.NoError(t, p.SetPause(ctx, true))
	require.NoError(t, p.TogglePause(ctx))
	require.NoError(t, p.SetTime(ctx, 1500*time.Millisecond))
	require.NoError(t, p.SetSubtitleTrack(ctx, -1))
	require.NoError(t, p.SetSubtitleFile(ctx, "a.srt"))
	require.NoError(t, p.SetAudioTrack(ctx, 2))
	require.NoError(t, p.SetChapter(ctx, 3))
	require.NoError(t, p.SetTitle(ctx, 1))
	require.NoError(t, p.SetAspectRatio(ctx, ""))
	require.NoError(t, p.SetAdjustFloat(ctx, types.AdjustBrightness, 1.5))
	require.NoError(t, p.SetAdjustInt(ctx, types.AdjustEnable, 1))
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Play(ctx))

	require.Equal(t, []string{
		"loadfile /tmp/a.mkv replace",
		"set pause=false",
		"set pause=false",
		"set pause=true",
		"cycle pause",
		"seek 1.5 absolute",
		"set sid=no",
		"sub-add a.srt select",
		"set aid=2",
		"set chapter=3",
		"set edition=1",
		"set video-aspect-override=-1",
		"set brightness=50",
		"stop",
		"loadfile /tmp/a.mkv replace",
		"set pause=false",
	}, conn.Calls())

	conn.properties["time-pos"] = 2.5
	conn.properties["seekable"] = true
	conn.properties["vo-configured"] = true
	pos, err := p.GetTime(ctx)
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, pos)
	require.True(t, p.IsSeekable(ctx))
	require.Equal(t, 1, p.VideoOutputCount(ctx))

	require.False(t, p.Capabilities().NativeBufferingCompleteTransition)
}

func TestMPVEvents(t *testing.T) {
	ctx := context.Background()
	p, conn := newTestMPV(t)

	got := make(chan types.Event, 10)
	_, err := p.Subscribe(ctx, types.SubscribedEventKinds(), func(ev types.Event) {
		got <- ev
	})
	require.NoError(t, err)

	conn.events <- &mpvipc.Event{Name: "property-change", ID: 1, Data: 3.0}
	ev := <-got
	require.Equal(t, types.EventKindTimeChanged, ev.Kind)
	require.Equal(t, 3*time.Second, ev.Time)

	conn.events <- &mpvipc.Event{Name: "end-file", Reason: "eof"}
	require.Equal(t, types.EventKindEndReached, (<-got).Kind)
}

func TestTranslateEvent(t *testing.T) {
	ctx := context.Background()
	kinds := func(evs []types.Event) []types.EventKind {
		var r []types.EventKind
		for _, ev := range evs {
			r = append(r, ev.Kind)
		}
		return r
	}

	require.Equal(t, []types.EventKind{types.EventKindMediaChanged, types.EventKindOpening},
		kinds(translateEvent(ctx, &mpvipc.Event{Name: "start-file"})))
	require.Equal(t, []types.EventKind{types.EventKindStopped},
		kinds(translateEvent(ctx, &mpvipc.Event{Name: "end-file", Reason: "stop"})))
	require.Equal(t, []types.EventKind{types.EventKindEncounteredError},
		kinds(translateEvent(ctx, &mpvipc.Event{Name: "end-file", Reason: "error"})))
	require.Empty(t, translateEvent(ctx, &mpvipc.Event{Name: "audio-reconfig"}))

	evs := translatePropertyChange(ctx, "cache-buffering-state", 40.0)
	require.Equal(t, []types.Event{{Kind: types.EventKindBuffering, Cache: 40}}, evs)

	evs = translatePropertyChange(ctx, "pause", true)
	require.Equal(t, types.EventKindPaused, evs[0].Kind)
	evs = translatePropertyChange(ctx, "pause", false)
	require.Equal(t, types.EventKindPlaying, evs[0].Kind)

	evs = translatePropertyChange(ctx, "video-params", map[string]any{"w": 1920.0, "h": 1080.0})
	require.Equal(t, []types.Event{{Kind: types.EventKindVideoSizeChanged, Width: 1920, Height: 1080}}, evs)

	evs = translatePropertyChange(ctx, "duration", "90")
	require.Equal(t, 90*time.Second, evs[0].Length)

	require.Empty(t, translatePropertyChange(ctx, "time-pos", nil))
	require.Empty(t, translatePropertyChange(ctx, "time-pos", []int{1}))
	require.Empty(t, translatePropertyChange(ctx, "paused-for-cache", false))
	require.Empty(t, translatePropertyChange(ctx, "", 1.0))
}

func TestAdjustProperty(t *testing.T) {
	for _, tc := range []struct {
		adjust   types.Adjust
		value    float64
		property string
		expected int
		ok       bool
	}{
		{types.AdjustBrightness, 1, "brightness", 0, true},
		{types.AdjustBrightness, 0, "brightness", -100, true},
		{types.AdjustContrast, 2, "contrast", 100, true},
		{types.AdjustSaturation, 3, "saturation", 100, true},
		{types.AdjustHue, 0, "hue", 0, true},
		{types.AdjustHue, 90, "hue", 50, true},
		{types.AdjustHue, 270, "hue", -50, true},
		{types.AdjustEnable, 1, "", 0, false},
	} {
		t.Run(fmt.Sprintf("%s_%v", tc.adjust, tc.value), func(t *testing.T) {
			property, v, ok := adjustProperty(tc.adjust, tc.value)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.property, property)
			require.Equal(t, tc.expected, v)
		})
	}
}
