// Package mpv implements an engine on top of an mpv process controlled over
// its JSON IPC socket.
package mpv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"
	"github.com/dexterlb/mpvipc"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/player/backend/subscription"
	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/playercore/pkg/xpath"
	"github.com/xaionaro-go/xsync"
)

const (
	TimeoutMPVStart = 10 * time.Second
)

var mpvCount uint64

// Conn is the part of *mpvipc.Connection used by the engine.
type Conn interface {
	Call(arguments ...any) (any, error)
	Set(property string, value any) error
	Get(property string) (any, error)
	NewEventListener() (chan *mpvipc.Event, chan struct{})
	Close() error
}

var _ Conn = (*mpvipc.Connection)(nil)

type MPV struct {
	Config     types.Config
	SocketPath string
	Cmd        *exec.Cmd
	Conn       Conn

	locker        xsync.Mutex
	subscribers   subscription.Set
	media         string
	loadedMedia   string
	stopListening chan struct{}
	closed        atomic.Bool
}

var _ types.Engine = (*MPV)(nil)

// Factory returns an engine.Factory starting a new mpv process per engine.
func Factory() engine.Factory {
	return func(ctx context.Context, cfg types.Config) (types.Engine, error) {
		return New(ctx, cfg)
	}
}

func NewContext(opts ...types.Option) *engine.Context {
	return engine.NewContext(types.BackendMPV, nil, Factory(), opts...)
}

func New(
	ctx context.Context,
	cfg types.Config,
) (_ret *MPV, _err error) {
	logger.Debugf(ctx, "New")
	defer func() { logger.Debugf(ctx, "/New: %v", _err) }()

	pathToMPV := cfg.PathToMPV
	if pathToMPV == "" {
		pathToMPV = "mpv"
		switch runtime.GOOS {
		case "windows":
			pathToMPV += ".exe"
		}
	}
	pathToMPV, err := xpath.GetExecPath(pathToMPV)
	if err != nil {
		return nil, fmt.Errorf("unable to locate mpv: %w", err)
	}

	myPid := os.Getpid()
	mpvID := atomic.AddUint64(&mpvCount, 1)
	var socketPath string
	switch runtime.GOOS {
	case "windows":
		socketPath = `\\.\pipe\` + fmt.Sprintf("playercore-mpv-ipc-%d-%d", myPid, mpvID)
	default:
		socketPath = path.Join(os.TempDir(), fmt.Sprintf("playercore-mpv-ipc-%d-%d.sock", myPid, mpvID))
	}
	_ = os.Remove(socketPath)
	logger.Tracef(ctx, "socket path: '%s'", socketPath)

	args := []string{
		pathToMPV,
		"--idle",
		"--keep-open=no",
		"--input-ipc-server=" + socketPath,
		fmt.Sprintf("--title=%s", cfg.Title),
	}
	if cfg.WindowHandle != 0 {
		args = append(args, fmt.Sprintf("--wid=%d", cfg.WindowHandle))
	}
	logger.Tracef(ctx, "running command '%s %s'", args[0], strings.Join(args[1:], " "))
	cmd := exec.Command(args[0], args[1:]...)
	if observability.LogLevelFilter.GetLevel() >= logger.LevelTrace {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}
	err = child_process_manager.ConfigureCommand(cmd)
	errmon.ObserveErrorCtx(ctx, err)
	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("unable to start mpv: %w", err)
	}
	err = child_process_manager.AddChildProcess(cmd.Process)
	errmon.ObserveErrorCtx(ctx, err)
	logger.Tracef(ctx, "started command '%s %s'", args[0], strings.Join(args[1:], " "))

	conn, err := waitForSocket(ctx, socketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = os.Remove(socketPath)
		return nil, err
	}

	p := newMPV(cfg, conn)
	p.SocketPath = socketPath
	p.Cmd = cmd
	if err := p.init(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	return p, nil
}

func waitForSocket(ctx context.Context, socketPath string) (*mpvipc.Connection, error) {
	logger.Tracef(ctx, "waiting for the socket '%s' to get ready", socketPath)
	ctx, cancel := context.WithTimeout(ctx, TimeoutMPVStart)
	defer cancel()

	conn := mpvipc.NewConnection(socketPath)
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mpv socket '%s' did not get ready: %w", socketPath, ctx.Err())
		case <-t.C:
		}
		if err := conn.Open(); err == nil {
			break
		}
	}
	logger.Tracef(ctx, "socket '%s' is ready", socketPath)
	return conn, nil
}

func newMPV(cfg types.Config, conn Conn) *MPV {
	return &MPV{
		Config: cfg,
		Conn:   conn,
	}
}

func (p *MPV) init(ctx context.Context) error {
	events, stop := p.Conn.NewEventListener()
	p.stopListening = stop
	observability.Go(ctx, func(ctx context.Context) {
		p.listen(ctx, events)
	})

	var mErr *multierror.Error
	for id, property := range observedProperties {
		if _, err := p.Conn.Call("observe_property", id, property); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to observe property '%s': %w", property, err))
		}
	}
	if err := p.Conn.Set("pause", true); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to pause: %w", err))
	}
	return mErr.ErrorOrNil()
}

func (p *MPV) Capabilities() types.Capabilities {
	return types.Capabilities{}
}

func (p *MPV) Subscribe(
	ctx context.Context,
	kinds []types.EventKind,
	callback types.EventCallback,
) (context.CancelFunc, error) {
	if p.closed.Load() {
		return nil, types.ErrClosed
	}
	return p.subscribers.Subscribe(kinds, callback), nil
}

func (p *MPV) SetMedia(ctx context.Context, source string) error {
	p.locker.Do(ctx, func() {
		p.media = source
	})
	return nil
}

func (p *MPV) Play(ctx context.Context) error {
	media, loaded := xsync.DoR2(ctx, &p.locker, func() (string, string) {
		return p.media, p.loadedMedia
	})
	if media == "" {
		return fmt.Errorf("no media is set")
	}
	if media != loaded {
		if _, err := p.Conn.Call("loadfile", media, "replace"); err != nil {
			return fmt.Errorf("unable to load '%s': %w", media, err)
		}
		p.locker.Do(ctx, func() {
			p.loadedMedia = media
		})
	}
	return p.Conn.Set("pause", false)
}

func (p *MPV) SetPause(ctx context.Context, pause bool) error {
	return p.Conn.Set("pause", pause)
}

func (p *MPV) TogglePause(ctx context.Context) error {
	_, err := p.Conn.Call("cycle", "pause")
	return err
}

func (p *MPV) Stop(ctx context.Context) error {
	_, err := p.Conn.Call("stop")
	if err != nil {
		return fmt.Errorf("unable to request 'stop'-ing: %w", err)
	}
	p.locker.Do(ctx, func() {
		p.loadedMedia = ""
	})
	return nil
}

func (p *MPV) GetTime(ctx context.Context) (time.Duration, error) {
	ts, err := p.getFloat64("time-pos")
	if err != nil {
		return 0, err
	}
	return secondsToDuration(ts), nil
}

func (p *MPV) SetTime(ctx context.Context, t time.Duration) error {
	_, err := p.Conn.Call("seek", t.Seconds(), "absolute")
	return err
}

func (p *MPV) IsSeekable(ctx context.Context) bool {
	v, err := p.Conn.Get("seekable")
	if err != nil {
		logger.Debugf(ctx, "unable to get 'seekable': %v", err)
		return false
	}
	b, _ := v.(bool)
	return b
}

func (p *MPV) VideoOutputCount(ctx context.Context) int {
	v, err := p.Conn.Get("vo-configured")
	if err != nil {
		logger.Debugf(ctx, "unable to get 'vo-configured': %v", err)
		return 0
	}
	if b, _ := v.(bool); b {
		return 1
	}
	return 0
}

func trackID(index int) any {
	if index < 0 {
		return "no"
	}
	return index
}

func (p *MPV) SetSubtitleTrack(ctx context.Context, index int) error {
	return p.Conn.Set("sid", trackID(index))
}

func (p *MPV) SetSubtitleFile(ctx context.Context, path string) error {
	_, err := p.Conn.Call("sub-add", path, "select")
	return err
}

func (p *MPV) SetTitle(ctx context.Context, index int) error {
	return p.Conn.Set("edition", index)
}

func (p *MPV) SetChapter(ctx context.Context, index int) error {
	return p.Conn.Set("chapter", index)
}

func (p *MPV) SetAudioTrack(ctx context.Context, index int) error {
	return p.Conn.Set("aid", trackID(index))
}

func (p *MPV) SetAdjustInt(ctx context.Context, adjust types.Adjust, value int) error {
	return p.SetAdjustFloat(ctx, adjust, float64(value))
}

func (p *MPV) SetAdjustFloat(ctx context.Context, adjust types.Adjust, value float64) error {
	property, v, ok := adjustProperty(adjust, value)
	if !ok {
		return nil
	}
	return p.Conn.Set(property, v)
}

func (p *MPV) SetAspectRatio(ctx context.Context, aspectRatio string) error {
	if aspectRatio == "" {
		aspectRatio = "-1"
	}
	return p.Conn.Set("video-aspect-override", aspectRatio)
}

func (p *MPV) getFloat64(key string) (float64, error) {
	r, err := p.Conn.Get(key)
	if err != nil {
		return 0, fmt.Errorf("unable to get '%s' from the MPV: %w", key, err)
	}
	v, ok := toFloat64(r)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T of '%s'", r, key)
	}
	return v, nil
}

func (p *MPV) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.subscribers.Clear()
	if p.stopListening != nil {
		close(p.stopListening)
	}
	var mErr *multierror.Error
	if err := p.Conn.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to close the connection: %w", err))
	}
	if p.Cmd != nil {
		mErr = multierror.Append(mErr, p.Cmd.Process.Kill())
	}
	if p.SocketPath != "" {
		if err := os.Remove(p.SocketPath); err != nil && !os.IsNotExist(err) {
			mErr = multierror.Append(mErr, err)
		}
	}
	return mErr.ErrorOrNil()
}
