// Package snapshot stores published frames as WebP images.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/chai2010/webp"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/player/framing"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

type Config struct {
	Dir string `yaml:"dir"`

	// Every is the amount of published frames per stored snapshot.
	Every uint64 `yaml:"every"`

	Width       int                 `yaml:"width"`
	Height      int                 `yaml:"height"`
	AspectRatio framing.AspectRatio `yaml:"aspect_ratio"`
	ScaleMode   string              `yaml:"scale_mode"`
	Quality     float32             `yaml:"quality"`
}

func DefaultConfig() Config {
	return Config{
		Every:       25,
		Width:       640,
		Height:      360,
		AspectRatio: framing.AspectRatioAuto,
		ScaleMode:   framing.ScaleModeFit.String(),
	}
}

// FillDefaults sets the unset fields to their DefaultConfig values.
func (cfg *Config) FillDefaults() {
	def := DefaultConfig()
	if cfg.Every == 0 {
		cfg.Every = def.Every
	}
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = def.AspectRatio
	}
	if cfg.ScaleMode == "" {
		cfg.ScaleMode = def.ScaleMode
	}
}

// Writer stores every Config.Every-th frame it is given. Rendering and
// encoding happen on a worker goroutine started by Start: a frame that
// arrives while the worker is busy replaces the one waiting for it.
type Writer struct {
	locker    xsync.Mutex
	config    Config
	scaleMode framing.ScaleMode
	seen      uint64
	written   []string

	mailbox   chan types.Frame
	started   atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{}
	doneCh    chan struct{}
}

func New(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("the snapshot directory is not set")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid snapshot size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Every == 0 {
		cfg.Every = 1
	}
	scaleMode, err := framing.ParseScaleMode(cfg.ScaleMode)
	if err != nil {
		return nil, err
	}
	if _, err := framing.ParseAspectRatio(string(cfg.AspectRatio)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("unable to create directory '%s': %w", cfg.Dir, err)
	}
	return &Writer{
		config:    cfg,
		scaleMode: scaleMode,
		mailbox:   make(chan types.Frame, 1),
		closeCh:   make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start launches the worker. It ends on Close or when ctx is cancelled.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("the snapshot writer is already started")
	}
	observability.Go(ctx, w.worker)
	return nil
}

func (w *Writer) worker(ctx context.Context) {
	logger.Debugf(ctx, "snapshot worker started")
	defer logger.Debugf(ctx, "snapshot worker ended")
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closeCh:
			select {
			case frame := <-w.mailbox:
				w.store(ctx, frame)
			default:
			}
			return
		case frame := <-w.mailbox:
			w.store(ctx, frame)
		}
	}
}

func (w *Writer) store(ctx context.Context, frame types.Frame) {
	if err := w.WriteFrame(ctx, frame); err != nil {
		logger.Errorf(ctx, "unable to store a snapshot of frame #%d: %v", frame.Seq, err)
	}
}

// OnFrame hands every Config.Every-th frame over to the worker and never
// waits for it. It matches the signature of MediaPlayer.OnFramePublished
// handlers.
func (w *Writer) OnFrame(ctx context.Context, frame types.Frame) {
	sampled := xsync.DoR1(ctx, &w.locker, func() bool {
		w.seen++
		return (w.seen-1)%w.config.Every == 0
	})
	if !sampled {
		return
	}
	select {
	case <-w.closeCh:
		logger.Debugf(ctx, "the snapshot writer is closed, skipping frame #%d", frame.Seq)
		return
	default:
	}
	for {
		select {
		case w.mailbox <- frame:
			return
		default:
		}
		select {
		case dropped := <-w.mailbox:
			logger.Tracef(ctx, "frame #%d is replaced by #%d", dropped.Seq, frame.Seq)
		default:
		}
	}
}

// WriteFrame renders and stores the frame right away.
func (w *Writer) WriteFrame(ctx context.Context, frame types.Frame) error {
	return xsync.DoA2R1(ctx, &w.locker, w.writeFrame, ctx, frame)
}

func (w *Writer) writeFrame(ctx context.Context, frame types.Frame) (_err error) {
	logger.Tracef(ctx, "writeFrame(ctx, #%d)", frame.Seq)
	defer func() { logger.Tracef(ctx, "/writeFrame(ctx, #%d): %v", frame.Seq, _err) }()

	img, err := framing.Render(frame, w.config.Width, w.config.Height, w.config.AspectRatio, w.scaleMode)
	if err != nil {
		return fmt.Errorf("unable to render the frame: %w", err)
	}

	path := filepath.Join(w.config.Dir, fmt.Sprintf("frame-%08d.webp", frame.Seq))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("unable to open '%s': %w", path, err)
	}
	opts := &webp.Options{Lossless: true}
	if w.config.Quality > 0 {
		opts = &webp.Options{Quality: w.config.Quality}
	}
	if err := webp.Encode(f, img, opts); err != nil {
		f.Close()
		return fmt.Errorf("unable to encode '%s': %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to close '%s': %w", path, err)
	}
	w.written = append(w.written, path)
	return nil
}

// Written returns the paths of the stored snapshots.
func (w *Writer) Written(ctx context.Context) []string {
	return xsync.DoR1(ctx, &w.locker, func() []string {
		return append([]string(nil), w.written...)
	})
}

// Close stores the frame waiting for the worker, if any, and stops the
// worker.
func (w *Writer) Close(ctx context.Context) error {
	w.closeOnce.Do(func() { close(w.closeCh) })
	if !w.started.Load() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.doneCh:
		return nil
	}
}
