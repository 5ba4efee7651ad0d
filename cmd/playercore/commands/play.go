package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/playercore/pkg/player"
	"github.com/xaionaro-go/playercore/pkg/player/framing"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/playercore/pkg/snapshot"
)

const defaultSeekInterval = 100 * time.Millisecond

func isHeadless() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
	default:
		return false
	}
}

// playConfig merges the config file with the flags of the "play" command.
func playConfig(ctx context.Context, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig(ctx)
	if cfgPath, _ := flags.GetString("config"); cfgPath != "" {
		var err error
		cfg, err = ReadConfigFromPath(ctx, cfgPath)
		if err != nil {
			return cfg, err
		}
	}

	if backend, _ := flags.GetString("backend"); backend != "" {
		cfg.Backend = types.Backend(backend)
	}
	if flags.Changed("custom-render") {
		cfg.Player.CustomRender, _ = flags.GetBool("custom-render")
	}
	if ar, _ := flags.GetString("aspect-ratio"); ar != "" {
		cfg.AspectRatio = ar
	}
	for name, value := range map[string]*float64{
		"brightness": &cfg.Adjustments.Brightness,
		"contrast":   &cfg.Adjustments.Contrast,
		"hue":        &cfg.Adjustments.Hue,
		"saturation": &cfg.Adjustments.Saturation,
	} {
		if flags.Changed(name) {
			*value, _ = flags.GetFloat64(name)
		}
	}
	if dir, _ := flags.GetString("snapshot-dir"); dir != "" {
		if cfg.Snapshot == nil {
			def := snapshot.DefaultConfig()
			cfg.Snapshot = &def
		}
		cfg.Snapshot.Dir = dir
	}
	if every, _ := flags.GetUint64("snapshot-every"); every > 0 && cfg.Snapshot != nil {
		cfg.Snapshot.Every = every
	}

	if cfg.Snapshot != nil {
		cfg.Player.CustomRender = true
	}
	if !cfg.Player.CustomRender && isHeadless() {
		logger.Infof(ctx, "no display found, switching to custom render")
		cfg.Player.CustomRender = true
	}
	return cfg, nil
}

func play(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	media := args[0]

	cfg, err := playConfig(ctx, cmd.Flags())
	assertNoError(ctx, err)

	aspectRatio, err := framing.ParseAspectRatio(cfg.AspectRatio)
	assertNoError(ctx, err)
	seeks, err := parseDurations(mustGetStringSlice(cmd, "seek"))
	assertNoError(ctx, err)
	seekInterval, err := cmd.Flags().GetDuration("seek-interval")
	assertNoError(ctx, err)
	duration, err := cmd.Flags().GetDuration("duration")
	assertNoError(ctx, err)
	subtitleFile, err := cmd.Flags().GetString("subtitle-file")
	assertNoError(ctx, err)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	if duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, duration)
		defer cancelTimeout()
	}

	m := player.NewManager(cfg.Player.Options()...)
	m.DummyOptions = cfg.Dummy.Options()
	defer func() {
		if err := m.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Errorf(ctx, "unable to close the players: %v", err)
		}
	}()

	p, err := m.NewPlayer(ctx, cfg.Backend)
	assertNoError(ctx, err)

	finished := make(chan types.State, 1)
	_, err = p.OnStateChanged(func(ctx context.Context, state types.State) {
		fmt.Printf("state: %s\n", state)
		switch state {
		case types.StateEnded, types.StateError:
			select {
			case finished <- state:
			default:
			}
		}
	})
	assertNoError(ctx, err)
	_, err = p.OnTimeChanged(func(ctx context.Context, t time.Duration) {
		fmt.Printf("time: %v\n", t)
	})
	assertNoError(ctx, err)
	_, err = p.OnLengthChanged(func(ctx context.Context, length time.Duration) {
		fmt.Printf("length: %v\n", length)
	})
	assertNoError(ctx, err)
	_, err = p.OnVideoSizeChanged(func(ctx context.Context, width, height int) {
		fmt.Printf("video size: %dx%d\n", width, height)
	})
	assertNoError(ctx, err)

	if cfg.Snapshot != nil {
		w, err := snapshot.New(*cfg.Snapshot)
		assertNoError(ctx, err)
		assertNoError(ctx, w.Start(context.WithoutCancel(ctx)))
		_, err = p.OnFramePublished(w.OnFrame)
		assertNoError(ctx, err)
		defer func() {
			ctx := context.WithoutCancel(ctx)
			if err := w.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the snapshot writer: %v", err)
			}
			fmt.Printf("stored %d snapshots in '%s'\n", len(w.Written(ctx)), cfg.Snapshot.Dir)
		}()
	}

	assertNoError(ctx, p.SetMedia(ctx, media))
	if aspectRatio != framing.AspectRatioAuto {
		assertNoError(ctx, p.SetAspectRatio(ctx, aspectRatio))
	}
	applyAdjustments(ctx, p, cfg.Adjustments)
	assertNoError(ctx, p.Play(ctx))
	if subtitleFile != "" {
		if err := p.SetSubtitleFile(ctx, subtitleFile); err != nil {
			logger.Errorf(ctx, "unable to load the subtitles from '%s': %v", subtitleFile, err)
		}
	}

	for _, target := range seeks {
		if err := p.RequestSeek(ctx, target); err != nil {
			logger.Errorf(ctx, "unable to request a seek to %v: %v", target, err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(seekInterval):
		}
	}

	select {
	case <-ctx.Done():
		logger.Debugf(ctx, "interrupted: %v", ctx.Err())
	case state := <-finished:
		logger.Debugf(ctx, "finished: %s", state)
	}
}

func applyAdjustments(ctx context.Context, p *player.MediaPlayer, adj Adjustments) {
	for _, a := range []struct {
		name  string
		value float64
		set   func(context.Context, float64) error
	}{
		{"brightness", adj.Brightness, p.SetBrightness},
		{"contrast", adj.Contrast, p.SetContrast},
		{"hue", adj.Hue, p.SetHue},
		{"saturation", adj.Saturation, p.SetSaturation},
	} {
		if a.value == 0 {
			continue
		}
		if err := a.set(ctx, a.value); err != nil {
			logger.Errorf(ctx, "unable to set the %s to %v: %v", a.name, a.value, err)
		}
	}
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	v, err := cmd.Flags().GetStringSlice(name)
	assertNoError(cmd.Context(), err)
	return v
}

func parseDurations(in []string) ([]time.Duration, error) {
	result := make([]time.Duration, 0, len(in))
	for _, s := range in {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("unable to parse '%s' as a duration: %w", s, err)
		}
		result = append(result, d)
	}
	return result, nil
}
