package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/xaionaro-go/playercore/pkg/player"
	"github.com/xaionaro-go/playercore/pkg/player/backend/dummy"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/playercore/pkg/snapshot"
	"github.com/xaionaro-go/playercore/pkg/xpath"
)

type DummyConfig struct {
	Simulate    bool          `yaml:"simulate"`
	FrameRate   float64       `yaml:"frame_rate,omitempty"`
	MediaLength time.Duration `yaml:"media_length,omitempty"`
	VideoWidth  int           `yaml:"video_width,omitempty"`
	VideoHeight int           `yaml:"video_height,omitempty"`
}

func (cfg DummyConfig) Options() dummy.Options {
	opts := dummy.Options{
		dummy.OptionSimulate(cfg.Simulate),
		dummy.OptionFrameRate(cfg.FrameRate),
	}
	if cfg.MediaLength > 0 {
		opts = append(opts, dummy.OptionMediaLength(cfg.MediaLength))
	}
	if cfg.VideoWidth > 0 && cfg.VideoHeight > 0 {
		opts = append(opts, dummy.OptionVideoSize{Width: cfg.VideoWidth, Height: cfg.VideoHeight})
	}
	return opts
}

type Adjustments struct {
	Brightness float64 `yaml:"brightness,omitempty"`
	Contrast   float64 `yaml:"contrast,omitempty"`
	Hue        float64 `yaml:"hue,omitempty"`
	Saturation float64 `yaml:"saturation,omitempty"`
}

type Config struct {
	Backend     types.Backend    `yaml:"backend"`
	Player      types.Config     `yaml:"player"`
	AspectRatio string           `yaml:"aspect_ratio,omitempty"`
	Adjustments Adjustments      `yaml:"adjustments,omitempty"`
	Dummy       DummyConfig      `yaml:"dummy,omitempty"`
	Snapshot    *snapshot.Config `yaml:"snapshot,omitempty"`
}

func DefaultConfig(ctx context.Context) Config {
	return Config{
		Backend: player.SupportedBackends()[0],
		Player:  types.DefaultConfig(ctx),
		Dummy: DummyConfig{
			Simulate:    true,
			FrameRate:   25,
			MediaLength: time.Minute,
		},
	}
}

// ReadConfigFromPath reads a YAML config on top of DefaultConfig.
func ReadConfigFromPath(ctx context.Context, cfgPath string) (Config, error) {
	cfg := DefaultConfig(ctx)
	cfgPath, err := xpath.Expand(cfgPath)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("unable to read file '%s': %w", cfgPath, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to unserialize the config from '%s': %w", cfgPath, err)
	}
	if cfg.Snapshot != nil {
		cfg.Snapshot.FillDefaults()
	}
	return cfg, nil
}

func (cfg Config) WriteTo(w io.Writer) (int64, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("unable to serialize the config: %w", err)
	}
	n, err := w.Write(b)
	return int64(n), err
}
