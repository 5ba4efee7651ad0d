package dummy

import (
	"time"
)

type Config struct {
	NativeBufferingCompleteTransition bool
	Simulate                          bool
	FrameRate                         float64
	MediaLength                       time.Duration
	VideoOutputs                      int
	VideoWidth                        int
	VideoHeight                       int
}

func defaultConfig() Config {
	return Config{
		FrameRate:    25,
		MediaLength:  time.Minute,
		VideoOutputs: 1,
		VideoWidth:   640,
		VideoHeight:  360,
	}
}

type Option interface {
	apply(*Config)
}

type Options []Option

func (opts Options) config() Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return cfg
}

// OptionNativeBufferingCompleteTransition makes the engine raise "playing"
// by itself after buffering reaches 100%.
type OptionNativeBufferingCompleteTransition bool

func (opt OptionNativeBufferingCompleteTransition) apply(cfg *Config) {
	cfg.NativeBufferingCompleteTransition = bool(opt)
}

// OptionSimulate makes the engine raise events in response to commands and
// play the media in real time (advancing position, rendering frames).
type OptionSimulate bool

func (opt OptionSimulate) apply(cfg *Config) {
	cfg.Simulate = bool(opt)
}

type OptionFrameRate float64

func (opt OptionFrameRate) apply(cfg *Config) {
	if opt <= 0 {
		return
	}
	cfg.FrameRate = float64(opt)
}

type OptionMediaLength time.Duration

func (opt OptionMediaLength) apply(cfg *Config) {
	cfg.MediaLength = time.Duration(opt)
}

type OptionVideoOutputs int

func (opt OptionVideoOutputs) apply(cfg *Config) {
	cfg.VideoOutputs = int(opt)
}

type OptionVideoSize struct {
	Width  int
	Height int
}

func (opt OptionVideoSize) apply(cfg *Config) {
	cfg.VideoWidth = opt.Width
	cfg.VideoHeight = opt.Height
}
