package types

import (
	"context"
)

type Config struct {
	PathToMPV string `yaml:"path_to_mpv,omitempty"`
	Title     string `yaml:"title,omitempty"`

	// CustomRender makes the player render into an in-memory buffer and publish
	// frames instead of drawing into a window.
	CustomRender bool `yaml:"custom_render,omitempty"`

	WindowHandle uintptr `yaml:"-"`

	DefaultVideoWidth  int `yaml:"default_video_width,omitempty"`
	DefaultVideoHeight int `yaml:"default_video_height,omitempty"`

	// MaxFrameBufferSize limits the producer buffer allocation, in bytes.
	MaxFrameBufferSize int `yaml:"max_frame_buffer_size,omitempty"`
}

var DefaultConfig = func(ctx context.Context) Config {
	return Config{
		Title:              "playercore",
		DefaultVideoWidth:  640,
		DefaultVideoHeight: 480,
		MaxFrameBufferSize: 8192 * 8192 * BytesPerPixel,
	}
}

func (cfg Config) Options() Options {
	return Options{
		OptionPathToMPV(cfg.PathToMPV),
		OptionTitle(cfg.Title),
		OptionCustomRender(cfg.CustomRender),
		OptionWindowHandle(cfg.WindowHandle),
		OptionDefaultVideoSize{Width: cfg.DefaultVideoWidth, Height: cfg.DefaultVideoHeight},
		OptionMaxFrameBufferSize(cfg.MaxFrameBufferSize),
	}
}

type Option interface {
	Apply(cfg *Config)
}

type Options []Option

func (options Options) Config(ctx context.Context) Config {
	cfg := DefaultConfig(ctx)
	options.Apply(&cfg)
	return cfg
}

func (options Options) Apply(cfg *Config) {
	for _, option := range options {
		option.Apply(cfg)
	}
}

type OptionPathToMPV string

func (opt OptionPathToMPV) Apply(cfg *Config) {
	if opt == "" {
		return
	}
	cfg.PathToMPV = string(opt)
}

type OptionTitle string

func (opt OptionTitle) Apply(cfg *Config) {
	if opt == "" {
		return
	}
	cfg.Title = string(opt)
}

type OptionCustomRender bool

func (opt OptionCustomRender) Apply(cfg *Config) {
	cfg.CustomRender = bool(opt)
}

type OptionWindowHandle uintptr

func (opt OptionWindowHandle) Apply(cfg *Config) {
	cfg.WindowHandle = uintptr(opt)
}

type OptionDefaultVideoSize struct {
	Width  int
	Height int
}

func (opt OptionDefaultVideoSize) Apply(cfg *Config) {
	if opt.Width <= 0 || opt.Height <= 0 {
		return
	}
	cfg.DefaultVideoWidth = opt.Width
	cfg.DefaultVideoHeight = opt.Height
}

type OptionMaxFrameBufferSize int

func (opt OptionMaxFrameBufferSize) Apply(cfg *Config) {
	if opt <= 0 {
		return
	}
	cfg.MaxFrameBufferSize = int(opt)
}
