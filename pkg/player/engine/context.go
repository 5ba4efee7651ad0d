package engine

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

// Factory creates a new engine instance within an initialized Context.
type Factory func(ctx context.Context, cfg types.Config) (types.Engine, error)

// Library is the process-wide part of a backend (e.g. the loaded native
// library). Init is called once before the first instance is created and
// Release once after the last one is closed.
type Library interface {
	Init(ctx context.Context, cfg types.Config) error
	Release(ctx context.Context) error
}

// Context is the explicit process-wide engine context. It is constructed
// once per backend and passed to every Handle.
type Context struct {
	Backend types.Backend
	Config  types.Config

	library  Library
	factory  Factory
	locker   xsync.Mutex
	refCount int
}

func NewContext(
	backend types.Backend,
	library Library,
	factory Factory,
	opts ...types.Option,
) *Context {
	return &Context{
		Backend: backend,
		Config:  types.Options(opts).Config(context.Background()),
		library: library,
		factory: factory,
	}
}

// Init acquires a reference to the library, initializing it if this is the
// first reference.
func (c *Context) Init(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Init[%s]", c.Backend)
	defer func() { logger.Debugf(ctx, "/Init[%s]: %v", c.Backend, _err) }()
	return xsync.DoR1(ctx, &c.locker, func() error {
		if c.refCount == 0 && c.library != nil {
			if err := c.library.Init(ctx, c.Config); err != nil {
				return fmt.Errorf("unable to initialize the %s library: %w", c.Backend, err)
			}
		}
		c.refCount++
		return nil
	})
}

// Release drops a reference acquired by Init, shutting the library down with
// the last one.
func (c *Context) Release(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Release[%s]", c.Backend)
	defer func() { logger.Debugf(ctx, "/Release[%s]: %v", c.Backend, _err) }()
	return xsync.DoR1(ctx, &c.locker, func() error {
		if c.refCount <= 0 {
			return fmt.Errorf("the %s context is not initialized", c.Backend)
		}
		c.refCount--
		if c.refCount > 0 || c.library == nil {
			return nil
		}
		if err := c.library.Release(ctx); err != nil {
			return fmt.Errorf("unable to release the %s library: %w", c.Backend, err)
		}
		return nil
	})
}

func (c *Context) RefCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &c.locker, func() int {
		return c.refCount
	})
}

// NewHandle creates an engine instance owned by the returned Handle. The
// Handle holds a reference to the Context until it is closed.
func (c *Context) NewHandle(
	ctx context.Context,
	opts ...types.Option,
) (_ *Handle, _err error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if _err != nil {
			if err := c.Release(ctx); err != nil {
				logger.Errorf(ctx, "unable to release the context: %v", err)
			}
		}
	}()

	cfg := c.Config
	types.Options(opts).Apply(&cfg)
	engine, err := c.factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create a %s engine: %w", c.Backend, err)
	}
	return newHandle(c, engine), nil
}
