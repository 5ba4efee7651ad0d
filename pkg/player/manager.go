package player

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/playercore/pkg/player/backend/dummy"
	"github.com/xaionaro-go/playercore/pkg/player/backend/libvlc"
	"github.com/xaionaro-go/playercore/pkg/player/backend/mpv"
	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

type Backend = types.Backend

const (
	BackendUndefined = types.BackendUndefined
	BackendLibVLC    = types.BackendLibVLC
	BackendMPV       = types.BackendMPV
	BackendDummy     = types.BackendDummy
)

func SupportedBackends() []Backend {
	var result []Backend
	if libvlc.Supported {
		result = append(result, BackendLibVLC)
	}
	result = append(result, BackendMPV, BackendDummy)
	return result
}

// Manager creates players and owns one engine.Context per backend.
type Manager struct {
	Options types.Options

	// DummyOptions configure the engines of BackendDummy.
	DummyOptions dummy.Options

	ContextsLocker xsync.Mutex
	Contexts       map[Backend]*engine.Context

	PlayersLocker xsync.Mutex
	Players       []*MediaPlayer
}

func NewManager(opts ...types.Option) *Manager {
	return &Manager{
		Options:  opts,
		Contexts: map[Backend]*engine.Context{},
	}
}

func (m *Manager) SupportedBackends() []Backend {
	return SupportedBackends()
}

func (m *Manager) engineContext(ctx context.Context, backend Backend) (*engine.Context, error) {
	return xsync.DoR2(ctx, &m.ContextsLocker, func() (*engine.Context, error) {
		if c, ok := m.Contexts[backend]; ok {
			return c, nil
		}
		var c *engine.Context
		switch backend {
		case BackendLibVLC:
			c = libvlc.NewContext(m.Options...)
		case BackendMPV:
			c = mpv.NewContext(m.Options...)
		case BackendDummy:
			c = engine.NewContext(BackendDummy, nil, dummy.Factory(m.DummyOptions...), m.Options...)
		default:
			return nil, fmt.Errorf("unexpected backend type: '%s'", backend)
		}
		m.Contexts[backend] = c
		return c, nil
	})
}

func (m *Manager) NewPlayer(
	ctx context.Context,
	backend Backend,
	opts ...types.Option,
) (*MediaPlayer, error) {
	engineCtx, err := m.engineContext(ctx, backend)
	if err != nil {
		return nil, err
	}

	p, err := New(ctx, engineCtx, opts...)
	if err != nil {
		return nil, err
	}

	m.PlayersLocker.Do(ctx, func() {
		m.Players = append(m.Players, p)
	})
	return p, nil
}

// Close closes every player created by the Manager.
func (m *Manager) Close(ctx context.Context) error {
	players := xsync.DoR1(ctx, &m.PlayersLocker, func() []*MediaPlayer {
		players := m.Players
		m.Players = nil
		return players
	})

	var mErr *multierror.Error
	for _, p := range players {
		if err := p.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close a %s player: %v", p.Backend(), err)
			mErr = multierror.Append(mErr, err)
		}
	}
	return mErr.ErrorOrNil()
}
