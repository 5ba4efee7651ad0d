//go:build !with_libvlc
// +build !with_libvlc

package libvlc

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/playercore/pkg/player/engine"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

const Supported = false

// NewContext returns a context whose handles fail to be created.
func NewContext(opts ...types.Option) *engine.Context {
	return engine.NewContext(types.BackendLibVLC, nil, func(ctx context.Context, cfg types.Config) (types.Engine, error) {
		return nil, fmt.Errorf("compiled without LibVLC support (build tag 'with_libvlc')")
	}, opts...)
}
