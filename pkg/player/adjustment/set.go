package adjustment

import (
	"context"
	"fmt"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

// Engine is the part of the engine surface needed to apply adjustments.
type Engine interface {
	SetAdjustInt(ctx context.Context, adjust types.Adjust, value int) error
	SetAdjustFloat(ctx context.Context, adjust types.Adjust, value float64) error
}

// Set keeps the normalized adjustment values of a player and applies them
// to the engine. It is not safe for concurrent use; it lives on the
// control loop.
type Set struct {
	values         [endOfKind]float64
	filtersEnabled bool
}

func (s *Set) Get(kind Kind) float64 {
	if kind <= KindUndefined || kind >= endOfKind {
		return 0
	}
	return s.values[kind]
}

func (s *Set) FiltersEnabled() bool {
	return s.filtersEnabled
}

// Apply stores the normalized value and projects it onto the engine.
//
// Without video output the value is only stored (see ApplyPending). The
// engine's adjust filter is enabled on the first non-default value.
func (s *Set) Apply(
	ctx context.Context,
	engine Engine,
	hasVideo bool,
	kind Kind,
	value float64,
) (_err error) {
	logger.Debugf(ctx, "Apply(ctx, %v, %s, %v)", hasVideo, kind, value)
	defer func() { logger.Debugf(ctx, "/Apply(ctx, %v, %s, %v): %v", hasVideo, kind, value, _err) }()

	if kind <= KindUndefined || kind >= endOfKind {
		return fmt.Errorf("unknown adjustment kind: %v", kind)
	}
	s.values[kind] = value
	if !hasVideo {
		logger.Debugf(ctx, "no video output, postponing %s", kind)
		return nil
	}
	if !s.filtersEnabled && value == 0 {
		return nil
	}
	return s.apply(ctx, engine, kind)
}

// ApplyPending projects every non-default stored value onto the engine.
// It is used once a video output appears.
func (s *Set) ApplyPending(
	ctx context.Context,
	engine Engine,
) error {
	var result *multierror.Error
	for kind := KindUndefined + 1; kind < endOfKind; kind++ {
		if s.values[kind] == 0 {
			continue
		}
		result = multierror.Append(result, s.apply(ctx, engine, kind))
	}
	return result.ErrorOrNil()
}

func (s *Set) apply(
	ctx context.Context,
	engine Engine,
	kind Kind,
) error {
	if err := s.enableFilters(ctx, engine, true); err != nil {
		return err
	}

	native := kind.Native(s.values[kind])
	var err error
	if kind.NativeRange().IsInt {
		err = engine.SetAdjustInt(ctx, kind.engineAdjust(), int(math.Round(native)))
	} else {
		err = engine.SetAdjustFloat(ctx, kind.engineAdjust(), native)
	}
	if err != nil {
		return fmt.Errorf("unable to set %s to %v: %w", kind, native, err)
	}
	return nil
}

// Reset forgets whether the filters were enabled, e.g. after the video
// output was recreated.
func (s *Set) Reset() {
	s.filtersEnabled = false
}

func (s *Set) enableFilters(
	ctx context.Context,
	engine Engine,
	enable bool,
) error {
	if s.filtersEnabled == enable {
		return nil
	}
	v := 0
	if enable {
		v = 1
	}
	if err := engine.SetAdjustInt(ctx, types.AdjustEnable, v); err != nil {
		return fmt.Errorf("unable to switch the adjust filter to %v: %w", enable, err)
	}
	s.filtersEnabled = enable
	return nil
}
