package adjustment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

type adjustCall struct {
	Adjust types.Adjust
	Int    int
	Float  float64
}

type mockEngine struct {
	calls []adjustCall
	err   error
}

func (e *mockEngine) SetAdjustInt(ctx context.Context, adjust types.Adjust, value int) error {
	e.calls = append(e.calls, adjustCall{Adjust: adjust, Int: value})
	return e.err
}

func (e *mockEngine) SetAdjustFloat(ctx context.Context, adjust types.Adjust, value float64) error {
	e.calls = append(e.calls, adjustCall{Adjust: adjust, Float: value})
	return e.err
}

func TestSetApply(t *testing.T) {
	ctx := context.Background()

	t.Run("no_video", func(t *testing.T) {
		var s Set
		e := &mockEngine{}
		require.NoError(t, s.Apply(ctx, e, false, KindBrightness, 0.5))
		assert.Empty(t, e.calls)
		assert.False(t, s.FiltersEnabled())
		assert.Equal(t, 0.5, s.Get(KindBrightness))

		require.NoError(t, s.ApplyPending(ctx, e))
		assert.Equal(t, []adjustCall{
			{Adjust: types.AdjustEnable, Int: 1},
			{Adjust: types.AdjustBrightness, Float: 1.5},
		}, e.calls)
	})

	t.Run("enable_once", func(t *testing.T) {
		var s Set
		e := &mockEngine{}
		require.NoError(t, s.Apply(ctx, e, true, KindContrast, -1))
		require.NoError(t, s.Apply(ctx, e, true, KindHue, 0.5))
		require.NoError(t, s.Apply(ctx, e, true, KindSaturation, 1))
		assert.True(t, s.FiltersEnabled())
		assert.Equal(t, []adjustCall{
			{Adjust: types.AdjustEnable, Int: 1},
			{Adjust: types.AdjustContrast, Float: 0},
			{Adjust: types.AdjustHue, Int: 180},
			{Adjust: types.AdjustSaturation, Float: 3},
		}, e.calls)
	})

	t.Run("default_value_does_not_enable", func(t *testing.T) {
		var s Set
		e := &mockEngine{}
		require.NoError(t, s.Apply(ctx, e, true, KindBrightness, 0))
		assert.Empty(t, e.calls)
		assert.False(t, s.FiltersEnabled())
	})

	t.Run("engine_failure", func(t *testing.T) {
		var s Set
		e := &mockEngine{err: errors.New("nope")}
		require.Error(t, s.Apply(ctx, e, true, KindBrightness, 0.1))
		assert.False(t, s.FiltersEnabled())
	})

	t.Run("unknown_kind", func(t *testing.T) {
		var s Set
		require.Error(t, s.Apply(ctx, &mockEngine{}, true, Kind(100), 0.1))
	})
}
