package libvlc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

type adjusterCall struct {
	Name  string
	Value any
}

type fakeAdjuster struct {
	calls []adjusterCall
}

func (a *fakeAdjuster) record(name string, value any) error {
	a.calls = append(a.calls, adjusterCall{Name: name, Value: value})
	return nil
}

func (a *fakeAdjuster) EnableVideoAdjustments(enable bool) error {
	return a.record("enable", enable)
}

func (a *fakeAdjuster) SetBrightness(v float64) error { return a.record("brightness", v) }
func (a *fakeAdjuster) SetContrast(v float64) error   { return a.record("contrast", v) }
func (a *fakeAdjuster) SetHue(v float64) error        { return a.record("hue", v) }
func (a *fakeAdjuster) SetSaturation(v float64) error { return a.record("saturation", v) }

func TestSetAdjust(t *testing.T) {
	a := &fakeAdjuster{}
	require.NoError(t, setAdjust(a, types.AdjustEnable, 1))
	require.NoError(t, setAdjust(a, types.AdjustBrightness, 1.5))
	require.NoError(t, setAdjust(a, types.AdjustContrast, 0))
	require.NoError(t, setAdjust(a, types.AdjustHue, 270))
	require.NoError(t, setAdjust(a, types.AdjustSaturation, 3))
	require.NoError(t, setAdjust(a, types.AdjustEnable, 0))
	require.ErrorIs(t, setAdjust(a, types.AdjustUndefined, 1), types.ErrNotSupported)

	require.Equal(t, []adjusterCall{
		{Name: "enable", Value: true},
		{Name: "brightness", Value: 1.5},
		{Name: "contrast", Value: 0.0},
		{Name: "hue", Value: -90.0},
		{Name: "saturation", Value: 3.0},
		{Name: "enable", Value: false},
	}, a.calls)
}

func TestVLCHue(t *testing.T) {
	for degrees, expected := range map[float64]float64{
		0:   0,
		90:  90,
		180: 180,
		181: -179,
		270: -90,
		360: 0,
		-90: -90,
	} {
		require.Equal(t, expected, vlcHue(degrees), fmt.Sprint(degrees))
	}
}
