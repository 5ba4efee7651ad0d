package libvlc

import (
	"fmt"
	"math"

	"github.com/xaionaro-go/playercore/pkg/player/types"
)

// videoAdjuster is the part of *vlc.Player that controls the video
// adjustment filter.
type videoAdjuster interface {
	EnableVideoAdjustments(enable bool) error
	SetBrightness(brightness float64) error
	SetContrast(contrast float64) error
	SetHue(hue float64) error
	SetSaturation(saturation float64) error
}

// setAdjust applies a value in the engine-native range of the adjustment.
// Brightness, contrast and saturation ranges match libvlc as is.
func setAdjust(a videoAdjuster, adjust types.Adjust, value float64) error {
	switch adjust {
	case types.AdjustEnable:
		return a.EnableVideoAdjustments(value != 0)
	case types.AdjustBrightness:
		return a.SetBrightness(value)
	case types.AdjustContrast:
		return a.SetContrast(value)
	case types.AdjustHue:
		return a.SetHue(vlcHue(value))
	case types.AdjustSaturation:
		return a.SetSaturation(value)
	default:
		return fmt.Errorf("unknown adjustment %s: %w", adjust, types.ErrNotSupported)
	}
}

// vlcHue converts a hue rotation in degrees [0, 360] into the [-180, 180]
// range libvlc accepts.
func vlcHue(degrees float64) float64 {
	h := math.Mod(degrees, 360)
	if h < 0 {
		h += 360
	}
	if h > 180 {
		h -= 360
	}
	return h
}
