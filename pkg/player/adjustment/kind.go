package adjustment

import (
	"fmt"

	"github.com/xaionaro-go/playercore/pkg/player/types"
)

type Kind int

const (
	KindUndefined Kind = iota
	KindBrightness
	KindContrast
	KindHue
	KindSaturation
	endOfKind
)

func (k Kind) String() string {
	switch k {
	case KindBrightness:
		return "brightness"
	case KindContrast:
		return "contrast"
	case KindHue:
		return "hue"
	case KindSaturation:
		return "saturation"
	default:
		return fmt.Sprintf("unknown_adjustment_%d", int(k))
	}
}

// NativeRange describes how a Kind is represented by the engine.
type NativeRange struct {
	UpperBound float64
	Shift      bool
	IsInt      bool
}

func (k Kind) NativeRange() NativeRange {
	switch k {
	case KindBrightness, KindContrast:
		return NativeRange{UpperBound: 2, Shift: true}
	case KindHue:
		return NativeRange{UpperBound: 360, IsInt: true}
	case KindSaturation:
		return NativeRange{UpperBound: 3, Shift: true}
	default:
		return NativeRange{}
	}
}

func (k Kind) engineAdjust() types.Adjust {
	switch k {
	case KindBrightness:
		return types.AdjustBrightness
	case KindContrast:
		return types.AdjustContrast
	case KindHue:
		return types.AdjustHue
	case KindSaturation:
		return types.AdjustSaturation
	default:
		return types.AdjustUndefined
	}
}

// Native returns the engine-native value for a normalized one.
func (k Kind) Native(value float64) float64 {
	r := k.NativeRange()
	return Map(value, r.UpperBound, r.Shift)
}
