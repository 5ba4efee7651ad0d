package framepipeline

import (
	"fmt"

	"github.com/xaionaro-go/playercore/pkg/player/types"
)

func allocate(width, height, maxSize int) (_ []byte, _err error) {
	if width <= 0 || height <= 0 {
		return nil, types.ErrAllocation{Width: width, Height: height, Reason: "non-positive dimensions"}
	}
	if maxSize > 0 && width > maxSize/types.BytesPerPixel/height {
		return nil, types.ErrAllocation{
			Width:  width,
			Height: height,
			Reason: fmt.Sprintf("exceeds the limit of %d bytes", maxSize),
		}
	}
	defer func() {
		if r := recover(); r != nil {
			_err = types.ErrAllocation{Width: width, Height: height, Reason: r}
		}
	}()
	return make([]byte, width*height*types.BytesPerPixel), nil
}
