package framing

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

func TestParse(t *testing.T) {
	for in, expected := range map[string]AspectRatio{
		"":       AspectRatioAuto,
		"auto":   AspectRatioAuto,
		"Widget": AspectRatioWidget,
		"4:3":    AspectRatio4x3,
		" 16:9 ": AspectRatio16x9,
	} {
		ar, err := ParseAspectRatio(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, ar, in)
	}
	_, err := ParseAspectRatio("21:9")
	require.Error(t, err)

	mode, err := ParseScaleMode("crop")
	require.NoError(t, err)
	require.Equal(t, ScaleModeCrop, mode)
	require.Equal(t, "crop", mode.String())
	_, err = ParseScaleMode("stretch")
	require.Error(t, err)
}

func TestEngineValue(t *testing.T) {
	assert.Equal(t, "", AspectRatioAuto.EngineValue())
	assert.Equal(t, "", AspectRatioWidget.EngineValue())
	assert.Equal(t, "4:3", AspectRatio4x3.EngineValue())
	assert.Equal(t, "16:9", AspectRatio16x9.EngineValue())
}

func TestPlace(t *testing.T) {
	surface := image.Rect(0, 0, 400, 300)

	for _, tc := range []struct {
		name     string
		ratio    float64
		mode     ScaleMode
		expected image.Rectangle
	}{
		{"fit-wide", 16.0 / 9, ScaleModeFit, image.Rect(0, 37, 400, 262)},
		{"crop-wide", 16.0 / 9, ScaleModeCrop, image.Rect(-66, 0, 467, 300)},
		{"fit-tall", 0.5, ScaleModeFit, image.Rect(125, 0, 275, 300)},
		{"crop-tall", 0.5, ScaleModeCrop, image.Rect(0, -250, 400, 550)},
		{"same", 4.0 / 3, ScaleModeFit, surface},
		{"stretch", 0, ScaleModeFit, surface},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Place(surface, tc.ratio, tc.mode))
		})
	}
}

func rv32Frame(w, h int, b, g, r byte) types.Frame {
	data := make([]byte, w*h*types.BytesPerPixel)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2] = b, g, r
	}
	return types.Frame{Data: data, Width: w, Height: h, PixelFormat: types.PixelFormatRV32}
}

func TestToRGBA(t *testing.T) {
	img, err := ToRGBA(rv32Frame(2, 2, 1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, []byte{3, 2, 1, 0xff}, img.Pix[:4])

	_, err = ToRGBA(types.Frame{Data: make([]byte, 3), Width: 1, Height: 1, PixelFormat: types.PixelFormatRV32})
	require.Error(t, err)
	_, err = ToRGBA(types.Frame{Data: make([]byte, 4), Width: 1, Height: 1, PixelFormat: "I420"})
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	frame := rv32Frame(160, 90, 0, 0, 200)

	img, err := Render(frame, 400, 300, AspectRatioAuto, ScaleModeFit)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())

	top := img.RGBAAt(200, 5)
	assert.Equal(t, uint8(0), top.R, "letterbox")
	center := img.RGBAAt(200, 150)
	assert.InDelta(t, 200, int(center.R), 1)

	img, err = Render(frame, 400, 300, AspectRatioAuto, ScaleModeCrop)
	require.NoError(t, err)
	assert.InDelta(t, 200, int(img.RGBAAt(200, 5).R), 1, "no bars when cropping")

	img, err = Render(frame, 400, 300, AspectRatioWidget, ScaleModeFit)
	require.NoError(t, err)
	assert.InDelta(t, 200, int(img.RGBAAt(200, 5).R), 1, "stretched")

	_, err = Render(frame, 0, 300, AspectRatioAuto, ScaleModeFit)
	require.Error(t, err)
}
