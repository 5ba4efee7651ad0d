// Package framing places published frames onto a consumer surface: aspect
// ratio, fit-or-crop scaling and pixel format conversion.
package framing

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

type ScaleMode int

const (
	// ScaleModeFit fits the whole frame into the surface, keeping the aspect
	// ratio and leaving black bars.
	ScaleModeFit = ScaleMode(iota)
	// ScaleModeCrop fills the whole surface, keeping the aspect ratio and
	// cropping what does not fit.
	ScaleModeCrop
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleModeFit:
		return "fit"
	case ScaleModeCrop:
		return "crop"
	default:
		return fmt.Sprintf("unknown_scale_mode_%d", int(m))
	}
}

func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return ScaleModeFit, nil
	case "crop":
		return ScaleModeCrop, nil
	default:
		return ScaleModeFit, fmt.Errorf("unknown scale mode '%s'", s)
	}
}

type AspectRatio string

const (
	AspectRatioAuto   = AspectRatio("auto")
	AspectRatioWidget = AspectRatio("widget")
	AspectRatio4x3    = AspectRatio("4:3")
	AspectRatio16x9   = AspectRatio("16:9")
)

func ParseAspectRatio(s string) (AspectRatio, error) {
	switch ar := AspectRatio(strings.ToLower(strings.TrimSpace(s))); ar {
	case "":
		return AspectRatioAuto, nil
	case AspectRatioAuto, AspectRatioWidget, AspectRatio4x3, AspectRatio16x9:
		return ar, nil
	default:
		return AspectRatioAuto, fmt.Errorf("unknown aspect ratio '%s'", s)
	}
}

// EngineValue returns the value to pass to the engine; an empty string
// means the engine default.
func (ar AspectRatio) EngineValue() string {
	switch ar {
	case AspectRatio4x3, AspectRatio16x9:
		return string(ar)
	default:
		return ""
	}
}

// Ratio returns the width/height ratio to display a frame of the given size
// with, or 0 if the frame should be stretched over the surface.
func (ar AspectRatio) Ratio(frameWidth, frameHeight int) float64 {
	switch ar {
	case AspectRatio4x3:
		return 4.0 / 3
	case AspectRatio16x9:
		return 16.0 / 9
	case AspectRatioWidget:
		return 0
	default:
		if frameWidth <= 0 || frameHeight <= 0 {
			return 0
		}
		return float64(frameWidth) / float64(frameHeight)
	}
}

// Place returns the rectangle (in surface coordinates) to draw a frame into.
// With ScaleModeCrop the rectangle may exceed the surface bounds.
func Place(surface image.Rectangle, ratio float64, mode ScaleMode) image.Rectangle {
	sw, sh := surface.Dx(), surface.Dy()
	if ratio <= 0 || sw <= 0 || sh <= 0 {
		return surface
	}

	w, h := sw, int(float64(sw)/ratio+0.5)
	fitsByWidth := h <= sh
	if fitsByWidth != (mode == ScaleModeFit) {
		w, h = int(float64(sh)*ratio+0.5), sh
	}

	x := surface.Min.X + (sw-w)/2
	y := surface.Min.Y + (sh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// ToRGBA converts an RV32 (BGRX) frame into an RGBA image.
func ToRGBA(frame types.Frame) (*image.RGBA, error) {
	if frame.PixelFormat != types.PixelFormatRV32 {
		return nil, fmt.Errorf("unsupported pixel format '%s'", frame.PixelFormat)
	}
	if !frame.IsConsistent() {
		return nil, fmt.Errorf("inconsistent frame: %dx%d with %d bytes", frame.Width, frame.Height, len(frame.Data))
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i := 0; i < len(frame.Data); i += types.BytesPerPixel {
		img.Pix[i+0] = frame.Data[i+2]
		img.Pix[i+1] = frame.Data[i+1]
		img.Pix[i+2] = frame.Data[i+0]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}

// Render draws the frame onto a new black surface of the given size.
func Render(
	frame types.Frame,
	width, height int,
	ar AspectRatio,
	mode ScaleMode,
) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	src, err := ToRGBA(frame)
	if err != nil {
		return nil, err
	}

	surface := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(surface, surface.Bounds(), image.Black, image.Point{}, draw.Src)

	dst := Place(surface.Bounds(), ar.Ratio(frame.Width, frame.Height), mode)
	if dst.Dx() <= 0 || dst.Dy() <= 0 {
		return surface, nil
	}
	scaled := transform.Resize(src, dst.Dx(), dst.Dy(), transform.Linear)
	draw.Draw(surface, dst, scaled, image.Point{}, draw.Src)
	return surface, nil
}
