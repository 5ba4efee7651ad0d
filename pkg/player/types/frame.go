package types

type PixelFormat string

const (
	// PixelFormatRV32 is 32 bits per pixel, B G R X byte order.
	PixelFormatRV32 = PixelFormat("RV32")
)

const BytesPerPixel = 4

// Frame is a snapshot copied out of a producer buffer. Data is owned by the
// receiver of the frame; nobody else holds a reference to it.
type Frame struct {
	Data        []byte
	Width       int
	Height      int
	PixelFormat PixelFormat

	// Seq increases monotonically per published frame within a player.
	Seq uint64
}

// IsConsistent reports whether the declared dimensions match the byte length.
func (f Frame) IsConsistent() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*BytesPerPixel
}

// Stride returns the amount of bytes per row.
func (f Frame) Stride() int {
	return f.Width * BytesPerPixel
}
