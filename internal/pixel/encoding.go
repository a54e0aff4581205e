package pixel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedEncoding is returned when no transform matches an encoding.
	ErrUnsupportedEncoding = errors.New("pixel: unsupported encoding")
	// ErrNoMoreEncodings ends an EnumerateSupported loop.
	ErrNoMoreEncodings = errors.New("pixel: no more encodings")
	// ErrShortBuffer is returned when a plane cannot hold the requested rows.
	ErrShortBuffer = errors.New("pixel: buffer too small for frame")
	// ErrOrientation is returned for bottom-up semi-planar sources.
	ErrOrientation = errors.New("pixel: bottom-up layout not valid for semi-planar encoding")
)

// Encoding identifies a device-native pixel layout.
type Encoding int

const (
	// Unknown is any device format the pipeline cannot decode.
	Unknown Encoding = iota
	// RGB24 is 3 bytes per pixel, stored B,G,R.
	RGB24
	// RGB32 is 4 bytes per pixel, stored B,G,R,X.
	RGB32
	// YUY2 is packed 4:2:2, stored Y0,U0,Y1,V0 per pixel pair.
	YUY2
	// NV12 is a luma plane followed by an interleaved CbCr plane at half resolution.
	NV12
)

// String returns the conventional FourCC-style name.
func (e Encoding) String() string {
	switch e {
	case RGB24:
		return "RGB24"
	case RGB32:
		return "RGB32"
	case YUY2:
		return "YUY2"
	case NV12:
		return "NV12"
	default:
		return "unknown"
	}
}

// ParseEncoding maps a name (case-insensitive) to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RGB24", "BGR", "BGR3":
		return RGB24, nil
	case "RGB32", "BGRX", "XRGB":
		return RGB32, nil
	case "YUY2", "YUYV":
		return YUY2, nil
	case "NV12":
		return NV12, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
	}
}

// BytesPerPixel returns the size of one pixel in the first plane.
func (e Encoding) BytesPerPixel() int {
	switch e {
	case RGB24:
		return 3
	case RGB32:
		return 4
	case YUY2:
		return 2
	case NV12:
		return 1
	default:
		return 0
	}
}

// MinStride is the tightly packed row size of the first plane.
func (e Encoding) MinStride(width int) int {
	return e.BytesPerPixel() * width
}
