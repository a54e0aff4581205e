// Package v4l2 reads camera frames from Video4Linux devices.
package v4l2

import (
	"fmt"

	"github.com/e7canasta/camoverlay/internal/pixel"
)

// FourCC is a V4L2 pixel format code as a four character string.
type FourCC string

// fourccEncodings lists the device formats whose memory layout matches an
// encoding. Packed RGB formats are named for their byte order in memory.
var fourccEncodings = map[FourCC]pixel.Encoding{
	"YUYV": pixel.YUY2,
	"NV12": pixel.NV12,
	"BGR3": pixel.RGB24,
	"XR24": pixel.RGB32,
	"BX24": pixel.RGB32,
	"BGR4": pixel.RGB32,
}

// encodingFourCC is the preferred fourcc per encoding.
var encodingFourCC = map[pixel.Encoding]FourCC{
	pixel.YUY2:  "YUYV",
	pixel.NV12:  "NV12",
	pixel.RGB24: "BGR3",
	pixel.RGB32: "XR24",
}

// PixelFormatToFourCC converts a V4L2 pixel format to its fourcc.
func PixelFormatToFourCC(pf uint32) FourCC {
	b := []byte{byte(pf), byte(pf >> 8), byte(pf >> 16), byte(pf >> 24)}
	return FourCC(b)
}

// FourCCToPixelFormat converts a fourcc to a V4L2 pixel format.
func FourCCToPixelFormat(f FourCC) (uint32, error) {
	if len(f) != 4 {
		return 0, fmt.Errorf("v4l2: illegal fourcc %q", string(f))
	}
	return uint32(f[0]) | uint32(f[1])<<8 | uint32(f[2])<<16 | uint32(f[3])<<24, nil
}

// EncodingOf returns the encoding a fourcc delivers, or pixel.Unknown.
func EncodingOf(f FourCC) pixel.Encoding {
	return fourccEncodings[f]
}

// FourCCOf returns the fourcc to request for enc.
func FourCCOf(enc pixel.Encoding) (FourCC, bool) {
	f, ok := encodingFourCC[enc]
	return f, ok
}

// frameSize picks the supported size closest to the wanted one. Stepwise
// ranges are clamped and snapped to their step.
func frameSize(sizes []sizeRange, wantW, wantH int) (int, int, bool) {
	bestW, bestH, bestScore := 0, 0, -1
	for _, s := range sizes {
		w := snap(wantW, s.minW, s.maxW, s.stepW)
		h := snap(wantH, s.minH, s.maxH, s.stepH)
		score := abs(w-wantW) + abs(h-wantH)
		if bestScore < 0 || score < bestScore || (score == bestScore && w*h > bestW*bestH) {
			bestW, bestH, bestScore = w, h, score
		}
	}
	return bestW, bestH, bestScore >= 0
}

type sizeRange struct {
	minW, maxW, stepW int
	minH, maxH, stepH int
}

func snap(v, lo, hi, step int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	if step > 1 {
		v = lo + (v-lo)/step*step
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
