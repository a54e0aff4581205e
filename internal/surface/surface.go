// Package surface composites canonical frames into presentable layered
// window surfaces.
//
// Surfaces store 32-bit B,G,R,A pixels bottom-up: storage row 0 is the
// bottom of the picture, matching a DIB section handed to a layered window.
package surface

import (
	"image"

	"golang.org/x/image/draw"
)

// Surface is an owned bottom-up pixel surface.
type Surface struct {
	Width  int
	Height int
	Pix    []byte
}

// NewSurface allocates a cleared surface.
func NewSurface(width, height int) *Surface {
	return &Surface{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Stride is the row pitch in bytes.
func (s *Surface) Stride() int { return s.Width * 4 }

// Row returns storage row y.
func (s *Surface) Row(y int) []byte {
	off := y * s.Stride()
	return s.Pix[off : off+s.Stride()]
}

// Clear zeroes every pixel, alpha included.
func (s *Surface) Clear() {
	clear(s.Pix)
}

// StretchTo resamples the whole surface into the top-left dw x dh area of dst
// as seen on screen, which is the last dh storage rows of dst. The resampler
// treats pixels as premultiplied, so s must be opaque for its colours to
// survive.
func (s *Surface) StretchTo(dst *Surface, dw, dh int) {
	dr := image.Rect(0, dst.Height-dh, dw, dst.Height)
	src := s.rgba()
	draw.BiLinear.Scale(dst.rgba(), dr, src, src.Bounds(), draw.Src, nil)
}

// rgba views the surface as an image.RGBA. Channel names do not match the
// stored B,G,R order, which does not matter for resampling.
func (s *Surface) rgba() *image.RGBA {
	return &image.RGBA{
		Pix:    s.Pix,
		Stride: s.Stride(),
		Rect:   image.Rect(0, 0, s.Width, s.Height),
	}
}
