package surface

import (
	"image"

	"golang.org/x/image/vector"
)

// bezier control distance for a quarter circle of radius 1
const kappa = 0.5522847498

// MaskCache holds the circular alpha mask for the last display size.
type MaskCache struct {
	width      int
	height     int
	data       []byte
	recomputes int
}

// Prepare returns a width*height alpha buffer in storage row order. The
// buffer is reused until a different size is requested.
func (m *MaskCache) Prepare(width, height int) []byte {
	if m.data != nil && width == m.width && height == m.height {
		return m.data
	}

	m.width, m.height = width, height
	m.data = renderCircle(width, height)
	m.recomputes++
	return m.data
}

// Recomputations counts how many masks were rendered.
func (m *MaskCache) Recomputations() int { return m.recomputes }

// renderCircle draws an anti-aliased disc of diameter min(w, h), centred
// horizontally and touching the top edge, and returns its coverage flipped
// into bottom-up rows.
func renderCircle(w, h int) []byte {
	out := make([]byte, w*h)
	if w == 0 || h == 0 {
		return out
	}

	ox, oy := w/2, h/2
	r := float32(min(ox, oy))
	// disc bounds start at visual row 0, like FillEllipse(ox-r, 0, 2r, 2r)
	cx, cy := float32(ox), r

	z := vector.NewRasterizer(w, h)
	if r > 0 {
		k := r * kappa
		z.MoveTo(cx+r, cy)
		z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
		z.ClosePath()
	}

	coverage := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < h; y++ {
		src := coverage.Pix[(h-1-y)*coverage.Stride:]
		copy(out[y*w:(y+1)*w], src[:w])
	}
	return out
}

// castPixel applies mask alpha a to one B,G,R,A pixel.
func castPixel(p []byte, a uint8) {
	if a == 0 {
		p[0], p[1], p[2], p[3] = 0, 0, 0, 0
		return
	}
	ratio := float64(a) / 255
	p[0] = uint8(float64(p[0]) * ratio)
	p[1] = uint8(float64(p[1]) * ratio)
	p[2] = uint8(float64(p[2]) * ratio)
	p[3] = a
}

// blendMask applies the circular mask to the dw x dh display area of s.
func (l *Layered) blendMask(s *Surface, dw, dh int) {
	mask := l.mask.Prepare(dw, dh)
	top := s.Height - dh
	for y := top; y < s.Height; y++ {
		row := s.Row(y)
		m := mask[(y-top)*dw : (y-top+1)*dw]
		for x := 0; x < dw; x++ {
			castPixel(row[x*4:x*4+4], m[x])
		}
	}
}
