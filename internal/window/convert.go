package window

import "github.com/e7canasta/camoverlay/internal/surface"

// viewSize is the visible part of f, falling back to the whole surface.
func viewSize(f surface.Frame) (int, int) {
	w, h := f.ViewWidth, f.ViewHeight
	if w <= 0 || w > f.Width {
		w = f.Width
	}
	if h <= 0 || h > f.Height {
		h = f.Height
	}
	return w, h
}

// toRGBA crops the visible part of a bottom-up B,G,R,A frame into top-down
// premultiplied R,G,B,A, reusing dst when it is large enough. Unmasked
// frames are opaque whatever their alpha bytes hold.
func toRGBA(dst []byte, f surface.Frame) []byte {
	w, h := viewSize(f)
	n := w * h * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	for y := 0; y < h; y++ {
		src := f.Pix[(f.Height-1-y)*f.Stride:]
		out := dst[y*w*4 : (y+1)*w*4]
		for x := 0; x < w; x++ {
			s := src[x*4 : x*4+4]
			o := out[x*4 : x*4+4]
			o[0], o[1], o[2] = s[2], s[1], s[0]
			if f.Masked {
				o[3] = s[3]
			} else {
				o[3] = 0xFF
			}
		}
	}
	return dst
}
