package pixel

import "fmt"

// Plane is a scanline-addressable view over a pixel buffer.
//
// Stride is always positive. A bottom-up buffer keeps scanline 0 in the last
// Stride-sized row of Pix and is flagged with BottomUp instead of a negative
// stride.
type Plane struct {
	Pix      []byte
	Stride   int
	Rows     int
	BottomUp bool
	// ChromaOffset is the byte offset of the second plane of a semi-planar
	// buffer. Zero means the plane follows the first Rows scanlines.
	ChromaOffset int
}

// offset returns the byte offset of scanline y.
func (p Plane) offset(y int) int {
	if p.BottomUp {
		return (p.Rows - 1 - y) * p.Stride
	}
	return y * p.Stride
}

// Row returns the first n bytes of scanline y.
func (p Plane) Row(y, n int) []byte {
	off := p.offset(y)
	return p.Pix[off : off+n : off+n]
}

// fits reports whether rows scanlines of rowBytes each are addressable.
func (p Plane) fits(rows, rowBytes int) error {
	if rows <= 0 || rowBytes <= 0 {
		return nil
	}
	if p.Stride < rowBytes {
		return fmt.Errorf("%w: stride %d < row %d", ErrShortBuffer, p.Stride, rowBytes)
	}
	if p.Rows < rows {
		return fmt.Errorf("%w: %d rows < %d", ErrShortBuffer, p.Rows, rows)
	}
	if need := (p.Rows-1)*p.Stride + rowBytes; len(p.Pix) < need {
		return fmt.Errorf("%w: %d bytes < %d", ErrShortBuffer, len(p.Pix), need)
	}
	return nil
}

// Packed returns a top-down plane over pix with 4 bytes per pixel.
func Packed(pix []byte, width, height int) Plane {
	return Plane{Pix: pix, Stride: width * 4, Rows: height}
}
