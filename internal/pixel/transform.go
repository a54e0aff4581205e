package pixel

// Transform converts height rows of width pixels from src into packed
// B,G,R,X pixels in dst. Rows advance by each plane's own stride.
type Transform func(dst, src Plane, width, height int) error

func transformRGB32(dst, src Plane, width, height int) error {
	if err := dst.fits(height, width*4); err != nil {
		return err
	}
	if err := src.fits(height, width*4); err != nil {
		return err
	}
	for y := 0; y < height; y++ {
		copy(dst.Row(y, width*4), src.Row(y, width*4))
	}
	return nil
}

func transformRGB24(dst, src Plane, width, height int) error {
	if err := dst.fits(height, width*4); err != nil {
		return err
	}
	if err := src.fits(height, width*3); err != nil {
		return err
	}
	for y := 0; y < height; y++ {
		s := src.Row(y, width*3)
		d := dst.Row(y, width*4)
		for x := 0; x < width; x++ {
			d[x*4+0] = s[x*3+0]
			d[x*4+1] = s[x*3+1]
			d[x*4+2] = s[x*3+2]
			d[x*4+3] = 0xFF
		}
	}
	return nil
}

func transformYUY2(dst, src Plane, width, height int) error {
	if err := dst.fits(height, width*4); err != nil {
		return err
	}
	// a trailing odd pixel still occupies a whole macropixel
	pairs := (width + 1) / 2
	if err := src.fits(height, pairs*4); err != nil {
		return err
	}
	for y := 0; y < height; y++ {
		s := src.Row(y, pairs*4)
		d := dst.Row(y, width*4)
		for x := 0; x < width; x += 2 {
			m := s[x*2 : x*2+4]
			y0, u0, y1, v0 := m[0], m[1], m[2], m[3]

			putBGRX(d[x*4:], y0, u0, v0, 0xFF)
			if x+1 < width {
				putBGRX(d[(x+1)*4:], y1, u0, v0, 0xFF)
			}
		}
	}
	return nil
}

func transformNV12(dst, src Plane, width, height int) error {
	if src.BottomUp {
		return ErrOrientation
	}
	if err := dst.fits(height, width*4); err != nil {
		return err
	}
	luma := Plane{Pix: src.Pix, Stride: src.Stride, Rows: height}
	if err := luma.fits(height, width); err != nil {
		return err
	}
	chromaRows := (height + 1) / 2
	chromaBytes := (width + 1) / 2 * 2
	off := src.ChromaOffset
	if off == 0 {
		off = height * src.Stride
	}
	if off < height*src.Stride || len(src.Pix) < off {
		return ErrShortBuffer
	}
	chroma := Plane{Pix: src.Pix[off:], Stride: src.Stride, Rows: chromaRows}
	if err := chroma.fits(chromaRows, chromaBytes); err != nil {
		return err
	}

	for y := 0; y < height; y += 2 {
		c := chroma.Row(y/2, chromaBytes)
		l0 := luma.Row(y, width)
		d0 := dst.Row(y, width*4)

		var l1, d1 []byte
		if y+1 < height {
			l1 = luma.Row(y+1, width)
			d1 = dst.Row(y+1, width*4)
		}

		for x := 0; x < width; x += 2 {
			cb, cr := c[x], c[x+1]

			putBGRX(d0[x*4:], l0[x], cb, cr, 0)
			if x+1 < width {
				putBGRX(d0[(x+1)*4:], l0[x+1], cb, cr, 0)
			}
			if d1 == nil {
				continue
			}
			putBGRX(d1[x*4:], l1[x], cb, cr, 0)
			if x+1 < width {
				putBGRX(d1[(x+1)*4:], l1[x+1], cb, cr, 0)
			}
		}
	}
	return nil
}

func putBGRX(d []byte, y, cb, cr, x uint8) {
	r, g, b := YCbCrToRGB(y, cb, cr)
	d[0] = b
	d[1] = g
	d[2] = r
	d[3] = x
}
