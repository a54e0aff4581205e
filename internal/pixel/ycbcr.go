package pixel

func clip(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// YCbCrToRGB converts one BT.601 studio-range sample with the integer
// approximation used by Media Foundation samples.
func YCbCrToRGB(y, cb, cr uint8) (r, g, b uint8) {
	c := int(y) - 16
	d := int(cb) - 128
	e := int(cr) - 128

	r = clip((298*c + 409*e + 128) >> 8)
	g = clip((298*c - 100*d - 208*e + 128) >> 8)
	b = clip((298*c + 516*d + 128) >> 8)
	return r, g, b
}
