package pixel

import "fmt"

type entry struct {
	encoding  Encoding
	transform Transform
}

// formats is the negotiation order offered to capture sources.
var formats = [...]entry{
	{RGB32, transformRGB32},
	{RGB24, transformRGB24},
	{YUY2, transformYUY2},
	{NV12, transformNV12},
}

// IsSupported reports whether enc has a transform.
func IsSupported(enc Encoding) bool {
	for _, f := range formats {
		if f.encoding == enc {
			return true
		}
	}
	return false
}

// SelectTransform returns the transform for enc.
func SelectTransform(enc Encoding) (Transform, error) {
	for _, f := range formats {
		if f.encoding == enc {
			return f.transform, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
}

// EnumerateSupported returns the encoding at position i in negotiation order,
// or ErrNoMoreEncodings once i runs past the table.
func EnumerateSupported(i int) (Encoding, error) {
	if i < 0 || i >= len(formats) {
		return Unknown, ErrNoMoreEncodings
	}
	return formats[i].encoding, nil
}

// Supported lists every supported encoding in negotiation order.
func Supported() []Encoding {
	out := make([]Encoding, len(formats))
	for i, f := range formats {
		out[i] = f.encoding
	}
	return out
}
