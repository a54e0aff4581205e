package gstreamer

import (
	"fmt"

	"github.com/e7canasta/camoverlay/internal/pixel"
)

// gstFormats maps encodings to GStreamer raw video format names with the
// same byte layout.
var gstFormats = map[pixel.Encoding]string{
	pixel.RGB24: "BGR",
	pixel.RGB32: "BGRx",
	pixel.YUY2:  "YUY2",
	pixel.NV12:  "NV12",
}

// formatName returns the GStreamer format for enc.
func formatName(enc pixel.Encoding) (string, bool) {
	name, ok := gstFormats[enc]
	return name, ok
}

// encodingOf maps a GStreamer format name back to an encoding.
func encodingOf(format string) pixel.Encoding {
	for enc, name := range gstFormats {
		if name == format {
			return enc
		}
	}
	return pixel.Unknown
}

// defaultStride follows GstVideoInfo: packed rows are 4-byte aligned, and
// NV12 rows use the aligned luma width.
func defaultStride(enc pixel.Encoding, width int) int {
	switch enc {
	case pixel.RGB32:
		return width * 4
	case pixel.RGB24, pixel.YUY2, pixel.NV12:
		return roundUp4(enc.MinStride(width))
	default:
		return 0
	}
}

// chromaOffset is where GstVideoInfo places the NV12 CbCr plane: after the
// luma rows rounded up to an even count.
func chromaOffset(enc pixel.Encoding, width, height int) int {
	if enc != pixel.NV12 {
		return 0
	}
	return defaultStride(enc, width) * ((height + 1) &^ 1)
}

func roundUp4(v int) int { return (v + 3) &^ 3 }

// rawCaps builds the capsfilter string for a fixed raw format.
func rawCaps(format string, width, height int) string {
	return fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d", format, width, height)
}
