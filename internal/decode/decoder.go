// Package decode turns locked capture buffers into canonical BGRX frames.
package decode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/e7canasta/camoverlay/internal/bufferlock"
	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
)

// ErrNoFormat is returned by DrawFrame before a media type was accepted.
var ErrNoFormat = errors.New("decode: no media type set")

// Target owns the canonical frame buffer. FrameBuffer must be a top-down
// packed plane of at least the negotiated size.
type Target interface {
	FrameBuffer() pixel.Plane
	OnNewFrame()
}

// Decoder converts one capture buffer per call into the target's frame buffer.
// It is not safe for concurrent use; callers serialize DrawFrame.
type Decoder struct {
	target    Target
	transform pixel.Transform
	encoding  pixel.Encoding
	width     int
	height    int
	stride    int
	chroma    int
}

// New returns a decoder writing into target.
func New(target Target) *Decoder {
	return &Decoder{target: target}
}

// SetMediaType selects the transform and geometry for the stream. On failure
// the decoder is left without a format.
func (d *Decoder) SetMediaType(mt source.MediaType) error {
	d.transform = nil

	fn, err := pixel.SelectTransform(mt.Encoding)
	if err != nil {
		return err
	}
	if mt.Width <= 0 || mt.Height <= 0 {
		return fmt.Errorf("decode: invalid frame size %dx%d", mt.Width, mt.Height)
	}

	stride := mt.DefaultStride
	if stride == 0 {
		stride = DefaultStride(mt.Encoding, mt.Width)
	}

	d.transform = fn
	d.encoding = mt.Encoding
	d.width = mt.Width
	d.height = mt.Height
	d.stride = stride
	d.chroma = mt.ChromaOffset

	slog.Debug("decode: media type set",
		"encoding", mt.Encoding.String(),
		"width", mt.Width,
		"height", mt.Height,
		"stride", stride,
	)
	return nil
}

// FrameSize returns the negotiated frame dimensions.
func (d *Decoder) FrameSize() (width, height int) {
	return d.width, d.height
}

// Encoding returns the active encoding, or pixel.Unknown.
func (d *Decoder) Encoding() pixel.Encoding {
	if d.transform == nil {
		return pixel.Unknown
	}
	return d.encoding
}

// DrawFrame locks buf, converts it into the target and notifies the target.
// The buffer is unlocked before the target composites.
func (d *Decoder) DrawFrame(buf source.Buffer) error {
	if d.transform == nil {
		return ErrNoFormat
	}

	lk := bufferlock.New(buf)
	defer lk.Release()

	src, err := lk.Acquire(d.stride, d.height)
	if err != nil {
		return err
	}
	if src.Stride == d.stride {
		// a 2D lock with its own pitch keeps the default plane layout
		src.ChromaOffset = d.chroma
	}
	if err := d.transform(d.target.FrameBuffer(), src, d.width, d.height); err != nil {
		return fmt.Errorf("decode: %s frame: %w", d.encoding, err)
	}
	if err := lk.Release(); err != nil {
		slog.Warn("decode: buffer unlock failed", "error", err)
	}

	d.target.OnNewFrame()
	return nil
}

// DefaultStride is the row pitch assumed when the device does not report one.
// RGB24 rows are padded to 4 bytes like DIB scanlines.
func DefaultStride(enc pixel.Encoding, width int) int {
	stride := enc.MinStride(width)
	if enc == pixel.RGB24 {
		stride = (stride + 3) &^ 3
	}
	return stride
}
