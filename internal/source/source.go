// Package source defines the boundary between the preview pipeline and a
// capture backend.
package source

import (
	"errors"
	"fmt"

	"github.com/e7canasta/camoverlay/internal/pixel"
)

var (
	// ErrNoMoreTypes ends a NativeMediaType loop.
	ErrNoMoreTypes = errors.New("source: no more media types")
	// ErrDeviceBusy reports that another process holds the device.
	ErrDeviceBusy = errors.New("source: device is in use by another application")
	// ErrDeviceLost reports that the device disappeared mid-stream.
	ErrDeviceLost = errors.New("source: device lost")
	// ErrEndOfStream reports that the backend stopped delivering samples.
	ErrEndOfStream = errors.New("source: end of stream")
	// ErrClosed is returned by readers used after Close.
	ErrClosed = errors.New("source: reader closed")
)

// MediaType describes one stream format offered or accepted by a device.
type MediaType struct {
	Encoding pixel.Encoding
	// Native is the backend's own format name, kept for logs when Encoding is Unknown.
	Native string
	Width  int
	Height int
	// DefaultStride is the row pitch in bytes of a linear buffer; negative
	// means bottom-up. Zero lets the decoder compute a packed stride.
	DefaultStride int
	// ChromaOffset is the byte offset of the CbCr plane of a linear NV12
	// buffer. Zero means Height*DefaultStride.
	ChromaOffset int
}

func (m MediaType) String() string {
	name := m.Encoding.String()
	if m.Encoding == pixel.Unknown && m.Native != "" {
		name = m.Native
	}
	return fmt.Sprintf("%s %dx%d", name, m.Width, m.Height)
}

// Buffer is a frame buffer that can only be locked as one flat byte range.
type Buffer interface {
	Lock() ([]byte, error)
	Unlock() error
}

// Buffer2D is a buffer that knows its own pitch. A negative pitch means
// scanline 0 is the last row of the returned bytes.
type Buffer2D interface {
	Buffer
	Lock2D() (pix []byte, pitch int, err error)
	Unlock2D() error
}

// Sample is one delivered frame. It is valid only during the callback.
type Sample interface {
	Buffer(index int) (Buffer, error)
	BufferCount() int
}

// Callback receives the result of one ReadSample request. A nil err with a nil
// sample is a stream tick without data. The returned error is for the
// backend's logs only.
type Callback interface {
	OnReadSample(err error, sample Sample) error
}

// Reader is an opened device producing samples asynchronously.
//
// ReadSample and Close must never wait for a callback to return: callbacks
// run under the consumer's lock, which is also held while calling them.
type Reader interface {
	// NativeMediaType returns the device format at index, or ErrNoMoreTypes.
	NativeMediaType(index int) (MediaType, error)
	// SetCurrentMediaType asks the device to deliver mt.
	SetCurrentMediaType(mt MediaType) error
	// CurrentMediaType reports the format the device will deliver, including
	// its stride.
	CurrentMediaType() (MediaType, error)
	// ReadSample requests exactly one callback with the next frame, delivered
	// on another goroutine.
	ReadSample() error
	Close() error
}

// Device opens a Reader that reports to cb.
type Device interface {
	ID() string
	Open(cb Callback) (Reader, error)
}
