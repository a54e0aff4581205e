//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/blackjack/webcam"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
)

// frameTimeoutSeconds bounds one WaitForFrame call so a pending read
// notices Close.
const frameTimeoutSeconds = 1

// camera is the part of *webcam.Webcam the reader drives.
type camera interface {
	GetSupportedFormats() map[webcam.PixelFormat]string
	GetSupportedFrameSizes(f webcam.PixelFormat) []webcam.FrameSize
	SetImageFormat(f webcam.PixelFormat, width, height uint32) (webcam.PixelFormat, uint32, uint32, error)
	StartStreaming() error
	StopStreaming() error
	WaitForFrame(timeout uint32) error
	GetFrame() ([]byte, uint32, error)
	ReleaseFrame(index uint32) error
	Close() error
}

// Device is a Video4Linux capture node such as /dev/video0.
type Device struct {
	path   string
	width  int
	height int
}

// NewDevice returns the device at path. width and height are the preferred
// frame size; the closest size the device offers is used.
func NewDevice(path string, width, height int) (*Device, error) {
	if path == "" {
		return nil, fmt.Errorf("v4l2: device path is required")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("v4l2: invalid size %dx%d", width, height)
	}
	return &Device{path: path, width: width, height: height}, nil
}

// ID is the device path.
func (d *Device) ID() string { return d.path }

// Open opens the device node.
func (d *Device) Open(cb source.Callback) (source.Reader, error) {
	if cb == nil {
		return nil, fmt.Errorf("v4l2: callback is required")
	}
	cam, err := webcam.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("v4l2: open %s: %w", d.path, classify(err))
	}

	r := newReader(d, cb, cam)
	slog.Info("v4l2: device opened", "device", d.path, "native_types", len(r.natives))
	return r, nil
}

// Reader streams frames from an open device. A sample's buffer is the
// driver's mmap'd buffer; it is handed back to the driver when the buffer is
// unlocked or the callback returns, whichever comes first. The device is
// closed only once no read is pending and no buffer is held.
type Reader struct {
	dev *Device
	cb  source.Callback

	mu        sync.Mutex
	cam       camera
	natives   []source.MediaType
	current   source.MediaType
	hasType   bool
	streaming bool
	inflight  bool
	held      int
	released  bool

	closed atomic.Bool
	frames atomic.Uint64
}

func newReader(d *Device, cb source.Callback, cam camera) *Reader {
	r := &Reader{dev: d, cb: cb, cam: cam}
	r.natives = r.enumerate()
	return r
}

// enumerate lists every format the driver reports, in fourcc order, at the
// size closest to the preferred one.
func (r *Reader) enumerate() []source.MediaType {
	formats := r.cam.GetSupportedFormats()
	codes := make([]webcam.PixelFormat, 0, len(formats))
	for pf := range formats {
		codes = append(codes, pf)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	var out []source.MediaType
	for _, pf := range codes {
		var ranges []sizeRange
		for _, fs := range r.cam.GetSupportedFrameSizes(pf) {
			ranges = append(ranges, sizeRange{
				minW: int(fs.MinWidth), maxW: int(fs.MaxWidth), stepW: int(fs.StepWidth),
				minH: int(fs.MinHeight), maxH: int(fs.MaxHeight), stepH: int(fs.StepHeight),
			})
		}
		w, h, ok := frameSize(ranges, r.dev.width, r.dev.height)
		if !ok {
			w, h = r.dev.width, r.dev.height
		}

		fourcc := PixelFormatToFourCC(uint32(pf))
		enc := EncodingOf(fourcc)
		out = append(out, source.MediaType{
			Encoding:      enc,
			Native:        string(fourcc),
			Width:         w,
			Height:        h,
			DefaultStride: enc.MinStride(w),
		})
	}
	return out
}

// NativeMediaType returns the device format at index.
func (r *Reader) NativeMediaType(index int) (source.MediaType, error) {
	if r.closed.Load() {
		return source.MediaType{}, source.ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.natives) {
		return source.MediaType{}, source.ErrNoMoreTypes
	}
	return r.natives[index], nil
}

// SetCurrentMediaType asks the driver for mt. The driver may adjust the
// size; a different pixel format is a rejection.
func (r *Reader) SetCurrentMediaType(mt source.MediaType) error {
	if r.closed.Load() {
		return source.ErrClosed
	}
	fourcc, ok := FourCCOf(mt.Encoding)
	if !ok {
		return fmt.Errorf("%w: %s", pixel.ErrUnsupportedEncoding, mt)
	}
	pf, err := FourCCToPixelFormat(fourcc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streaming {
		return fmt.Errorf("v4l2: %s is streaming", r.dev.path)
	}

	got, w, h, err := r.cam.SetImageFormat(webcam.PixelFormat(pf), uint32(mt.Width), uint32(mt.Height))
	if err != nil {
		return fmt.Errorf("v4l2: set %s %dx%d: %w", fourcc, mt.Width, mt.Height, classify(err))
	}
	if uint32(got) != pf {
		return fmt.Errorf("v4l2: driver chose %s instead of %s", PixelFormatToFourCC(uint32(got)), fourcc)
	}

	r.current = source.MediaType{
		Encoding:      mt.Encoding,
		Native:        string(fourcc),
		Width:         int(w),
		Height:        int(h),
		DefaultStride: mt.Encoding.MinStride(int(w)),
	}
	r.hasType = true

	slog.Debug("v4l2: media type accepted", "device", r.dev.path, "media_type", r.current.String())
	return nil
}

// CurrentMediaType returns the accepted format with the size the driver
// settled on.
func (r *Reader) CurrentMediaType() (source.MediaType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasType {
		return source.MediaType{}, fmt.Errorf("v4l2: no media type set on %s", r.dev.path)
	}
	return r.current, nil
}

// ReadSample starts streaming on first use and reads the next frame on a
// new goroutine.
func (r *Reader) ReadSample() error {
	if r.closed.Load() {
		return source.ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasType {
		return fmt.Errorf("v4l2: read before media type on %s", r.dev.path)
	}
	if r.inflight {
		return fmt.Errorf("v4l2: read already pending on %s", r.dev.path)
	}
	if !r.streaming {
		if err := r.cam.StartStreaming(); err != nil {
			return fmt.Errorf("v4l2: start %s: %w", r.dev.path, classify(err))
		}
		r.streaming = true
		slog.Info("v4l2: streaming", "device", r.dev.path, "media_type", r.current.String())
	}

	r.inflight = true
	go r.read()
	return nil
}

func (r *Reader) read() {
	frame, index, err := r.next()

	r.mu.Lock()
	r.inflight = false
	if r.closed.Load() {
		if err == nil {
			_ = r.cam.ReleaseFrame(index)
		}
		_ = r.closeIfIdleLocked()
		r.mu.Unlock()
		_ = r.cb.OnReadSample(source.ErrClosed, nil)
		return
	}
	if err == nil {
		r.held++
	}
	r.mu.Unlock()

	if err != nil {
		_ = r.cb.OnReadSample(err, nil)
		return
	}

	r.frames.Add(1)
	buf := &Buffer{data: frame, release: func() error { return r.requeue(index) }}
	if err := r.cb.OnReadSample(nil, &Sample{buf: buf}); err != nil {
		slog.Debug("v4l2: frame rejected", "device", r.dev.path, "error", err)
	}
	if err := buf.finish(); err != nil {
		slog.Warn("v4l2: requeue failed", "device", r.dev.path, "error", err)
	}
}

// next waits for a frame, polling the closed flag between timeouts. It runs
// without the mutex; the device is only released once it returns. The
// returned buffer belongs to the caller until ReleaseFrame(index).
func (r *Reader) next() ([]byte, uint32, error) {
	for !r.closed.Load() {
		err := r.cam.WaitForFrame(frameTimeoutSeconds)
		var timeout *webcam.Timeout
		switch {
		case errors.As(err, &timeout):
			continue
		case err != nil:
			return nil, 0, fmt.Errorf("v4l2: wait %s: %w", r.dev.path, classify(err))
		}

		frame, index, err := r.cam.GetFrame()
		if err != nil {
			return nil, 0, fmt.Errorf("v4l2: read %s: %w", r.dev.path, classify(err))
		}
		if len(frame) == 0 {
			_ = r.cam.ReleaseFrame(index)
			continue
		}
		return frame, index, nil
	}
	return nil, 0, source.ErrClosed
}

// requeue hands driver buffer index back and finishes a deferred close.
func (r *Reader) requeue(index uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.held--
	if r.released {
		return nil
	}
	err := r.cam.ReleaseFrame(index)
	if r.closed.Load() {
		if cerr := r.closeIfIdleLocked(); err == nil {
			err = cerr
		}
	}
	return err
}

// Close stops streaming. When a read is pending or a frame buffer is still
// held, the device is released by whichever finishes last.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Info("v4l2: reader closed", "device", r.dev.path, "frames", r.frames.Load())
	return r.closeIfIdleLocked()
}

func (r *Reader) closeIfIdleLocked() error {
	if r.inflight || r.held > 0 {
		return nil
	}
	return r.releaseLocked()
}

func (r *Reader) releaseLocked() error {
	if r.released {
		return nil
	}
	r.released = true
	if r.streaming {
		_ = r.cam.StopStreaming()
		r.streaming = false
	}
	return r.cam.Close()
}

// classify maps errno values onto device sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %v", source.ErrDeviceBusy, err)
	case errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ENXIO):
		return fmt.Errorf("%w: %v", source.ErrDeviceLost, err)
	default:
		return err
	}
}
