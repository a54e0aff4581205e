// Package gstreamer captures camera frames through a GStreamer pipeline.
package gstreamer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
)

// prerollTimeout bounds how long a proposed format may take to produce a frame.
const prerollTimeout = 3 * time.Second

// Reader delivers appsink samples one request at a time.
type Reader struct {
	id    string
	cb    source.Callback
	elems *pipelineElements
	hint  source.MediaType

	mu      sync.Mutex
	natives []source.MediaType
	probed  bool
	current source.MediaType
	hasType bool
	playing bool
	cancel  context.CancelFunc
	lastErr error

	closed    atomic.Bool
	samples   atomic.Uint64
	errors    errorCounters
	startedAt time.Time
}

// NativeMediaType returns the raw formats the source offers at index i.
// Formats the source only describes with ranges are replaced by the size
// hint of the device with an unknown encoding, which makes callers propose
// their own encodings.
func (r *Reader) NativeMediaType(index int) (source.MediaType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return source.MediaType{}, source.ErrClosed
	}
	if !r.probed {
		if err := r.probe(); err != nil {
			return source.MediaType{}, err
		}
	}
	if index < 0 || index >= len(r.natives) {
		return source.MediaType{}, source.ErrNoMoreTypes
	}
	return r.natives[index], nil
}

func (r *Reader) probe() error {
	if err := r.elems.Pipeline.SetState(gst.StateReady); err != nil {
		if busErr := drainError(r.elems.Pipeline); busErr != nil {
			return busErr
		}
		return fmt.Errorf("gstreamer: open %s: %w", r.id, err)
	}

	pad := r.elems.Source.GetStaticPad("src")
	if pad != nil {
		if caps := pad.QueryCaps(nil); caps != nil {
			r.natives = nativeTypes(caps)
		}
	}
	if len(r.natives) == 0 {
		r.natives = []source.MediaType{r.hint}
	}
	r.probed = true

	slog.Debug("gstreamer: native media types", "device", r.id, "count", len(r.natives))
	return nil
}

// nativeTypes reads fixed raw formats out of caps.
func nativeTypes(caps *gst.Caps) []source.MediaType {
	var out []source.MediaType
	for i := 0; i < caps.GetSize(); i++ {
		st := caps.GetStructureAt(i)
		if st == nil {
			continue
		}
		w, wok := intField(st, "width")
		h, hok := intField(st, "height")
		if !wok || !hok {
			continue
		}

		mt := source.MediaType{Native: st.Name(), Width: w, Height: h}
		if st.Name() == "video/x-raw" {
			if v, err := st.GetValue("format"); err == nil {
				if format, ok := v.(string); ok {
					mt.Native = format
					mt.Encoding = encodingOf(format)
					mt.DefaultStride = defaultStride(mt.Encoding, w)
					mt.ChromaOffset = chromaOffset(mt.Encoding, w, h)
				}
			}
		}
		out = append(out, mt)
	}
	return out
}

func intField(st *gst.Structure, key string) (int, bool) {
	v, err := st.GetValue(key)
	if err != nil {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok && n > 0
}

// SetCurrentMediaType constrains the source to mt and checks that it
// prerolls a frame in that format.
func (r *Reader) SetCurrentMediaType(mt source.MediaType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return source.ErrClosed
	}
	format, ok := formatName(mt.Encoding)
	if !ok {
		return fmt.Errorf("%w: %s", pixel.ErrUnsupportedEncoding, mt)
	}

	caps := rawCaps(format, mt.Width, mt.Height)
	if err := r.elems.Pipeline.SetState(gst.StateReady); err != nil {
		return fmt.Errorf("gstreamer: reset for %s: %w", caps, err)
	}
	r.elems.CapsFilter.SetProperty("caps", gst.NewCapsFromString(caps))

	if err := r.elems.Pipeline.SetState(gst.StatePaused); err != nil {
		return r.rejected(caps, err)
	}
	if sample := r.elems.AppSink.TryPullPreroll(prerollTimeout); sample == nil {
		return r.rejected(caps, ErrPrerollTimeout)
	}

	r.current = source.MediaType{
		Encoding:      mt.Encoding,
		Native:        format,
		Width:         mt.Width,
		Height:        mt.Height,
		DefaultStride: defaultStride(mt.Encoding, mt.Width),
		ChromaOffset:  chromaOffset(mt.Encoding, mt.Width, mt.Height),
	}
	r.hasType = true

	slog.Debug("gstreamer: media type accepted", "device", r.id, "caps", caps)
	return nil
}

func (r *Reader) rejected(caps string, cause error) error {
	if busErr := drainError(r.elems.Pipeline); busErr != nil {
		cause = busErr
	}
	_ = r.elems.Pipeline.SetState(gst.StateReady)
	return fmt.Errorf("gstreamer: %s: %w", caps, cause)
}

// CurrentMediaType returns the last accepted media type.
func (r *Reader) CurrentMediaType() (source.MediaType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasType {
		return source.MediaType{}, fmt.Errorf("gstreamer: no media type set on %s", r.id)
	}
	return r.current, nil
}

// ReadSample starts the pipeline on first use and delivers the next sample
// to the callback from a new goroutine.
func (r *Reader) ReadSample() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return source.ErrClosed
	}
	if !r.hasType {
		return fmt.Errorf("gstreamer: read before media type on %s", r.id)
	}
	if !r.playing {
		if err := r.elems.Pipeline.SetState(gst.StatePlaying); err != nil {
			return fmt.Errorf("gstreamer: start %s: %w", r.id, err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.playing = true
		r.startedAt = time.Now()
		go monitorBus(ctx, r)

		slog.Info("gstreamer: pipeline playing", "device", r.id, "media_type", r.current.String())
	}

	go r.pull()
	return nil
}

func (r *Reader) pull() {
	sample := r.elems.AppSink.PullSample()
	if sample == nil {
		_ = r.cb.OnReadSample(r.stopCause(), nil)
		return
	}
	r.samples.Add(1)

	if err := r.cb.OnReadSample(nil, &Sample{sample: sample}); err != nil {
		slog.Debug("gstreamer: sample rejected", "device", r.id, "error", err)
	}
}

// fail records why the stream stopped and stops the pipeline.
func (r *Reader) fail(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	_ = r.elems.Pipeline.SetState(gst.StateNull)
}

func (r *Reader) stopCause() error {
	if r.closed.Load() {
		return source.ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr != nil {
		return r.lastErr
	}
	return source.ErrEndOfStream
}

// Close stops the pipeline. A pending pull returns and reports ErrClosed.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	slog.Info("gstreamer: reader closed",
		"device", r.id,
		"samples", r.samples.Load(),
		"errors_busy", r.errors.Busy.Load(),
		"errors_lost", r.errors.Lost.Load(),
		"errors_negotiation", r.errors.Negotiation.Load(),
		"errors_unknown", r.errors.Unknown.Load(),
	)

	if err := destroyPipeline(r.elems); err != nil && !errors.Is(err, source.ErrClosed) {
		return err
	}
	return nil
}

// Sample is one appsink sample.
type Sample struct {
	sample *gst.Sample
}

// BufferCount is always 1: appsink samples carry one buffer.
func (s *Sample) BufferCount() int { return 1 }

// Buffer returns the sample's buffer.
func (s *Sample) Buffer(index int) (source.Buffer, error) {
	if index != 0 {
		return nil, fmt.Errorf("gstreamer: buffer index %d out of range", index)
	}
	buf := s.sample.GetBuffer()
	if buf == nil {
		return nil, fmt.Errorf("gstreamer: sample without buffer")
	}
	return &Buffer{buf: buf}, nil
}

// Buffer maps a GStreamer buffer for reading. It has no pitch of its own,
// so it is locked linearly with the negotiated stride.
type Buffer struct {
	buf    *gst.Buffer
	mapped bool
}

// Lock maps the buffer memory.
func (b *Buffer) Lock() ([]byte, error) {
	info := b.buf.Map(gst.MapRead)
	if info == nil {
		return nil, fmt.Errorf("gstreamer: buffer map failed")
	}
	data := info.Bytes()
	if len(data) == 0 {
		b.buf.Unmap()
		return nil, fmt.Errorf("gstreamer: empty buffer")
	}
	b.mapped = true
	return data, nil
}

// Unlock unmaps the buffer.
func (b *Buffer) Unlock() error {
	if !b.mapped {
		return nil
	}
	b.mapped = false
	b.buf.Unmap()
	return nil
}
