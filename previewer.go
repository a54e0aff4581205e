package camoverlay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/camoverlay/internal/decode"
	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
	"github.com/e7canasta/camoverlay/internal/telemetry"
)

var (
	// ErrUnsupportedFormat is returned when no native media type of a device
	// can be delivered in a supported encoding.
	ErrUnsupportedFormat = errors.New("camoverlay: no supported media type")
	// ErrNoDevice is returned by SetDevice for a nil device.
	ErrNoDevice = errors.New("camoverlay: device is required")
)

// Previewer connects a capture device to an Overlay.
type Previewer struct {
	mu        sync.Mutex
	overlay   *Overlay
	decoder   *decode.Decoder
	reader    source.Reader
	deviceID  string
	sessionID string
	mediaType source.MediaType

	onResize  func(width, height int)
	onError   func(deviceID string, err error)
	preferred pixel.Encoding

	framesPresented atomic.Uint64
	framesDropped   atomic.Uint64
	captureErrors   atomic.Uint64
	clock           *telemetry.FrameClock
	decodeLatency   atomic.Pointer[telemetry.LatencyWindow]
}

// Option configures a Previewer.
type Option func(*Previewer)

// WithResizeHook registers fn to be called with the negotiated frame size
// every time a device is selected.
func WithResizeHook(fn func(width, height int)) Option {
	return func(p *Previewer) { p.onResize = fn }
}

// WithErrorHook registers fn to be called with every capture error after the
// error card is shown. fn runs with the previewer locked and must not call
// back into it; hand the error to another goroutine instead.
func WithErrorHook(fn func(deviceID string, err error)) Option {
	return func(p *Previewer) { p.onError = fn }
}

// WithPreferredEncoding makes negotiation propose enc before the other
// supported encodings when a native type needs conversion.
func WithPreferredEncoding(enc Encoding) Option {
	return func(p *Previewer) { p.preferred = enc }
}

// NewPreviewer returns a Previewer drawing into overlay.
func NewPreviewer(overlay *Overlay, opts ...Option) (*Previewer, error) {
	if overlay == nil {
		return nil, fmt.Errorf("camoverlay: overlay is required")
	}

	p := &Previewer{
		overlay: overlay,
		decoder: decode.New(overlay),
		clock:   telemetry.NewFrameClock(telemetry.DefaultWindow),
	}
	p.decodeLatency.Store(&telemetry.LatencyWindow{})
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Overlay returns the overlay frames are drawn into.
func (p *Previewer) Overlay() *Overlay { return p.overlay }

// SetDevice closes the current device, opens dev, negotiates a media type and
// requests the first frame.
func (p *Previewer) SetDevice(dev Device) error {
	if dev == nil {
		return ErrNoDevice
	}
	if err := p.CloseDevice(); err != nil {
		slog.Warn("camoverlay: closing previous device failed", "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reader, err := dev.Open(p)
	if err != nil {
		return fmt.Errorf("camoverlay: open %s: %w", dev.ID(), err)
	}

	mt, err := p.negotiate(reader)
	if err != nil {
		_ = reader.Close()
		return fmt.Errorf("camoverlay: %s: %w", dev.ID(), err)
	}

	p.overlay.Reset(mt.Width, mt.Height)
	p.reader = reader
	p.deviceID = dev.ID()
	p.sessionID = uuid.New().String()
	p.mediaType = mt
	p.framesPresented.Store(0)
	p.framesDropped.Store(0)
	p.captureErrors.Store(0)
	p.clock.Reset()
	p.decodeLatency.Store(&telemetry.LatencyWindow{})

	if p.onResize != nil {
		p.onResize(mt.Width, mt.Height)
	}

	if err := reader.ReadSample(); err != nil {
		p.closeLocked()
		return fmt.Errorf("camoverlay: first frame request: %w", err)
	}

	slog.Info("camoverlay: device opened",
		"device", p.deviceID,
		"session_id", p.sessionID,
		"media_type", mt.String(),
		"stride", mt.DefaultStride,
	)
	return nil
}

// negotiate walks the device's native media types until one can be
// delivered in a supported encoding.
func (p *Previewer) negotiate(reader source.Reader) (source.MediaType, error) {
	for i := 0; ; i++ {
		native, err := reader.NativeMediaType(i)
		if errors.Is(err, source.ErrNoMoreTypes) {
			return source.MediaType{}, ErrUnsupportedFormat
		}
		if err != nil {
			return source.MediaType{}, fmt.Errorf("native media type %d: %w", i, err)
		}

		mt, err := p.tryMediaType(reader, native)
		if err == nil {
			return mt, nil
		}
		slog.Debug("camoverlay: media type rejected", "index", i, "native", native.String(), "error", err)
	}
}

// tryMediaType accepts native as is when it is supported, otherwise proposes
// each supported encoding at the native size in table order.
func (p *Previewer) tryMediaType(reader source.Reader, native source.MediaType) (source.MediaType, error) {
	if pixel.IsSupported(native.Encoding) {
		if err := reader.SetCurrentMediaType(native); err != nil {
			return source.MediaType{}, err
		}
		return p.useCurrent(reader)
	}

	for _, enc := range p.proposals() {
		proposed := source.MediaType{Encoding: enc, Width: native.Width, Height: native.Height}
		if err := reader.SetCurrentMediaType(proposed); err != nil {
			slog.Debug("camoverlay: proposal rejected", "proposed", proposed.String(), "error", err)
			continue
		}
		return p.useCurrent(reader)
	}
	return source.MediaType{}, fmt.Errorf("%w: %s", pixel.ErrUnsupportedEncoding, native)
}

// proposals lists the supported encodings in table order, with the
// preferred one moved to the front.
func (p *Previewer) proposals() []pixel.Encoding {
	var out []pixel.Encoding
	if pixel.IsSupported(p.preferred) {
		out = append(out, p.preferred)
	}
	for i := 0; ; i++ {
		enc, err := pixel.EnumerateSupported(i)
		if err != nil {
			return out
		}
		if enc != p.preferred {
			out = append(out, enc)
		}
	}
}

func (p *Previewer) useCurrent(reader source.Reader) (source.MediaType, error) {
	mt, err := reader.CurrentMediaType()
	if err != nil {
		return source.MediaType{}, err
	}
	if err := p.decoder.SetMediaType(mt); err != nil {
		return source.MediaType{}, err
	}
	return mt, nil
}

// OnReadSample decodes and presents one sample, then requests the next.
// It is called by the capture backend on its own goroutine.
func (p *Previewer) OnReadSample(err error, sample source.Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reader == nil {
		return nil
	}

	if err != nil {
		p.captureErrors.Add(1)
		slog.Error("camoverlay: capture error",
			"device", p.deviceID,
			"session_id", p.sessionID,
			"error", err,
		)
		p.overlay.OnFrameError(err)
		if p.onError != nil {
			p.onError(p.deviceID, err)
		}
		return err
	}

	if sample != nil {
		start := time.Now()
		if err := p.drawSample(sample); err != nil {
			p.framesDropped.Add(1)
			slog.Warn("camoverlay: frame dropped",
				"session_id", p.sessionID,
				"error", err,
				"frames_presented", p.framesPresented.Load(),
			)
			return err
		}
		now := time.Now()
		p.recordDecode(now.Sub(start))
		p.framesPresented.Add(1)
		p.clock.Tick(now)
	}

	if err := p.reader.ReadSample(); err != nil {
		slog.Error("camoverlay: next frame request failed", "session_id", p.sessionID, "error", err)
		return err
	}
	return nil
}

// recordDecode publishes a copy of the latency window with d added. Callers
// hold p.mu, so copies never race each other.
func (p *Previewer) recordDecode(d time.Duration) {
	next := *p.decodeLatency.Load()
	next.AddSample(float64(d.Microseconds()) / 1000)
	p.decodeLatency.Store(&next)
}

func (p *Previewer) drawSample(sample source.Sample) error {
	if sample.BufferCount() == 0 {
		return fmt.Errorf("camoverlay: sample without buffers")
	}
	buf, err := sample.Buffer(0)
	if err != nil {
		return err
	}
	return p.decoder.DrawFrame(buf)
}

// Refresh re-presents the last frame with the current settings, so a
// settings change shows before the next frame arrives.
func (p *Previewer) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader == nil {
		return
	}
	p.overlay.Update()
}

// IsDeviceLost reports whether id names the open device. The caller is
// expected to CloseDevice when it does.
func (p *Previewer) IsDeviceLost(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader != nil && id == p.deviceID
}

// CloseDevice releases the reader and the overlay surfaces. Callbacks still
// in flight observe the closed reader and return without drawing.
func (p *Previewer) CloseDevice() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Previewer) closeLocked() error {
	if p.reader == nil {
		return nil
	}

	err := p.reader.Close()
	p.reader = nil
	p.overlay.Release()

	slog.Info("camoverlay: device closed",
		"device", p.deviceID,
		"session_id", p.sessionID,
		"frames_presented", p.framesPresented.Load(),
		"frames_dropped", p.framesDropped.Load(),
	)
	p.deviceID = ""

	if err != nil {
		return fmt.Errorf("camoverlay: close reader: %w", err)
	}
	return nil
}

// Stats returns current preview statistics.
func (p *Previewer) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		SessionID: p.sessionID,
		DeviceID:  p.deviceID,
		IsOpen:    p.reader != nil,
	}
	if s.IsOpen {
		s.MediaType = p.mediaType.String()
	}
	p.mu.Unlock()

	s.FramesPresented = p.framesPresented.Load()
	s.FramesDropped = p.framesDropped.Load()
	s.CaptureErrors = p.captureErrors.Load()
	s.FPS = p.clock.Stats()
	s.DecodeMeanMS, s.DecodeP95MS, s.DecodeMaxMS = p.decodeLatency.Load().GetStats()
	if last := p.clock.Last(); !last.IsZero() {
		s.LatencyMS = time.Since(last).Milliseconds()
	}
	return s
}
