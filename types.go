package camoverlay

import (
	"github.com/e7canasta/camoverlay/internal/bufferlock"
	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
	"github.com/e7canasta/camoverlay/internal/surface"
	"github.com/e7canasta/camoverlay/internal/telemetry"
)

type (
	// Overlay composites frames into the presented surfaces.
	Overlay = surface.Layered
	// Settings is a snapshot of scale, opacity, mirror and mask.
	Settings = surface.State
	// Presenter displays composited frames.
	Presenter = surface.Presenter
	// PresentedFrame is one bottom-up BGRA frame with a global alpha.
	PresentedFrame = surface.Frame
	// WindowMover repositions the presenting window.
	WindowMover = surface.WindowMover

	// Device opens a capture reader.
	Device = source.Device
	// MediaType describes a capture stream format.
	MediaType = source.MediaType
	// Encoding is a source pixel encoding.
	Encoding = pixel.Encoding

	// FPSStats summarizes the recent presentation rate.
	FPSStats = telemetry.FPSStats
)

// Supported encodings in negotiation order.
const (
	RGB32 = pixel.RGB32
	RGB24 = pixel.RGB24
	YUY2  = pixel.YUY2
	NV12  = pixel.NV12
)

var (
	// ErrUnsupportedEncoding is returned when no transform matches an encoding.
	ErrUnsupportedEncoding = pixel.ErrUnsupportedEncoding
	// ErrLockFailed is returned when a frame buffer cannot be locked.
	ErrLockFailed = bufferlock.ErrLockFailed
	// ErrInvalidScale is returned for scales outside (0, 2].
	ErrInvalidScale = surface.ErrInvalidScale
	// ErrDeviceBusy reports a camera held by another application.
	ErrDeviceBusy = source.ErrDeviceBusy
	// ErrDeviceLost reports a camera that disappeared.
	ErrDeviceLost = source.ErrDeviceLost
)

// ScalePresets are the display scales offered to the user.
var ScalePresets = surface.ScalePresets

// OpacityPresets are the window opacities offered to the user.
var OpacityPresets = surface.OpacityPresets

// DefaultSettings mirrors the camera at native size, fully opaque, unmasked.
func DefaultSettings() Settings {
	return surface.DefaultState()
}

// NewOverlay returns an Overlay presenting through p. mover may be nil.
func NewOverlay(p Presenter, mover WindowMover, s Settings) (*Overlay, error) {
	return surface.NewLayered(p, mover, s)
}

// Stats contains preview statistics.
type Stats struct {
	// SessionID identifies the current device session in logs.
	SessionID string
	// DeviceID is the open device, empty when closed.
	DeviceID string
	// MediaType is the negotiated stream format.
	MediaType string
	// FramesPresented counts frames decoded and presented.
	FramesPresented uint64
	// FramesDropped counts frames that failed to lock or decode.
	FramesDropped uint64
	// CaptureErrors counts errors reported by the capture backend.
	CaptureErrors uint64
	// FPS summarizes the recent presentation rate.
	FPS FPSStats
	// LatencyMS is the time since the last presented frame.
	LatencyMS int64
	// Decode latency over the last 100 frames, in milliseconds.
	DecodeMeanMS float64
	DecodeP95MS  float64
	DecodeMaxMS  float64
	// IsOpen indicates a device is selected.
	IsOpen bool
}
