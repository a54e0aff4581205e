package gstreamer

import (
	"fmt"
	"log/slog"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
)

// Device is a GStreamer source element used as a camera.
type Device struct {
	id         string
	factory    string
	properties map[string]interface{}
	width      int
	height     int
}

// NewDevice returns a device built from the factory element (for example
// "v4l2src") with the given properties. width and height are used when the
// source does not advertise fixed frame sizes.
func NewDevice(id, factory string, properties map[string]interface{}, width, height int) (*Device, error) {
	if factory == "" {
		return nil, fmt.Errorf("gstreamer: source element is required")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gstreamer: invalid size hint %dx%d", width, height)
	}
	if id == "" {
		id = factory
	}
	return &Device{id: id, factory: factory, properties: properties, width: width, height: height}, nil
}

// ID identifies the device in logs and lost-device checks.
func (d *Device) ID() string { return d.id }

// Open builds the pipeline. Nothing streams until a media type is accepted
// and the first sample is requested.
func (d *Device) Open(cb source.Callback) (source.Reader, error) {
	if cb == nil {
		return nil, fmt.Errorf("gstreamer: callback is required")
	}
	elems, err := createPipeline(d.factory, d.properties)
	if err != nil {
		return nil, fmt.Errorf("gstreamer: %w", err)
	}

	slog.Info("gstreamer: device opened", "device", d.id, "source", d.factory)

	return &Reader{
		id:    d.id,
		cb:    cb,
		elems: elems,
		hint: source.MediaType{
			Encoding: pixel.Unknown,
			Native:   "any",
			Width:    d.width,
			Height:   d.height,
		},
	}, nil
}
