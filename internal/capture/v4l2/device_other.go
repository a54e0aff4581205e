//go:build !linux

package v4l2

import (
	"errors"

	"github.com/e7canasta/camoverlay/internal/source"
)

// ErrUnsupportedPlatform is returned outside Linux.
var ErrUnsupportedPlatform = errors.New("v4l2: only available on linux")

// Device is unavailable on this platform.
type Device struct{ path string }

// NewDevice always fails outside Linux.
func NewDevice(path string, width, height int) (*Device, error) {
	return nil, ErrUnsupportedPlatform
}

// ID is the device path.
func (d *Device) ID() string { return d.path }

// Open always fails outside Linux.
func (d *Device) Open(source.Callback) (source.Reader, error) {
	return nil, ErrUnsupportedPlatform
}
