package surface

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScale is returned for scales outside (0, 2].
	ErrInvalidScale = errors.New("surface: scale must be in (0, 2]")
	// ErrInvalidOpacity is returned for opacity outside [0, 1].
	ErrInvalidOpacity = errors.New("surface: opacity must be in [0, 1]")
)

// MaxScale is the largest supported display scale.
const MaxScale = 2.0

// ScalePresets are the display scales offered to the user.
var ScalePresets = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// OpacityPresets are the window opacities offered to the user.
var OpacityPresets = []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// State is an immutable snapshot of the compositing settings. Update reads
// exactly one snapshot per frame.
type State struct {
	Scale   float64
	Opacity float64
	Mirror  bool
	Mask    bool
}

// DefaultState mirrors the camera image at native size, fully opaque.
func DefaultState() State {
	return State{Scale: 1.0, Opacity: 1.0, Mirror: true}
}

// ValidScale reports whether v can be composited.
func ValidScale(v float64) bool {
	return v > 0 && v <= MaxScale
}

// Validate checks every field.
func (s State) Validate() error {
	if !ValidScale(s.Scale) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, s.Scale)
	}
	if !(s.Opacity >= 0 && s.Opacity <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidOpacity, s.Opacity)
	}
	return nil
}
