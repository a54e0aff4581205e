package surface

// Frame is one presentation request: a bottom-up B,G,R,A surface shown with
// a constant global alpha. Pix is only valid for the duration of Present.
//
// The image occupies the top-left ViewWidth x ViewHeight of the surface; the
// rest is cleared. Per-pixel alpha is meaningful only when Masked is set.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
	Alpha  uint8

	ViewWidth  int
	ViewHeight int
	Masked     bool
}

// Presenter displays frames, typically by updating a layered window.
type Presenter interface {
	Present(f Frame)
}

// WindowMover reads and moves the presenting window in screen coordinates.
type WindowMover interface {
	Position() (x, y int)
	Move(x, y int)
}

// globalAlpha maps opacity to the layered window alpha byte.
func globalAlpha(opacity float64) uint8 {
	alpha := uint8(0xFF)
	if opacity != 1.0 {
		alpha = uint8(float64(alpha) * opacity)
	}
	return alpha
}
