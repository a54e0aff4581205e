package surface

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/e7canasta/camoverlay/internal/pixel"
)

// minVisibleWidth is how much of the window must stay on screen after a
// scale change before it is pulled back to the left edge.
const minVisibleWidth = 30

// Layered owns the canonical frame buffer and the content, half, double and
// masked scratch surfaces of one video session. The content surface is only
// written by OnNewFrame and OnFrameError, so Update can run any number of
// times on the same frame.
//
// Frame methods (Reset, OnNewFrame, OnFrameError, Update, Release) must be
// serialized by the caller. Setting methods may be called from any goroutine;
// each Update works from one snapshot of them.
type Layered struct {
	presenter Presenter
	mover     WindowMover

	frame   []byte
	content *Surface
	half    *Surface
	double  *Surface
	masked  *Surface

	mask     MaskCache
	preScale float64

	state       atomic.Pointer[State]
	pendingMove atomic.Bool
}

// NewLayered returns a compositor presenting through p. mover may be nil when
// the presenter cannot be repositioned.
func NewLayered(p Presenter, mover WindowMover, initial State) (*Layered, error) {
	if p == nil {
		return nil, fmt.Errorf("surface: presenter is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	l := &Layered{presenter: p, mover: mover, preScale: initial.Scale}
	l.state.Store(&initial)
	return l, nil
}

// Reset sizes every surface for a width x height stream. A zero size or the
// current size leaves the surfaces untouched.
func (l *Layered) Reset(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if l.content != nil && l.content.Width == width && l.content.Height == height {
		return
	}

	l.content = NewSurface(width, height)
	l.half = NewSurface(width, height)
	l.double = NewSurface(width*2, height*2)
	l.masked = NewSurface(width, height)
	l.frame = make([]byte, width*height*4)

	slog.Debug("surface: reset", "width", width, "height", height)
}

// Release drops all surfaces. Update is a no-op until the next Reset.
func (l *Layered) Release() {
	l.content, l.half, l.double, l.masked = nil, nil, nil, nil
	l.frame = nil
}

// Size returns the content size, or zero before Reset.
func (l *Layered) Size() (width, height int) {
	if l.content == nil {
		return 0, 0
	}
	return l.content.Width, l.content.Height
}

// FrameBuffer is the top-down canonical buffer decoders write into.
func (l *Layered) FrameBuffer() pixel.Plane {
	w, h := l.Size()
	return pixel.Packed(l.frame, w, h)
}

// OnNewFrame copies the canonical buffer into the content surface, flipping
// it into bottom-up storage and mirroring it when enabled, then presents.
// The fourth byte of a canonical pixel is padding, so content pixels are
// stored opaque.
func (l *Layered) OnNewFrame() {
	if l.content == nil {
		return
	}

	w, h := l.content.Width, l.content.Height
	stride := w * 4
	mirror := l.state.Load().Mirror

	for y := 0; y < h; y++ {
		src := l.frame[y*stride : (y+1)*stride]
		dst := l.content.Row(h - 1 - y)
		if mirror {
			for x := 0; x < w; x++ {
				copy(dst[(w-1-x)*4:(w-x)*4], src[x*4:x*4+4])
			}
		} else {
			copy(dst, src)
		}
		for x := 3; x < len(dst); x += 4 {
			dst[x] = 0xFF
		}
	}

	l.Update()
}

// Update composites the content surface for the current settings and
// presents it.
func (l *Layered) Update() {
	if l.content == nil {
		return
	}

	st := l.state.Load()
	target, dw, dh := l.selectDisplay(st.Scale)

	if st.Mask {
		if target == l.content {
			copy(l.masked.Pix, l.content.Pix)
			target = l.masked
		}
		l.blendMask(target, dw, dh)
	}

	l.presenter.Present(Frame{
		Pix:    target.Pix,
		Width:  target.Width,
		Height: target.Height,
		Stride: target.Stride(),
		Alpha:  globalAlpha(st.Opacity),

		ViewWidth:  dw,
		ViewHeight: dh,
		Masked:     st.Mask,
	})

	l.resetWindowPos(dw)
}

// selectDisplay picks the surface for scale, stretches content into it and
// returns it with the display size. A scale outside (0, 2] is a programming
// error.
func (l *Layered) selectDisplay(scale float64) (*Surface, int, int) {
	w, h := l.content.Width, l.content.Height
	if scale == 1.0 {
		l.preScale = scale
		return l.content, w, h
	}

	var dst *Surface
	switch {
	case scale > 0 && scale < 1.0:
		dst = l.half
	case scale > 1.0 && scale <= MaxScale:
		dst = l.double
	default:
		panic(fmt.Sprintf("surface: scale %v outside (0, %v]", scale, MaxScale))
	}

	if scale != l.preScale {
		dst.Clear()
		l.preScale = scale
	}

	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	l.content.StretchTo(dst, dw, dh)
	return dst, dw, dh
}

func (l *Layered) resetWindowPos(displayWidth int) {
	if !l.pendingMove.CompareAndSwap(true, false) {
		return
	}
	if l.mover == nil {
		return
	}

	x, y := l.mover.Position()
	if x+displayWidth < minVisibleWidth {
		slog.Debug("surface: window pulled back on screen", "x", x, "width", displayWidth)
		l.mover.Move(0, y)
	}
}

// Settings returns the current snapshot.
func (l *Layered) Settings() State {
	return *l.state.Load()
}

// SetSettings replaces every setting at once.
func (l *Layered) SetSettings(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	old := l.state.Swap(&s)
	if old.Scale != s.Scale {
		l.pendingMove.Store(true)
	}
	return nil
}

// SetScale changes the display scale and schedules a window position check.
func (l *Layered) SetScale(v float64) error {
	if !ValidScale(v) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, v)
	}
	l.modify(func(s *State) { s.Scale = v })
	l.pendingMove.Store(true)
	return nil
}

// SetOpacity changes the window opacity.
func (l *Layered) SetOpacity(v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidOpacity, v)
	}
	l.modify(func(s *State) { s.Opacity = v })
	return nil
}

// ToggleMirror flips horizontal mirroring.
func (l *Layered) ToggleMirror() {
	l.modify(func(s *State) { s.Mirror = !s.Mirror })
}

// ToggleMask flips the circular mask.
func (l *Layered) ToggleMask() {
	l.modify(func(s *State) { s.Mask = !s.Mask })
}

// MaskRecomputations reports how often the mask was rendered.
func (l *Layered) MaskRecomputations() int { return l.mask.Recomputations() }

func (l *Layered) modify(fn func(*State)) {
	for {
		old := l.state.Load()
		next := *old
		fn(&next)
		if l.state.CompareAndSwap(old, &next) {
			return
		}
	}
}
