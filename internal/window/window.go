// Package window shows the composited camera image in a transparent,
// undecorated, always-on-top ebiten window.
package window

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/e7canasta/camoverlay/internal/surface"
)

// Controls is the settings surface the keyboard drives.
type Controls interface {
	Settings() surface.State
	SetScale(v float64) error
	SetOpacity(v float64) error
	ToggleMirror()
	ToggleMask()
}

// Options configure a Window.
type Options struct {
	Title string
	X, Y  int
}

// Window implements surface.Presenter and surface.WindowMover on top of
// ebiten. Present may be called from any goroutine; drawing happens on the
// ebiten loop.
type Window struct {
	controls Controls
	refresh  func()
	opts     Options
	box      mailbox

	img    *ebiten.Image
	cur    *picture
	width  int
	height int
	drawn  uint64
}

// New returns a display-only window. Bind attaches keyboard controls.
func New(opts Options) *Window {
	if opts.Title == "" {
		opts.Title = "camoverlay"
	}
	return &Window{opts: opts, width: 320, height: 240}
}

// Bind routes key presses to controls. refresh, when not nil, is called
// after every accepted change to re-present the current frame. Bind must be
// called before Run.
func (w *Window) Bind(controls Controls, refresh func()) {
	w.controls = controls
	w.refresh = refresh
}

// Present queues f for the next Draw.
func (w *Window) Present(f surface.Frame) {
	w.box.put(f)
}

// Position returns the window position on screen.
func (w *Window) Position() (int, int) {
	return ebiten.WindowPosition()
}

// Move places the window at x, y.
func (w *Window) Move(x, y int) {
	ebiten.SetWindowPosition(x, y)
}

// Dropped counts presented frames that were replaced before being drawn.
func (w *Window) Dropped() uint64 { return w.box.dropped() }

// Run opens the window and blocks until it is closed, Escape is pressed or
// ctx is done. It must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	ebiten.SetWindowTitle(w.opts.Title)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowSize(w.width, w.height)
	ebiten.SetWindowPosition(w.opts.X, w.opts.Y)
	ebiten.SetRunnableOnUnfocused(true)

	g := &game{w: w, ctx: ctx}
	err := ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{ScreenTransparent: true})
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}

	slog.Info("window: closed", "frames_drawn", w.drawn, "frames_dropped", w.Dropped())
	return err
}

type game struct {
	w   *Window
	ctx context.Context
}

func (g *game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	g.w.handleKeys()
	g.w.upload()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	w := g.w
	if w.img == nil || w.cur == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.ColorScale.ScaleAlpha(float32(w.cur.alpha) / 255)
	screen.DrawImage(w.img, op)
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.w.width, g.w.height
}

// upload writes the newest frame into the window image, resizing the window
// when the visible size changed.
func (w *Window) upload() {
	p, ok := w.box.take()
	if !ok {
		return
	}
	if p.width != w.width || p.height != w.height || w.img == nil {
		if w.img != nil {
			w.img.Deallocate()
		}
		w.width, w.height = p.width, p.height
		w.img = ebiten.NewImage(p.width, p.height)
		ebiten.SetWindowSize(p.width, p.height)
		slog.Debug("window: resized", "width", p.width, "height", p.height)
	}
	w.img.WritePixels(p.rgba)
	w.cur = p
	w.drawn++
}

// handleKeys maps 1-6 to the scale presets, Up and Down to the opacity
// presets, M to mirror and C to the circle mask.
func (w *Window) handleKeys() {
	if w.controls == nil {
		return
	}

	changed := false
	for i, key := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5, ebiten.Key6} {
		if i < len(surface.ScalePresets) && inpututil.IsKeyJustPressed(key) {
			changed = w.apply("scale", w.controls.SetScale(surface.ScalePresets[i])) || changed
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		changed = w.apply("opacity", w.controls.SetOpacity(stepPreset(surface.OpacityPresets, w.controls.Settings().Opacity, 1))) || changed
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		changed = w.apply("opacity", w.controls.SetOpacity(stepPreset(surface.OpacityPresets, w.controls.Settings().Opacity, -1))) || changed
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		w.controls.ToggleMirror()
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		w.controls.ToggleMask()
		changed = true
	}

	if changed && w.refresh != nil {
		w.refresh()
	}
}

func (w *Window) apply(setting string, err error) bool {
	if err != nil {
		slog.Warn("window: setting rejected", "setting", setting, "error", err)
		return false
	}
	return true
}

// stepPreset returns the preset after (dir > 0) or before cur, clamped to
// the ends of presets.
func stepPreset(presets []float64, cur float64, dir int) float64 {
	const eps = 1e-9
	if dir > 0 {
		for _, p := range presets {
			if p > cur+eps {
				return p
			}
		}
		return presets[len(presets)-1]
	}
	for i := len(presets) - 1; i >= 0; i-- {
		if presets[i] < cur-eps {
			return presets[i]
		}
	}
	return presets[0]
}
