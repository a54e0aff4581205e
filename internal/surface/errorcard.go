package surface

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/e7canasta/camoverlay/internal/source"
)

const busyMessage = "Another app is using the camera already."

var (
	cardTop    = color.RGBA{R: 0, G: 212, B: 255, A: 255}
	cardBottom = color.RGBA{R: 0, G: 25, B: 29, A: 255}
)

// ErrorMessage is the text shown on the error card for err.
func ErrorMessage(err error) string {
	if errors.Is(err, source.ErrDeviceBusy) {
		return busyMessage
	}
	return "Error: " + err.Error()
}

// OnFrameError replaces the content surface with an error card and presents it.
func (l *Layered) OnFrameError(err error) {
	if l.content == nil || err == nil {
		return
	}

	l.content.Clear()
	paintGradient(l.content)
	paintText(l.content, ErrorMessage(err), 10, 10, 200)

	l.Update()
}

// paintGradient fills s along the backward diagonal of a rectangle twice as
// wide as the surface.
func paintGradient(s *Surface) {
	gw := float64(s.Width * 2)
	gh := float64(s.Height)

	for vy := 0; vy < s.Height; vy++ {
		row := s.Row(s.Height - 1 - vy)
		for x := 0; x < s.Width; x++ {
			t := ((gw-float64(x))/gw + float64(vy)/gh) / 2
			p := row[x*4 : x*4+4]
			p[0] = lerp(cardTop.B, cardBottom.B, t)
			p[1] = lerp(cardTop.G, cardBottom.G, t)
			p[2] = lerp(cardTop.R, cardBottom.R, t)
			p[3] = 0xFF
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

// paintText draws msg in white at (x, y) from the visual top-left, with the
// given alpha.
func paintText(s *Surface, msg string, x, y int, alpha uint8) {
	face := basicfont.Face7x13
	coverage := image.NewAlpha(image.Rect(0, 0, s.Width, s.Height))

	d := font.Drawer{
		Dst:  coverage,
		Src:  image.NewUniform(color.Alpha{A: alpha}),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(msg)

	for vy := 0; vy < s.Height; vy++ {
		cov := coverage.Pix[vy*coverage.Stride : vy*coverage.Stride+s.Width]
		row := s.Row(s.Height - 1 - vy)
		for px, a := range cov {
			if a == 0 {
				continue
			}
			p := row[px*4 : px*4+3]
			for i := range p {
				p[i] += uint8(int(0xFF-p[i]) * int(a) / 0xFF)
			}
		}
	}
}
