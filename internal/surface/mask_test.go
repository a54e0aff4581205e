package surface

import (
	"bytes"
	"testing"
)

func TestMaskCache_Idempotent(t *testing.T) {
	var m MaskCache

	first := append([]byte(nil), m.Prepare(40, 20)...)
	second := m.Prepare(40, 20)
	if m.Recomputations() != 1 {
		t.Fatalf("recomputations = %d after repeated size, want 1", m.Recomputations())
	}
	if !bytes.Equal(first, second) {
		t.Error("cached mask changed between calls")
	}

	m.Prepare(20, 40)
	if m.Recomputations() != 2 {
		t.Errorf("recomputations = %d after new size, want 2", m.Recomputations())
	}
	if got := len(m.Prepare(20, 40)); got != 20*40 {
		t.Errorf("mask length = %d", got)
	}
}

func TestMaskCache_Shape(t *testing.T) {
	const w, h = 40, 20
	var m MaskCache
	mask := m.Prepare(w, h)

	// radius 10 centred at (20, 10) from the top; storage rows are bottom-up
	at := func(x, visualY int) byte { return mask[(h-1-visualY)*w+x] }

	if at(20, 10) != 0xFF {
		t.Errorf("centre = %d, want 255", at(20, 10))
	}
	if at(0, 0) != 0 || at(w-1, h-1) != 0 || at(5, 10) != 0 {
		t.Error("pixels outside the circle are not transparent")
	}

	var partial int
	for _, a := range mask {
		if a > 0 && a < 0xFF {
			partial++
		}
	}
	if partial == 0 {
		t.Error("mask edge is not anti-aliased")
	}
}

func TestCastPixel(t *testing.T) {
	testCases := []struct {
		name string
		a    uint8
		want []byte
	}{
		{"transparent zeroes", 0, []byte{0, 0, 0, 0}},
		{"opaque keeps color", 255, []byte{100, 150, 200, 255}},
		{"half scales color", 128, []byte{50, 75, 100, 128}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := []byte{100, 150, 200, 255}
			castPixel(p, tc.a)
			if !bytes.Equal(p, tc.want) {
				t.Errorf("got %v, want %v", p, tc.want)
			}
		})
	}
}

func TestBlendMask_BottomRowsOnly(t *testing.T) {
	st := DefaultState()
	st.Scale = 0.5
	st.Mask = true
	l, p := newTestLayered(t, 8, 8, st)

	fb := l.FrameBuffer()
	for i := range fb.Pix {
		fb.Pix[i] = 0xFF
	}
	l.OnNewFrame()

	f := p.last()
	// display area is storage rows [4, 8), columns [0, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if a := f.Pix[y*f.Stride+x*4+3]; a != 0 {
				t.Fatalf("pixel (%d,%d) outside display area has alpha %d", x, y, a)
			}
		}
	}
	if l.MaskRecomputations() != 1 {
		t.Errorf("recomputations = %d", l.MaskRecomputations())
	}

	l.OnNewFrame()
	if l.MaskRecomputations() != 1 {
		t.Errorf("mask recomputed for the same display size")
	}
}
