package window

import (
	"sync"
	"testing"

	"github.com/e7canasta/camoverlay/internal/surface"
)

// solidFrame is a bottom-up w x h frame whose every pixel is b,g,r,a.
func solidFrame(w, h int, b, g, r, a byte) surface.Frame {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = b, g, r, a
	}
	return surface.Frame{Pix: pix, Width: w, Height: h, Stride: w * 4, Alpha: 255, ViewWidth: w, ViewHeight: h}
}

func TestMailbox_OverwriteLatest(t *testing.T) {
	var m mailbox

	if _, ok := m.take(); ok {
		t.Fatal("take() on empty mailbox returned a frame")
	}

	m.put(solidFrame(2, 2, 1, 0, 0, 0))
	m.put(solidFrame(2, 2, 2, 0, 0, 0))
	m.put(solidFrame(2, 2, 3, 0, 0, 0))

	p, ok := m.take()
	if !ok {
		t.Fatal("take() returned nothing")
	}
	if p.rgba[2] != 3 || p.seq != 3 {
		t.Errorf("took blue=%d seq=%d, want newest (3)", p.rgba[2], p.seq)
	}
	if m.dropped() != 2 {
		t.Errorf("dropped() = %d, want 2", m.dropped())
	}
	if _, ok := m.take(); ok {
		t.Error("frame taken twice")
	}
}

func TestMailbox_TakenPictureSurvivesPuts(t *testing.T) {
	var m mailbox

	m.put(solidFrame(2, 2, 10, 0, 0, 0))
	drawing, _ := m.take()

	for i := 0; i < 5; i++ {
		m.put(solidFrame(2, 2, byte(20+i), 0, 0, 0))
	}
	if drawing.rgba[2] != 10 {
		t.Fatalf("picture being drawn was overwritten: blue=%d", drawing.rgba[2])
	}

	next, _ := m.take()
	if next == drawing || next.rgba[2] != 24 {
		t.Errorf("next take blue=%d, want 24 in a different buffer", next.rgba[2])
	}
	if m.dropped() != 4 {
		t.Errorf("dropped() = %d, want 4", m.dropped())
	}
}

func TestMailbox_ConcurrentPut(t *testing.T) {
	var m mailbox
	var wg sync.WaitGroup

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.put(solidFrame(4, 4, 1, 2, 3, 4))
			}
		}()
	}

	taken := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		if _, ok := m.take(); ok {
			taken++
		}
	}
	if _, ok := m.take(); ok {
		taken++
	}

	if uint64(taken)+m.dropped() != 400 {
		t.Errorf("taken %d + dropped %d != 400 puts", taken, m.dropped())
	}
}
