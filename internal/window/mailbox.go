package window

import (
	"sync"
	"sync/atomic"

	"github.com/e7canasta/camoverlay/internal/surface"
)

// picture is a converted frame ready for WritePixels.
type picture struct {
	rgba   []byte
	width  int
	height int
	alpha  uint8
	seq    uint64
}

// mailbox holds the most recent presented frame. put never blocks: a frame
// the window has not taken yet is overwritten and counted as dropped.
//
// At most three pictures exist: the undrawn latest, the one being drawn and
// one spare for the next put.
type mailbox struct {
	mu      sync.Mutex
	latest  *picture
	drawing *picture
	spare   *picture
	seq     uint64

	drops atomic.Uint64
}

// put converts f into the mailbox, replacing any undrawn frame.
func (m *mailbox) put(f surface.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.spare
	m.spare = nil
	if p == nil {
		p = &picture{}
	}
	p.rgba = toRGBA(p.rgba, f)
	p.width, p.height = viewSize(f)
	p.alpha = f.Alpha
	m.seq++
	p.seq = m.seq

	if m.latest != nil {
		m.drops.Add(1)
		m.spare = m.latest
	}
	m.latest = p
}

// take returns the newest frame once. The picture stays valid until the
// next take.
func (m *mailbox) take() (*picture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latest == nil {
		return nil, false
	}
	p := m.latest
	m.latest = nil
	if m.spare == nil {
		m.spare = m.drawing
	}
	m.drawing = p
	return p, true
}

// dropped is the number of frames overwritten before they were taken.
func (m *mailbox) dropped() uint64 { return m.drops.Load() }
