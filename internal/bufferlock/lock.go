// Package bufferlock acquires read access to capture buffers.
//
// Buffers that know their own pitch are locked in 2D; everything else is
// locked as a flat range and addressed with the stride negotiated for the
// stream. Either way the lock is released exactly once:
//
//	lk := bufferlock.New(buf)
//	defer lk.Release()
//	plane, err := lk.Acquire(stride, height)
package bufferlock

import (
	"errors"
	"fmt"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
)

var (
	// ErrLockFailed wraps every failure to obtain a buffer lock.
	ErrLockFailed = errors.New("bufferlock: lock failed")
	// ErrAlreadyLocked is returned by a second Acquire before Release.
	ErrAlreadyLocked = errors.New("bufferlock: already locked")
)

// Lock tracks one lock on a capture buffer.
type Lock struct {
	buf    source.Buffer
	buf2d  source.Buffer2D
	locked bool
	is2D   bool
}

// New wraps buf. The 2D path is chosen when buf implements source.Buffer2D.
func New(buf source.Buffer) *Lock {
	l := &Lock{buf: buf}
	if b2, ok := buf.(source.Buffer2D); ok {
		l.buf2d = b2
	}
	return l
}

// Acquire locks the buffer and returns its scanlines. defaultStride is used
// only for linear buffers; a negative value marks a bottom-up layout.
func (l *Lock) Acquire(defaultStride, height int) (pixel.Plane, error) {
	if l.locked {
		return pixel.Plane{}, ErrAlreadyLocked
	}

	if l.buf2d != nil {
		pix, pitch, err := l.buf2d.Lock2D()
		if err != nil {
			return pixel.Plane{}, fmt.Errorf("%w: %v", ErrLockFailed, err)
		}
		l.locked, l.is2D = true, true
		return planeOf(pix, pitch, height), nil
	}

	if defaultStride == 0 {
		return pixel.Plane{}, fmt.Errorf("%w: no stride for linear buffer", ErrLockFailed)
	}
	pix, err := l.buf.Lock()
	if err != nil {
		return pixel.Plane{}, fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	l.locked = true
	return planeOf(pix, defaultStride, height), nil
}

// Locked reports whether a lock is currently held.
func (l *Lock) Locked() bool { return l.locked }

// Release unlocks the buffer if it is locked. Extra calls are no-ops.
func (l *Lock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if l.is2D {
		return l.buf2d.Unlock2D()
	}
	return l.buf.Unlock()
}

func planeOf(pix []byte, stride, height int) pixel.Plane {
	if stride < 0 {
		return pixel.Plane{Pix: pix, Stride: -stride, Rows: height, BottomUp: true}
	}
	return pixel.Plane{Pix: pix, Stride: stride, Rows: height}
}
