package v4l2

import (
	"fmt"

	"github.com/e7canasta/camoverlay/internal/source"
)

// Sample holds one driver frame for the duration of a callback.
type Sample struct {
	buf *Buffer
}

// BufferCount is always 1.
func (s *Sample) BufferCount() int { return 1 }

// Buffer returns the frame buffer.
func (s *Sample) Buffer(index int) (source.Buffer, error) {
	if index != 0 {
		return nil, fmt.Errorf("v4l2: buffer index %d out of range", index)
	}
	return s.buf, nil
}

// Buffer is a linear frame buffer without a pitch of its own. It can be
// locked once; unlocking hands the memory back through release.
type Buffer struct {
	data    []byte
	locked  bool
	done    bool
	release func() error
}

// Lock returns the frame bytes.
func (b *Buffer) Lock() ([]byte, error) {
	if b.done {
		return nil, fmt.Errorf("v4l2: buffer already returned to the driver")
	}
	if b.locked {
		return nil, fmt.Errorf("v4l2: buffer already locked")
	}
	if len(b.data) == 0 {
		return nil, fmt.Errorf("v4l2: empty buffer")
	}
	b.locked = true
	return b.data, nil
}

// Unlock ends the lock and returns the frame to the driver.
func (b *Buffer) Unlock() error {
	if !b.locked {
		return nil
	}
	b.locked = false
	return b.finish()
}

// finish returns the frame to the driver once.
func (b *Buffer) finish() error {
	if b.done {
		return nil
	}
	b.done = true
	b.data = nil
	if b.release == nil {
		return nil
	}
	return b.release()
}
