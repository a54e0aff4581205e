package v4l2

import (
	"testing"

	"github.com/e7canasta/camoverlay/internal/bufferlock"
)

func TestSampleBufferLocksLinearly(t *testing.T) {
	frame := make([]byte, 8*2*4)
	frame[0] = 42
	var returned int
	s := &Sample{buf: &Buffer{data: frame, release: func() error {
		returned++
		return nil
	}}}

	if s.BufferCount() != 1 {
		t.Fatalf("BufferCount() = %d, want 1", s.BufferCount())
	}
	if _, err := s.Buffer(1); err == nil {
		t.Error("Buffer(1) should fail")
	}

	buf, err := s.Buffer(0)
	if err != nil {
		t.Fatalf("Buffer(0) error = %v", err)
	}
	lock := bufferlock.New(buf)
	plane, err := lock.Acquire(16, 4)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if plane.Stride != 16 || plane.BottomUp || plane.Pix[0] != 42 {
		t.Errorf("plane = stride %d bottomUp %v first %d", plane.Stride, plane.BottomUp, plane.Pix[0])
	}
	if _, err := buf.Lock(); err == nil {
		t.Error("second Lock() should fail while locked")
	}
	if returned != 0 {
		t.Fatal("frame returned to the driver while locked")
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if returned != 1 {
		t.Errorf("frame returned %d times after unlock, want 1", returned)
	}
	if _, err := buf.Lock(); err == nil {
		t.Error("Lock() after the frame went back to the driver should fail")
	}
	if err := s.buf.finish(); err != nil || returned != 1 {
		t.Errorf("finish() err = %v, returned %d times, want once", err, returned)
	}
}
