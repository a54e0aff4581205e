//go:build linux

package v4l2

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/blackjack/webcam"

	"github.com/e7canasta/camoverlay/internal/bufferlock"
	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/source"
)

// fakeCamera serves one YUYV 4x2 frame from driver buffer 3 and records every
// call that changes driver state.
type fakeCamera struct {
	mu     sync.Mutex
	events []string
	frame  []byte
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{frame: make([]byte, 4*2*2)}
}

func (c *fakeCamera) record(e string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *fakeCamera) log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

func (c *fakeCamera) GetSupportedFormats() map[webcam.PixelFormat]string {
	pf, _ := FourCCToPixelFormat("YUYV")
	return map[webcam.PixelFormat]string{webcam.PixelFormat(pf): "YUYV 4:2:2"}
}

func (c *fakeCamera) GetSupportedFrameSizes(webcam.PixelFormat) []webcam.FrameSize {
	return []webcam.FrameSize{{MinWidth: 4, MaxWidth: 4, MinHeight: 2, MaxHeight: 2}}
}

func (c *fakeCamera) SetImageFormat(f webcam.PixelFormat, w, h uint32) (webcam.PixelFormat, uint32, uint32, error) {
	return f, w, h, nil
}

func (c *fakeCamera) StartStreaming() error {
	c.record("start")
	return nil
}

func (c *fakeCamera) StopStreaming() error {
	c.record("stop")
	return nil
}

func (c *fakeCamera) WaitForFrame(uint32) error { return nil }

func (c *fakeCamera) GetFrame() ([]byte, uint32, error) {
	c.record("get 3")
	return c.frame, 3, nil
}

func (c *fakeCamera) ReleaseFrame(index uint32) error {
	c.record(fmt.Sprintf("release %d", index))
	return nil
}

func (c *fakeCamera) Close() error {
	c.record("close")
	return nil
}

type callbackFunc func(err error, s source.Sample) error

func (f callbackFunc) OnReadSample(err error, s source.Sample) error { return f(err, s) }

func openFake(t *testing.T, cam *fakeCamera, cb source.Callback) *Reader {
	t.Helper()
	dev, err := NewDevice("/dev/video9", 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	r := newReader(dev, cb, cam)
	mt, err := r.NativeMediaType(0)
	if err != nil {
		t.Fatalf("NativeMediaType(0): %v", err)
	}
	if mt.Encoding != pixel.YUY2 || mt.Width != 4 || mt.Height != 2 {
		t.Fatalf("native type = %v", mt)
	}
	if err := r.SetCurrentMediaType(mt); err != nil {
		t.Fatalf("SetCurrentMediaType: %v", err)
	}
	return r
}

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback not delivered")
	}
}

func TestReader_FrameReturnedToDriverOnUnlock(t *testing.T) {
	cam := newFakeCamera()
	done := make(chan struct{})

	cb := callbackFunc(func(err error, s source.Sample) error {
		defer close(done)
		if err != nil {
			t.Errorf("callback err = %v", err)
			return nil
		}
		buf, _ := s.Buffer(0)
		lk := bufferlock.New(buf)
		if _, err := lk.Acquire(8, 2); err != nil {
			t.Errorf("Acquire: %v", err)
			return nil
		}
		if slices.Contains(cam.log(), "release 3") {
			t.Error("driver buffer re-queued while still locked")
		}
		if err := lk.Release(); err != nil {
			t.Errorf("Release: %v", err)
		}
		if !slices.Contains(cam.log(), "release 3") {
			t.Error("driver buffer not re-queued on unlock")
		}
		return nil
	})

	r := openFake(t, cam, cb)
	if err := r.ReadSample(); err != nil {
		t.Fatalf("ReadSample: %v", err)
	}
	waitFor(t, done)

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"start", "get 3", "release 3", "stop", "close"}
	if got := cam.log(); !slices.Equal(got, want) {
		t.Errorf("driver calls = %v, want %v", got, want)
	}
	t.Logf("✅ driver calls: %v", want)
}

func TestReader_CloseWhileFrameHeldDefersRelease(t *testing.T) {
	cam := newFakeCamera()
	done := make(chan struct{})
	var r *Reader

	cb := callbackFunc(func(err error, s source.Sample) error {
		defer close(done)
		buf, _ := s.Buffer(0)
		if _, err := buf.Lock(); err != nil {
			t.Errorf("Lock: %v", err)
			return nil
		}
		if err := r.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		if slices.Contains(cam.log(), "close") {
			t.Error("device closed while a frame buffer was locked")
		}
		if err := buf.Unlock(); err != nil {
			t.Errorf("Unlock: %v", err)
		}
		return nil
	})

	r = openFake(t, cam, cb)
	if err := r.ReadSample(); err != nil {
		t.Fatalf("ReadSample: %v", err)
	}
	waitFor(t, done)

	want := []string{"start", "get 3", "release 3", "stop", "close"}
	if got := cam.log(); !slices.Equal(got, want) {
		t.Errorf("driver calls = %v, want %v", got, want)
	}
}

func TestReader_UnlockedFrameReturnedAfterCallback(t *testing.T) {
	cam := newFakeCamera()
	done := make(chan struct{})

	cb := callbackFunc(func(err error, s source.Sample) error {
		defer close(done)
		return fmt.Errorf("not drawn")
	})

	r := openFake(t, cam, cb)
	defer r.Close()
	if err := r.ReadSample(); err != nil {
		t.Fatalf("ReadSample: %v", err)
	}
	waitFor(t, done)

	deadline := time.Now().Add(2 * time.Second)
	for !slices.Contains(cam.log(), "release 3") {
		if time.Now().After(deadline) {
			t.Fatalf("driver calls = %v, frame never re-queued", cam.log())
		}
		time.Sleep(time.Millisecond)
	}
}
