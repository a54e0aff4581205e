// Package camoverlay shows a live camera as a floating, translucent overlay.
//
// A capture backend delivers frames in a device-native encoding (RGB24,
// RGB32, YUY2 or NV12). The Previewer negotiates one encoding the pipeline
// understands, converts every frame into a packed BGRX buffer and hands it to
// an Overlay, which mirrors, scales, masks and presents it through a
// Presenter such as a layered window.
//
// # Quick Start
//
//	overlay, err := camoverlay.NewOverlay(window, window, camoverlay.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := camoverlay.NewPreviewer(overlay)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.CloseDevice()
//
//	dev, err := gstreamer.NewDevice("cam0", "v4l2src",
//	    map[string]interface{}{"device": "/dev/video0"}, 640, 480)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.SetDevice(dev); err != nil {
//	    log.Fatal(err)
//	}
//
// # Frame Flow
//
// Frames are pulled one at a time: the next frame is requested only after the
// previous one was decoded and presented. A single mutex serializes frame
// callbacks and device teardown, so a callback that arrives after
// CloseDevice does nothing.
//
// Overlay settings (scale, opacity, mirror, mask) may change from any
// goroutine. They are swapped as one immutable snapshot and picked up by the
// next frame.
//
// # Errors
//
// Negotiation fails with ErrUnsupportedFormat when no native media type can
// be mapped to a supported encoding. A buffer that cannot be locked
// (ErrLockFailed) drops the frame and stops the stream until the device is
// selected again. Capture errors are drawn on the overlay as an error card
// and passed to the WithErrorHook callback; a device reporting ErrDeviceLost
// is closed by the caller once IsDeviceLost confirms it is the open one.
//
// # Telemetry
//
// Stats reports frame counters, the presentation rate over the last 120
// frames and the decode latency (mean, p95, max) over the last 100.
package camoverlay
