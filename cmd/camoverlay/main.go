package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/e7canasta/camoverlay"
	"github.com/e7canasta/camoverlay/internal/capture/gstreamer"
	"github.com/e7canasta/camoverlay/internal/capture/v4l2"
	"github.com/e7canasta/camoverlay/internal/config"
	"github.com/e7canasta/camoverlay/internal/window"
)

// Version information
const version = "v0.1.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to YAML configuration file (optional)")
	backend := flag.String("backend", "", "Capture backend: gstreamer, v4l2")
	sourceName := flag.String("source", "", "GStreamer source element or V4L2 device path")
	scale := flag.Float64("scale", 0, "Display scale: 0.5, 0.75, 1, 1.25, 1.5, 2")
	opacity := flag.Float64("opacity", 0, "Window opacity (0.5-1.0)")
	mirror := flag.Bool("mirror", true, "Mirror the camera image")
	mask := flag.Bool("mask", false, "Crop the image to a circle")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("camoverlay %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file and the environment, but only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Device.Backend = *backend
		case "source":
			cfg.Device.Source = *sourceName
			cfg.Device.ID = *sourceName
		case "scale":
			cfg.Overlay.Scale = *scale
		case "opacity":
			cfg.Overlay.Opacity = *opacity
		case "mirror":
			cfg.Overlay.Mirror = *mirror
		case "mask":
			cfg.Overlay.Mask = *mask
		}
	})
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logLevel, _ := config.ParseLevel(cfg.LogLevel)
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting camoverlay",
		"version", version,
		"backend", cfg.Device.Backend,
		"source", cfg.Device.Source,
		"scale", cfg.Overlay.Scale,
		"opacity", cfg.Overlay.Opacity,
	)

	if err := run(cfg); err != nil {
		slog.Error("camoverlay failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	win := window.New(window.Options{
		Title: "camoverlay - " + cfg.Device.ID,
		X:     cfg.Overlay.X,
		Y:     cfg.Overlay.Y,
	})
	overlay, err := camoverlay.NewOverlay(win, win, cfg.Settings())
	if err != nil {
		return err
	}

	// Capture errors arrive with the previewer locked; react on our own goroutine
	captureErrs := make(chan captureError, 1)
	previewer, err := camoverlay.NewPreviewer(overlay,
		camoverlay.WithPreferredEncoding(cfg.PreferredEncoding()),
		camoverlay.WithResizeHook(func(w, h int) {
			slog.Info("frame size negotiated", "width", w, "height", h)
		}),
		camoverlay.WithErrorHook(func(id string, err error) {
			select {
			case captureErrs <- captureError{id, err}:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}
	win.Bind(overlay, previewer.Refresh)

	if err := previewer.SetDevice(dev); err != nil {
		// Keep the window up with the error card, like a running stream would
		slog.Error("failed to start device", "device", dev.ID(), "error", err)
		overlay.Reset(cfg.Device.Width, cfg.Device.Height)
		overlay.OnFrameError(err)
	}

	go watchDevice(ctx, previewer, captureErrs)
	go reportStats(ctx, previewer, win)

	runErr := win.Run(ctx)
	cancel()

	if err := previewer.CloseDevice(); err != nil {
		slog.Warn("close device failed", "error", err)
	}

	stats := previewer.Stats()
	slog.Info("camoverlay stopped",
		"session_id", stats.SessionID,
		"frames_presented", stats.FramesPresented,
		"frames_dropped", stats.FramesDropped,
		"capture_errors", stats.CaptureErrors,
		"window_drops", win.Dropped(),
		"fps_mean", stats.FPS.FPSMean,
	)
	return runErr
}

type captureError struct {
	deviceID string
	err      error
}

// watchDevice closes the device once it reports itself lost or busy. The
// error card stays on screen.
func watchDevice(ctx context.Context, p *camoverlay.Previewer, errs <-chan captureError) {
	for {
		select {
		case <-ctx.Done():
			return
		case ce := <-errs:
			if !errors.Is(ce.err, camoverlay.ErrDeviceLost) && !errors.Is(ce.err, camoverlay.ErrDeviceBusy) {
				continue
			}
			if p.IsDeviceLost(ce.deviceID) {
				slog.Warn("device unavailable, closing", "device", ce.deviceID, "error", ce.err)
				if err := p.CloseDevice(); err != nil {
					slog.Warn("close device failed", "device", ce.deviceID, "error", err)
				}
			}
		}
	}
}

// reportStats logs preview statistics every 10 seconds
func reportStats(ctx context.Context, p *camoverlay.Previewer, win *window.Window) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := p.Stats()
			if !s.IsOpen {
				continue
			}
			slog.Info("preview stats",
				"session_id", s.SessionID,
				"media_type", s.MediaType,
				"frames_presented", s.FramesPresented,
				"frames_dropped", s.FramesDropped,
				"window_drops", win.Dropped(),
				"fps_mean", fmt.Sprintf("%.1f", s.FPS.FPSMean),
				"fps_stable", s.FPS.IsStable,
				"latency_ms", s.LatencyMS,
				"decode_p95_ms", fmt.Sprintf("%.2f", s.DecodeP95MS),
			)
		}
	}
}

func newDevice(cfg *config.Config) (camoverlay.Device, error) {
	switch cfg.Device.Backend {
	case config.BackendV4L2:
		return v4l2.NewDevice(cfg.Device.Source, cfg.Device.Width, cfg.Device.Height)
	default:
		factory, props := cfg.Device.Source, map[string]interface{}(nil)
		if strings.HasPrefix(factory, "/dev/") {
			factory, props = "v4l2src", map[string]interface{}{"device": cfg.Device.Source}
		}
		return gstreamer.NewDevice(cfg.Device.ID, factory, props, cfg.Device.Width, cfg.Device.Height)
	}
}
