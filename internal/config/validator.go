package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/surface"
)

// Opacity bounds offered by the overlay menu.
const (
	MinOpacity = 0.5
	MaxOpacity = 1.0
)

// Validate checks if the configuration is valid and fills derived defaults
func Validate(cfg *Config) error {
	// Validate device
	cfg.Device.Backend = strings.ToLower(cfg.Device.Backend)
	switch cfg.Device.Backend {
	case BackendGStreamer, BackendV4L2:
	default:
		return fmt.Errorf("device.backend must be %q or %q, got %q", BackendGStreamer, BackendV4L2, cfg.Device.Backend)
	}
	if cfg.Device.Source == "" {
		return fmt.Errorf("device.source is required")
	}
	if cfg.Device.Width <= 0 || cfg.Device.Height <= 0 {
		return fmt.Errorf("device.width and device.height must be > 0, got %dx%d", cfg.Device.Width, cfg.Device.Height)
	}
	if cfg.Device.ID == "" {
		cfg.Device.ID = cfg.Device.Source
	}
	if cfg.Device.Encoding != "" {
		enc, err := pixel.ParseEncoding(cfg.Device.Encoding)
		if err != nil {
			return fmt.Errorf("device.encoding: %w", err)
		}
		if !pixel.IsSupported(enc) {
			return fmt.Errorf("device.encoding: %w: %s", pixel.ErrUnsupportedEncoding, enc)
		}
	}

	// Validate overlay
	if !surface.ValidScale(cfg.Overlay.Scale) {
		return fmt.Errorf("overlay.scale: %w: %v", surface.ErrInvalidScale, cfg.Overlay.Scale)
	}
	if cfg.Overlay.Opacity < MinOpacity || cfg.Overlay.Opacity > MaxOpacity {
		return fmt.Errorf("overlay.opacity: %w: %v not in [%.1f, %.1f]",
			surface.ErrInvalidOpacity, cfg.Overlay.Opacity, MinOpacity, MaxOpacity)
	}

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps log_level to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
