package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/surface"
)

// EnvPrefix prefixes every environment override, e.g. CAMOVERLAY_DEVICE_SOURCE.
const EnvPrefix = "CAMOVERLAY_"

// Backends
const (
	BackendGStreamer = "gstreamer"
	BackendV4L2      = "v4l2"
)

// Config represents the complete camoverlay configuration
type Config struct {
	Device   DeviceConfig  `yaml:"device"`
	Overlay  OverlayConfig `yaml:"overlay"`
	LogLevel string        `yaml:"log_level"` // debug, info, warn, error
}

// DeviceConfig selects the capture device
type DeviceConfig struct {
	Backend  string `yaml:"backend"`  // gstreamer, v4l2
	ID       string `yaml:"id"`       // name used in logs, defaults to source
	Source   string `yaml:"source"`   // gst source element or /dev/videoN
	Width    int    `yaml:"width"`    // requested frame size
	Height   int    `yaml:"height"`   // the closest size offered is used
	Encoding string `yaml:"encoding"` // preferred encoding, optional
}

// OverlayConfig contains the initial compositing settings
type OverlayConfig struct {
	Scale   float64 `yaml:"scale"`
	Opacity float64 `yaml:"opacity"`
	Mirror  bool    `yaml:"mirror"`
	Mask    bool    `yaml:"mask"`
	X       int     `yaml:"x"`
	Y       int     `yaml:"y"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend: BackendGStreamer,
			Source:  "v4l2src",
			Width:   640,
			Height:  480,
		},
		Overlay: OverlayConfig{
			Scale:   1.0,
			Opacity: 1.0,
			Mirror:  true,
			X:       100,
			Y:       100,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file over the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = f
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}

	str("DEVICE_BACKEND", &cfg.Device.Backend)
	str("DEVICE_ID", &cfg.Device.ID)
	str("DEVICE_SOURCE", &cfg.Device.Source)
	str("DEVICE_ENCODING", &cfg.Device.Encoding)
	str("LOG_LEVEL", &cfg.LogLevel)

	for _, err := range []error{
		num("DEVICE_WIDTH", &cfg.Device.Width),
		num("DEVICE_HEIGHT", &cfg.Device.Height),
		float("OVERLAY_SCALE", &cfg.Overlay.Scale),
		float("OVERLAY_OPACITY", &cfg.Overlay.Opacity),
		boolean("OVERLAY_MIRROR", &cfg.Overlay.Mirror),
		boolean("OVERLAY_MASK", &cfg.Overlay.Mask),
		num("OVERLAY_X", &cfg.Overlay.X),
		num("OVERLAY_Y", &cfg.Overlay.Y),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Settings returns the initial compositing settings.
func (c *Config) Settings() surface.State {
	return surface.State{
		Scale:   c.Overlay.Scale,
		Opacity: c.Overlay.Opacity,
		Mirror:  c.Overlay.Mirror,
		Mask:    c.Overlay.Mask,
	}
}

// PreferredEncoding returns the configured encoding, or pixel.Unknown when
// none is set.
func (c *Config) PreferredEncoding() pixel.Encoding {
	enc, err := pixel.ParseEncoding(c.Device.Encoding)
	if err != nil {
		return pixel.Unknown
	}
	return enc
}
