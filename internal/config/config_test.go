package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/e7canasta/camoverlay/internal/pixel"
	"github.com/e7canasta/camoverlay/internal/surface"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camoverlay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", noEnv)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Device.Backend != BackendGStreamer || cfg.Device.Source != "v4l2src" {
		t.Errorf("device = %+v", cfg.Device)
	}
	if cfg.Device.ID != "v4l2src" {
		t.Errorf("device.id = %q, want source as default", cfg.Device.ID)
	}
	if got := cfg.Settings(); got != surface.DefaultState() {
		t.Errorf("Settings() = %+v, want %+v", got, surface.DefaultState())
	}
	if cfg.PreferredEncoding() != pixel.Unknown {
		t.Errorf("PreferredEncoding() = %v, want Unknown", cfg.PreferredEncoding())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  backend: v4l2
  source: /dev/video2
  width: 1280
  height: 720
  encoding: yuyv
overlay:
  scale: 0.5
  opacity: 0.8
  mask: true
log_level: debug
`)

	cfg, err := load(path, noEnv)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Device.Backend != BackendV4L2 || cfg.Device.Source != "/dev/video2" || cfg.Device.Width != 1280 {
		t.Errorf("device = %+v", cfg.Device)
	}
	want := surface.State{Scale: 0.5, Opacity: 0.8, Mirror: true, Mask: true}
	if got := cfg.Settings(); got != want {
		t.Errorf("Settings() = %+v, want %+v (mirror keeps its default)", got, want)
	}
	if cfg.PreferredEncoding() != pixel.YUY2 {
		t.Errorf("PreferredEncoding() = %v, want YUY2", cfg.PreferredEncoding())
	}
	if cfg.Overlay.X != 100 || cfg.Overlay.Y != 100 {
		t.Errorf("position = %d,%d, want defaults", cfg.Overlay.X, cfg.Overlay.Y)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "device:\n  source: videotestsrc\n")

	cfg, err := load(path, envMap(map[string]string{
		"CAMOVERLAY_DEVICE_SOURCE":   "/dev/video1",
		"CAMOVERLAY_DEVICE_BACKEND":  "V4L2",
		"CAMOVERLAY_OVERLAY_SCALE":   "1.5",
		"CAMOVERLAY_OVERLAY_MIRROR":  "false",
		"CAMOVERLAY_OVERLAY_OPACITY": "0.6",
		"CAMOVERLAY_OVERLAY_Y":       "-20",
	}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Device.Source != "/dev/video1" || cfg.Device.Backend != BackendV4L2 {
		t.Errorf("device = %+v", cfg.Device)
	}
	if cfg.Overlay.Scale != 1.5 || cfg.Overlay.Mirror || cfg.Overlay.Opacity != 0.6 || cfg.Overlay.Y != -20 {
		t.Errorf("overlay = %+v", cfg.Overlay)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr error
	}{
		{name: "scale too large", body: "overlay:\n  scale: 2.5\n", wantErr: surface.ErrInvalidScale},
		{name: "scale zero", body: "overlay:\n  scale: 0\n", wantErr: surface.ErrInvalidScale},
		{name: "opacity below menu", body: "overlay:\n  opacity: 0.2\n", wantErr: surface.ErrInvalidOpacity},
		{name: "unknown encoding", body: "device:\n  encoding: MJPG\n", wantErr: pixel.ErrUnsupportedEncoding},
		{name: "unknown backend", body: "device:\n  backend: dshow\n"},
		{name: "empty source", body: "device:\n  source: \"\"\n"},
		{name: "bad size", body: "device:\n  width: -1\n"},
		{name: "bad log level", body: "log_level: loud\n"},
		{name: "malformed yaml", body: "device: [\n"},
		{name: "bad env number", env: map[string]string{"CAMOVERLAY_DEVICE_WIDTH": "wide"}},
		{name: "bad env bool", env: map[string]string{"CAMOVERLAY_OVERLAY_MASK": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			_, err := load(path, envMap(tt.env))
			if err == nil {
				t.Fatal("load() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
