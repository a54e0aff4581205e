package main

import (
	"testing"

	"github.com/e7canasta/camoverlay/internal/config"
)

func TestNewDevice(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		source  string
		wantID  string
	}{
		{"gstreamer element", config.BackendGStreamer, "videotestsrc", "videotestsrc"},
		{"gstreamer device path", config.BackendGStreamer, "/dev/video0", "/dev/video0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Device.Backend = tt.backend
			cfg.Device.Source = tt.source
			if err := config.Validate(cfg); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			dev, err := newDevice(cfg)
			if err != nil {
				t.Fatalf("newDevice() error = %v", err)
			}
			if dev.ID() != tt.wantID {
				t.Errorf("ID() = %q, want %q", dev.ID(), tt.wantID)
			}
		})
	}
}
