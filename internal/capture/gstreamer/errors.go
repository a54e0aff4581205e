package gstreamer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/camoverlay/internal/source"
)

var (
	// ErrNotNegotiated reports caps the source cannot produce.
	ErrNotNegotiated = errors.New("gstreamer: format not negotiated")
	// ErrPipeline wraps unclassified pipeline errors.
	ErrPipeline = errors.New("gstreamer: pipeline error")
	// ErrPrerollTimeout reports a source that produced no frame in time.
	ErrPrerollTimeout = errors.New("gstreamer: no frame before timeout")
)

// ErrorCategory classifies GStreamer errors for telemetry and for the
// message shown on the overlay.
type ErrorCategory int

const (
	// ErrCategoryBusy means another process holds the device.
	ErrCategoryBusy ErrorCategory = iota
	// ErrCategoryLost means the device is gone.
	ErrCategoryLost
	// ErrCategoryNegotiation means the requested caps were refused.
	ErrCategoryNegotiation
	// ErrCategoryUnknown is everything else.
	ErrCategoryUnknown
)

func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryBusy:
		return "busy"
	case ErrCategoryLost:
		return "lost"
	case ErrCategoryNegotiation:
		return "negotiation"
	default:
		return "unknown"
	}
}

// Sentinel returns the error callers match with errors.Is.
func (e ErrorCategory) Sentinel() error {
	switch e {
	case ErrCategoryBusy:
		return source.ErrDeviceBusy
	case ErrCategoryLost:
		return source.ErrDeviceLost
	case ErrCategoryNegotiation:
		return ErrNotNegotiated
	default:
		return ErrPipeline
	}
}

// ClassifyGStreamerError categorizes gerr by message heuristics; go-gst does
// not expose the error domain.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

// wrapGError converts gerr into an error matching its category sentinel.
func wrapGError(gerr *gst.GError) error {
	if gerr == nil {
		return ErrPipeline
	}
	category := ClassifyGStreamerError(gerr)
	return fmt.Errorf("%w: %s", category.Sentinel(), gerr.Error())
}

func classifyMessage(msg, debug string) ErrorCategory {
	text := strings.ToLower(msg + " " + debug)

	switch {
	case containsAny(text, busyKeywords):
		return ErrCategoryBusy
	case containsAny(text, lostKeywords):
		return ErrCategoryLost
	case containsAny(text, negotiationKeywords):
		return ErrCategoryNegotiation
	default:
		return ErrCategoryUnknown
	}
}

var (
	busyKeywords = []string{
		"device or resource busy",
		"resource busy",
		"ebusy",
		"is busy",
		"failed to allocate required memory",
	}
	lostKeywords = []string{
		"no such device",
		"no such file",
		"cannot identify device",
		"device has been disconnected",
		"disconnected",
		"enodev",
	}
	negotiationKeywords = []string{
		"not-negotiated",
		"not negotiated",
		"could not negotiate",
		"caps",
		"format",
	}
)

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
