package gstreamer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// errorCounters holds per-category pipeline error counts.
type errorCounters struct {
	Busy        atomic.Uint64
	Lost        atomic.Uint64
	Negotiation atomic.Uint64
	Unknown     atomic.Uint64
}

func (c *errorCounters) add(category ErrorCategory) {
	switch category {
	case ErrCategoryBusy:
		c.Busy.Add(1)
	case ErrCategoryLost:
		c.Lost.Add(1)
	case ErrCategoryNegotiation:
		c.Negotiation.Add(1)
	default:
		c.Unknown.Add(1)
	}
}

// monitorBus watches the pipeline bus while the reader is playing. On an
// error or end of stream it records the cause with fail and stops the
// pipeline, which unblocks a pending sample pull.
func monitorBus(ctx context.Context, r *Reader) {
	bus := r.elems.Pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("gstreamer: bus monitor stopped", "device", r.id)
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("gstreamer: end of stream",
				"device", r.id,
				"uptime", time.Since(r.startedAt),
			)
			r.fail(nil)
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			r.errors.add(category)

			slog.Error("gstreamer: pipeline error",
				"device", r.id,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"uptime", time.Since(r.startedAt),
			)
			r.fail(wrapGError(gerr))
			return

		case gst.MessageStateChanged:
			if msg.Source() == r.elems.Pipeline.GetName() {
				old, current := msg.ParseStateChanged()
				slog.Debug("gstreamer: pipeline state changed", "device", r.id, "from", old, "to", current)
			}
		}
	}
}
