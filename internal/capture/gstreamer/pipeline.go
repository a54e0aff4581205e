package gstreamer

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

var initOnce sync.Once

// pipelineElements holds the elements the reader reconfigures.
type pipelineElements struct {
	Pipeline   *gst.Pipeline
	Source     *gst.Element
	CapsFilter *gst.Element
	AppSink    *app.Sink
}

// createPipeline builds
//
//	<source> → capsfilter → appsink
//
// without a converter, so the capsfilter decides which raw format the device
// must deliver. The pipeline is left in NULL state.
func createPipeline(factory string, props map[string]interface{}) (*pipelineElements, error) {
	initOnce.Do(func() { gst.Init(nil) })

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement(factory)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", factory, err)
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := src.SetProperty(k, props[k]); err != nil {
			return nil, fmt.Errorf("failed to set %s.%s: %w", factory, k, err)
		}
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString("video/x-raw"))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	if err := pipeline.AddMany(src, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to add elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to link elements: %w", err)
	}

	slog.Debug("gstreamer: pipeline created", "source", factory, "properties", len(props))

	return &pipelineElements{
		Pipeline:   pipeline,
		Source:     src,
		CapsFilter: capsfilter,
		AppSink:    appsink,
	}, nil
}

// destroyPipeline stops the pipeline and releases its resources.
func destroyPipeline(elements *pipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to stop pipeline: %w", err)
	}
	return nil
}

// drainError returns the first error message waiting on the bus, if any.
func drainError(pipeline *gst.Pipeline) error {
	bus := pipeline.GetPipelineBus()
	for {
		msg := bus.TimedPop(0)
		if msg == nil {
			return nil
		}
		if msg.Type() == gst.MessageError {
			return wrapGError(msg.ParseError())
		}
	}
}
