package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/smazurov/webcamcapture/internal/media"
)

type filterGraph struct {
	g    *astiav.FilterGraph
	src  *astiav.BuffersrcFilterContext
	sink *astiav.BuffersinkFilterContext
}

// sinkConstraint returns the format filter that pins the sink to the
// encoder's input format
func sinkConstraint(spec media.FilterSpec) (string, error) {
	switch spec.Kind {
	case media.KindVideo:
		return "format=pix_fmts=" + astiav.PixelFormat(spec.Sink.PixelFormat).String(), nil
	case media.KindAudio:
		layout, err := toChannelLayout(spec.Sink.ChannelLayout)
		if err != nil {
			return "", err
		}
		constraint := fmt.Sprintf("aformat=sample_fmts=%s:channel_layouts=%s:sample_rates=%d",
			astiav.SampleFormat(spec.Sink.SampleFormat).String(), layout.String(), spec.Sink.SampleRate)
		if spec.Sink.FrameSize > 0 {
			// regroup after any resampling so every frame matches the encoder
			constraint += fmt.Sprintf(",asetnsamples=n=%d:p=0", spec.Sink.FrameSize)
		}
		return constraint, nil
	}
	return "", fmt.Errorf("no filter graph for %s streams", spec.Kind)
}

// NewFilterGraph builds buffer -> description -> format -> buffersink
func (l *Library) NewFilterGraph(spec media.FilterSpec) (media.FilterGraph, error) {
	srcName, sinkName := "buffer", "buffersink"
	if spec.Kind == media.KindAudio {
		srcName, sinkName = "abuffer", "abuffersink"
	}
	constraint, err := sinkConstraint(spec)
	if err != nil {
		return nil, err
	}

	fg := &filterGraph{g: astiav.AllocFilterGraph()}
	if fg.g == nil {
		return nil, errors.New("alloc filter graph failed")
	}
	if err := fg.build(spec, srcName, sinkName, spec.Description+","+constraint); err != nil {
		fg.Free()
		return nil, err
	}
	return fg, nil
}

func (fg *filterGraph) build(spec media.FilterSpec, srcName, sinkName, content string) error {
	buffersrc := astiav.FindFilterByName(srcName)
	buffersink := astiav.FindFilterByName(sinkName)
	if buffersrc == nil || buffersink == nil {
		return errors.New("filtering source or sink element not found")
	}

	var err error
	if fg.src, err = fg.g.NewBuffersrcFilterContext(buffersrc, "in"); err != nil {
		return fmt.Errorf("create buffer source: %w", err)
	}
	if fg.sink, err = fg.g.NewBuffersinkFilterContext(buffersink, "out"); err != nil {
		return fmt.Errorf("create buffer sink: %w", err)
	}

	params := astiav.AllocBuffersrcFilterContextParameters()
	defer params.Free()
	src := spec.Source
	params.SetTimeBase(toRational(src.TimeBase))
	if spec.Kind == media.KindVideo {
		params.SetWidth(src.Width)
		params.SetHeight(src.Height)
		params.SetPixelFormat(astiav.PixelFormat(src.PixelFormat))
		params.SetSampleAspectRatio(toRational(src.SampleAspect))
	} else {
		layout, err := toChannelLayout(src.ChannelLayout)
		if err != nil {
			return err
		}
		params.SetSampleRate(src.SampleRate)
		params.SetSampleFormat(astiav.SampleFormat(src.SampleFormat))
		params.SetChannelLayout(layout)
	}
	if err := fg.src.SetParameters(params); err != nil {
		return fmt.Errorf("set buffer source parameters: %w", err)
	}
	if err := fg.src.Initialize(nil); err != nil {
		return fmt.Errorf("initialize buffer source: %w", err)
	}
	if err := fg.sink.Initialize(nil); err != nil {
		return fmt.Errorf("initialize buffer sink: %w", err)
	}

	outputs := astiav.AllocFilterInOut()
	defer outputs.Free()
	outputs.SetName("in")
	outputs.SetFilterContext(fg.src.FilterContext())
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs := astiav.AllocFilterInOut()
	defer inputs.Free()
	inputs.SetName("out")
	inputs.SetFilterContext(fg.sink.FilterContext())
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	if err := fg.g.Parse(content, inputs, outputs); err != nil {
		return fmt.Errorf("parse %q: %w", content, err)
	}
	if err := fg.g.Configure(); err != nil {
		return fmt.Errorf("configure filter graph: %w", err)
	}
	return nil
}

func (fg *filterGraph) AddFrame(f media.Frame) error {
	return mapErr(fg.src.AddFrame(unwrapFrame(f), astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef)))
}

func (fg *filterGraph) GetFrame(f media.Frame) error {
	return mapErr(fg.sink.GetFrame(unwrapFrame(f), astiav.NewBuffersinkFlags()))
}

func (fg *filterGraph) Free() {
	fg.g.Free()
}
