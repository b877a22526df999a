package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/smazurov/webcamcapture/internal/media"
)

type codec struct {
	c *astiav.Codec
}

func (c codec) Name() string { return c.c.Name() }
func (c codec) ID() int      { return int(c.c.ID()) }

func (c codec) PixelFormats() []int {
	var out []int
	for _, f := range c.c.PixelFormats() {
		out = append(out, int(f))
	}
	return out
}

func (c codec) SampleFormats() []int {
	var out []int
	for _, f := range c.c.SampleFormats() {
		out = append(out, int(f))
	}
	return out
}

func (c codec) HasDelay() bool {
	return capabilities(c.c)&capabilityDelay != 0
}

// codecContext is an opened decoder or encoder
type codecContext struct {
	cc    *astiav.CodecContext
	codec *astiav.Codec
	kind  media.Kind
}

func (c *codecContext) Codec() media.Codec { return codec{c: c.codec} }

func (c *codecContext) Params() media.CodecParams {
	p := media.CodecParams{
		Kind:      c.kind,
		CodecID:   int(c.codec.ID()),
		CodecName: c.codec.Name(),
		TimeBase:  fromRational(c.cc.TimeBase()),
	}
	switch c.kind {
	case media.KindVideo:
		p.Width = c.cc.Width()
		p.Height = c.cc.Height()
		p.SampleAspect = fromRational(c.cc.SampleAspectRatio())
		p.PixelFormat = int(c.cc.PixelFormat())
		p.FrameRate = fromRational(c.cc.Framerate())
	case media.KindAudio:
		p.SampleRate = c.cc.SampleRate()
		p.SampleFormat = int(c.cc.SampleFormat())
		p.ChannelLayout = fromChannelLayout(c.cc.ChannelLayout())
		p.FrameSize = fixedFrameSize(c.cc, c.codec)
	}
	return p
}

func (c *codecContext) SendPacket(pkt media.Packet) error {
	var p *astiav.Packet
	if pkt != nil {
		p = unwrapPacket(pkt)
	}
	return mapErr(c.cc.SendPacket(p))
}

func (c *codecContext) ReceiveFrame(f media.Frame) error {
	return mapErr(c.cc.ReceiveFrame(unwrapFrame(f)))
}

func (c *codecContext) SendFrame(f media.Frame) error {
	return mapErr(c.cc.SendFrame(unwrapFrame(f)))
}

func (c *codecContext) ReceivePacket(pkt media.Packet) error {
	return mapErr(c.cc.ReceivePacket(unwrapPacket(pkt)))
}

func (c *codecContext) Free() {
	c.cc.Free()
}

// FindEncoder looks an encoder up by name when one is given, else by codec ID
func (l *Library) FindEncoder(codecID int, name string) (media.Codec, bool) {
	var c *astiav.Codec
	if name != "" {
		c = astiav.FindEncoderByName(name)
	} else {
		c = astiav.FindEncoder(astiav.CodecID(codecID))
	}
	if c == nil {
		return nil, false
	}
	return codec{c: c}, true
}

// OpenEncoder configures and opens an encoder with params
func (l *Library) OpenEncoder(mc media.Codec, params media.CodecParams) (media.Encoder, error) {
	c, ok := mc.(codec)
	if !ok {
		return nil, errors.New("codec was not created by this library")
	}
	cc := astiav.AllocCodecContext(c.c)
	if cc == nil {
		return nil, errors.New("alloc encoder context failed")
	}

	switch params.Kind {
	case media.KindVideo:
		cc.SetWidth(params.Width)
		cc.SetHeight(params.Height)
		cc.SetSampleAspectRatio(toRational(params.SampleAspect))
		cc.SetPixelFormat(astiav.PixelFormat(params.PixelFormat))
		if params.FrameRate.Valid() {
			cc.SetFramerate(toRational(params.FrameRate))
		}
	case media.KindAudio:
		layout, err := toChannelLayout(params.ChannelLayout)
		if err != nil {
			cc.Free()
			return nil, err
		}
		cc.SetSampleRate(params.SampleRate)
		cc.SetChannelLayout(layout)
		cc.SetSampleFormat(astiav.SampleFormat(params.SampleFormat))
	default:
		cc.Free()
		return nil, fmt.Errorf("cannot encode %s", params.Kind)
	}
	cc.SetTimeBase(toRational(params.TimeBase))
	if params.GlobalHeader {
		cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	if err := cc.Open(c.c, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open encoder %s: %w", c.c.Name(), err)
	}
	return &codecContext{cc: cc, codec: c.c, kind: params.Kind}, nil
}
