package capture

import (
	"log/slog"
	"time"

	"github.com/smazurov/webcamcapture/internal/media"
)

// nanosecond is the time base of time.Duration
var nanosecond = media.NewRational(1, int(time.Second))

// StreamContext is the per-stream state of a session, indexed by the input
// stream index. Decoder and Encoder are set only for video and audio.
type StreamContext struct {
	Index   int
	Kind    media.Kind
	Input   media.StreamInfo
	Decoder media.Decoder
	Encoder media.Encoder

	handler streamKind
	// frames counts video packets handed to the decoder
	frames int64
	// clockNoted is set once the audio timestamp policy was logged
	clockNoted bool

	PacketsRead    int
	FramesEncoded  int
	PacketsWritten int
}

// Transcoded reports whether the stream goes through decode, filter and encode
func (sc *StreamContext) Transcoded() bool {
	return sc.handler != nil
}

// streamKind holds what differs between video and audio streams
type streamKind interface {
	// stamp sets the packet timestamps, in the input stream time base,
	// before the packet is rescaled for the decoder
	stamp(sc *StreamContext, pkt media.Packet, elapsed time.Duration, logger *slog.Logger)
	// encoderParams derives the encoder configuration from the decoder's
	encoderParams(dec media.CodecParams, enc media.Codec) media.CodecParams
	// filterSpec connects decoder output to encoder input
	filterSpec(dec, enc media.CodecParams) media.FilterSpec
}

func kindStrategy(k media.Kind) streamKind {
	switch k {
	case media.KindVideo:
		return videoKind{}
	case media.KindAudio:
		return audioKind{}
	}
	return nil
}

type videoKind struct{}

// stamp retimes video to the wall clock. Device timestamps are not used;
// the frame counter stands in when the stream has no usable time base.
func (videoKind) stamp(sc *StreamContext, pkt media.Packet, elapsed time.Duration, _ *slog.Logger) {
	sc.frames++
	ts := sc.frames
	if sc.Input.TimeBase.Valid() {
		ts = media.RescaleQ(int64(elapsed), nanosecond, sc.Input.TimeBase)
	}
	pkt.SetPTS(ts)
	pkt.SetDTS(ts)
}

func (videoKind) encoderParams(dec media.CodecParams, enc media.Codec) media.CodecParams {
	p := media.CodecParams{
		Kind:         media.KindVideo,
		CodecID:      enc.ID(),
		CodecName:    enc.Name(),
		Width:        dec.Width,
		Height:       dec.Height,
		SampleAspect: dec.SampleAspect,
		PixelFormat:  dec.PixelFormat,
		FrameRate:    dec.FrameRate,
		TimeBase:     dec.FrameRate.Invert(),
	}
	if formats := enc.PixelFormats(); len(formats) > 0 {
		p.PixelFormat = formats[0]
	}
	if !p.TimeBase.Valid() {
		p.TimeBase = dec.TimeBase
	}
	return p
}

func (videoKind) filterSpec(dec, enc media.CodecParams) media.FilterSpec {
	return media.FilterSpec{Kind: media.KindVideo, Source: dec, Sink: enc, Description: "null"}
}

type audioKind struct{}

// stamp keeps the device timestamps. Only video is retimed.
func (audioKind) stamp(sc *StreamContext, pkt media.Packet, _ time.Duration, logger *slog.Logger) {
	if !sc.clockNoted {
		sc.clockNoted = true
		logger.Debug("Audio keeps device timestamps", "stream", sc.Index, "pts", pkt.PTS())
	}
}

func (audioKind) encoderParams(dec media.CodecParams, enc media.Codec) media.CodecParams {
	layout := dec.ChannelLayout
	if layout.Name == "" {
		if def, ok := media.DefaultChannelLayout(layout.Channels); ok {
			layout = def
		} else if layout.Channels == 0 {
			layout = media.ChannelLayoutMono
		}
	}
	p := media.CodecParams{
		Kind:          media.KindAudio,
		CodecID:       enc.ID(),
		CodecName:     enc.Name(),
		SampleRate:    dec.SampleRate,
		ChannelLayout: layout,
		SampleFormat:  dec.SampleFormat,
		TimeBase:      media.NewRational(1, dec.SampleRate),
	}
	if formats := enc.SampleFormats(); len(formats) > 0 {
		p.SampleFormat = formats[0]
	}
	return p
}

func (audioKind) filterSpec(dec, enc media.CodecParams) media.FilterSpec {
	return media.FilterSpec{Kind: media.KindAudio, Source: dec, Sink: enc, Description: "anull"}
}
