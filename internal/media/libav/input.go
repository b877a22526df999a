package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/smazurov/webcamcapture/internal/media"
)

type input struct {
	fc      *astiav.FormatContext
	streams []*astiav.Stream
	infos   []media.StreamInfo
}

// OpenInput opens the device selector with the named input format and
// probes its streams
func (l *Library) OpenInput(req media.InputRequest) (media.Input, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context failed")
	}

	var format *astiav.InputFormat
	if req.Format != "" {
		if format = astiav.FindInputFormat(req.Format); format == nil {
			fc.Free()
			return nil, fmt.Errorf("unknown input format %q", req.Format)
		}
	}

	opts := astiav.NewDictionary()
	defer opts.Free()
	for k, v := range req.Options {
		if err := opts.Set(k, v, astiav.NewDictionaryFlags()); err != nil {
			fc.Free()
			return nil, fmt.Errorf("set input option %s: %w", k, err)
		}
	}

	if err := fc.OpenInput(req.URL, format, opts); err != nil {
		fc.Free()
		return nil, err
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	in := &input{fc: fc, streams: fc.Streams()}
	for i, s := range in.streams {
		cp := s.CodecParameters()
		info := media.StreamInfo{
			Index:    i,
			Kind:     fromMediaType(cp.MediaType()),
			TimeBase: fromRational(s.TimeBase()),
		}
		info.Params = media.CodecParams{
			Kind:         info.Kind,
			CodecID:      int(cp.CodecID()),
			CodecName:    cp.CodecID().Name(),
			Width:        cp.Width(),
			Height:       cp.Height(),
			SampleAspect: fromRational(cp.SampleAspectRatio()),
			PixelFormat:  int(cp.PixelFormat()),
			SampleRate:   cp.SampleRate(),
			SampleFormat: int(cp.SampleFormat()),
			TimeBase:     info.TimeBase,
		}
		if info.Kind == media.KindVideo {
			info.Params.FrameRate = fromRational(fc.GuessFrameRate(s, nil))
		}
		if info.Kind == media.KindAudio {
			info.Params.ChannelLayout = fromChannelLayout(cp.ChannelLayout())
		}
		in.infos = append(in.infos, info)
	}
	l.input = in
	return in, nil
}

func (in *input) Streams() []media.StreamInfo {
	return append([]media.StreamInfo(nil), in.infos...)
}

func (in *input) ReadPacket(pkt media.Packet) error {
	return mapErr(in.fc.ReadFrame(unwrapPacket(pkt)))
}

func (in *input) Close() {
	in.fc.CloseInput()
	in.fc.Free()
}

// OpenDecoder opens a decoder for stream index with the stream's parameters
func (in *input) OpenDecoder(index int) (media.Decoder, error) {
	if index < 0 || index >= len(in.streams) {
		return nil, fmt.Errorf("stream %d out of range", index)
	}
	s := in.streams[index]
	cp := s.CodecParameters()

	codec := astiav.FindDecoder(cp.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("%w: decoder for %s", media.ErrCodecNotFound, cp.CodecID().Name())
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("alloc decoder context failed")
	}
	if err := cp.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("copy decoder parameters: %w", err)
	}
	if cp.MediaType() == astiav.MediaTypeVideo {
		cc.SetFramerate(in.fc.GuessFrameRate(s, nil))
	}
	if tb := cc.TimeBase(); tb.Num() <= 0 || tb.Den() <= 0 {
		cc.SetTimeBase(s.TimeBase())
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open decoder: %w", err)
	}
	return &codecContext{cc: cc, codec: codec, kind: in.infos[index].Kind}, nil
}
