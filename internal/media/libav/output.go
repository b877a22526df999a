package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/smazurov/webcamcapture/internal/media"
)

type output struct {
	lib  *Library
	path string
	fc   *astiav.FormatContext
	io   *astiav.IOContext
}

// CreateOutput allocates a muxer with the format guessed from path
func (l *Library) CreateOutput(path string) (media.Output, error) {
	fc, err := astiav.AllocOutputFormatContext(nil, "", path)
	if err != nil {
		return nil, err
	}
	if fc == nil {
		return nil, errors.New("could not deduce output format from file extension")
	}
	return &output{lib: l, path: path, fc: fc}, nil
}

func (o *output) FormatName() string {
	return o.fc.OutputFormat().Name()
}

func (o *output) NeedsGlobalHeader() bool {
	return o.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader)
}

func (o *output) NewEncodedStream(enc media.Encoder) (int, error) {
	cc, ok := enc.(*codecContext)
	if !ok {
		return 0, errors.New("encoder was not created by this library")
	}
	s := o.fc.NewStream(nil)
	if s == nil {
		return 0, errors.New("failed allocating output stream")
	}
	if err := cc.cc.ToCodecParameters(s.CodecParameters()); err != nil {
		return 0, fmt.Errorf("copy encoder parameters: %w", err)
	}
	s.SetTimeBase(cc.cc.TimeBase())
	return s.Index(), nil
}

func (o *output) NewCopyStream(in media.StreamInfo) (int, error) {
	if o.lib.input == nil || in.Index >= len(o.lib.input.streams) {
		return 0, fmt.Errorf("no input stream %d to copy", in.Index)
	}
	src := o.lib.input.streams[in.Index]
	s := o.fc.NewStream(nil)
	if s == nil {
		return 0, errors.New("failed allocating output stream")
	}
	if err := src.CodecParameters().Copy(s.CodecParameters()); err != nil {
		return 0, fmt.Errorf("copy stream parameters: %w", err)
	}
	s.CodecParameters().SetCodecTag(0)
	s.SetTimeBase(src.TimeBase())
	return s.Index(), nil
}

func (o *output) OpenIO() error {
	if o.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		return nil
	}
	pb, err := astiav.OpenIOContext(o.path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return err
	}
	o.io = pb
	o.fc.SetPb(pb)
	return nil
}

func (o *output) WriteHeader() error {
	return o.fc.WriteHeader(nil)
}

func (o *output) StreamTimeBase(index int) media.Rational {
	streams := o.fc.Streams()
	if index < 0 || index >= len(streams) {
		return media.Rational{}
	}
	return fromRational(streams[index].TimeBase())
}

func (o *output) WriteInterleaved(pkt media.Packet) error {
	return o.fc.WriteInterleavedFrame(unwrapPacket(pkt))
}

func (o *output) WriteTrailer() error {
	return o.fc.WriteTrailer()
}

func (o *output) CloseIO() error {
	if o.io == nil {
		return nil
	}
	err := o.io.Close()
	o.io.Free()
	o.io = nil
	return err
}

func (o *output) Free() {
	o.fc.Free()
}
