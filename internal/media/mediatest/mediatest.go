// Package mediatest provides an in-memory media library that synthesises
// capture streams and records every call the pipeline makes against it.
package mediatest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/smazurov/webcamcapture/internal/media"
)

// Codec identifiers used by the synthetic streams
const (
	CodecRawVideo = 13
	CodecPCM      = 65536
	CodecText     = 94210
)

// Pixel and sample format identifiers used by the synthetic streams
const (
	PixelFormatYUYV422 = 1
	PixelFormatYUV420P = 0
	SampleFormatS16    = 1
	SampleFormatFLTP   = 8
)

// StreamSpec describes one synthetic input stream
type StreamSpec struct {
	Kind     media.Kind
	TimeBase media.Rational
	Params   media.CodecParams
}

// VideoStream returns a raw camera stream of the given size and rate
func VideoStream(width, height, fps int) StreamSpec {
	return StreamSpec{
		Kind:     media.KindVideo,
		TimeBase: media.NewRational(1, 10_000_000),
		Params: media.CodecParams{
			Kind:         media.KindVideo,
			CodecID:      CodecRawVideo,
			CodecName:    "rawvideo",
			Width:        width,
			Height:       height,
			SampleAspect: media.NewRational(1, 1),
			PixelFormat:  PixelFormatYUYV422,
			FrameRate:    media.NewRational(fps, 1),
			TimeBase:     media.NewRational(1, 10_000_000),
		},
	}
}

// AudioStream returns a PCM microphone stream
func AudioStream(sampleRate, channels int) StreamSpec {
	layout, _ := media.DefaultChannelLayout(channels)
	return StreamSpec{
		Kind:     media.KindAudio,
		TimeBase: media.NewRational(1, 10_000_000),
		Params: media.CodecParams{
			Kind:          media.KindAudio,
			CodecID:       CodecPCM,
			CodecName:     "pcm_s16le",
			SampleRate:    sampleRate,
			ChannelLayout: layout,
			SampleFormat:  SampleFormatS16,
			TimeBase:      media.NewRational(1, 10_000_000),
		},
	}
}

// DataStream returns a stream that is copied without transcoding
func DataStream(kind media.Kind) StreamSpec {
	return StreamSpec{
		Kind:     kind,
		TimeBase: media.NewRational(1, 1000),
		Params: media.CodecParams{
			Kind:      kind,
			CodecID:   CodecText,
			CodecName: "text",
			TimeBase:  media.NewRational(1, 1000),
		},
	}
}

// Library is a media.Library backed by synthetic streams. Every ReadPacket
// advances Clock by Step and returns the next stream's packet round robin.
type Library struct {
	Streams []StreamSpec
	Clock   *clocktesting.FakeClock
	Step    time.Duration
	// MaxPackets ends input with io.EOF after this many packets, 0 for never
	MaxPackets int
	// EncoderDelay makes encoders hold one frame until flushed
	EncoderDelay bool
	// AudioFrameSize is the fixed frame size reported by opened audio
	// encoders, 0 for variable
	AudioFrameSize int

	OpenInputErr    error
	ReadErr         error
	CreateOutputErr error
	OpenIOErr       error
	HeaderErr       error
	FilterErr       error
	NoDecoderFor    map[media.Kind]bool
	NoEncoderFor    map[media.Kind]bool
	// FailWriteAt fails the nth WriteInterleaved call, 0 for never
	FailWriteAt int

	Requests []media.InputRequest
	Input    *Input
	Output   *Output
	Decoders []*Decoder
	Encoders []*Encoder
	Graphs   []*Graph
	// Released lists handle releases in call order: graph, decoder,
	// encoder, input, io, output
	Released    []string
	DoubleFrees int
}

// NewLibrary returns a library serving the given streams with a 10ms step
func NewLibrary(clock *clocktesting.FakeClock, streams ...StreamSpec) *Library {
	return &Library{
		Streams: streams,
		Clock:   clock,
		Step:    10 * time.Millisecond,
	}
}

func (l *Library) release(kind string, freed *bool) {
	if *freed {
		l.DoubleFrees++
		return
	}
	*freed = true
	l.Released = append(l.Released, kind)
}

// ReleaseIndex returns the position of the first release of kind, -1 if none
func (l *Library) ReleaseIndex(kind string) int {
	for i, k := range l.Released {
		if k == kind {
			return i
		}
	}
	return -1
}

// LastReleaseIndex returns the position of the last release of kind, -1 if none
func (l *Library) LastReleaseIndex(kind string) int {
	for i := len(l.Released) - 1; i >= 0; i-- {
		if l.Released[i] == kind {
			return i
		}
	}
	return -1
}

func (l *Library) OpenInput(req media.InputRequest) (media.Input, error) {
	l.Requests = append(l.Requests, req)
	if l.OpenInputErr != nil {
		return nil, l.OpenInputErr
	}
	in := &Input{lib: l, counters: make([]int64, len(l.Streams))}
	if l.Clock != nil {
		in.start = l.Clock.Now()
	}
	l.Input = in
	return in, nil
}

func (l *Library) FindEncoder(codecID int, name string) (media.Codec, bool) {
	for _, s := range l.Streams {
		if s.Params.CodecID == codecID && !l.NoEncoderFor[s.Kind] {
			return &Codec{name: s.Params.CodecName, id: codecID, kind: s.Kind, delay: l.EncoderDelay}, true
		}
	}
	return nil, false
}

func (l *Library) OpenEncoder(codec media.Codec, params media.CodecParams) (media.Encoder, error) {
	c, ok := codec.(*Codec)
	if !ok {
		return nil, fmt.Errorf("foreign codec %T", codec)
	}
	if !params.TimeBase.Valid() {
		return nil, errors.New("invalid encoder time base")
	}
	if params.Kind == media.KindAudio {
		params.FrameSize = l.AudioFrameSize
	}
	enc := &Encoder{lib: l, codec: c, params: params}
	l.Encoders = append(l.Encoders, enc)
	return enc, nil
}

func (l *Library) CreateOutput(path string) (media.Output, error) {
	if l.CreateOutputErr != nil {
		return nil, l.CreateOutputErr
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("unable to guess output format for %q", path)
	}
	out := &Output{lib: l, Path: path, format: ext, Packets: map[int]int{}, lastDTS: map[int]int64{}}
	l.Output = out
	return out, nil
}

func (l *Library) NewFilterGraph(spec media.FilterSpec) (media.FilterGraph, error) {
	if l.FilterErr != nil {
		return nil, l.FilterErr
	}
	g := &Graph{lib: l, Spec: spec}
	l.Graphs = append(l.Graphs, g)
	return g, nil
}

func (l *Library) AllocPacket() media.Packet {
	return &Packet{pts: media.NoPTS, dts: media.NoPTS}
}

func (l *Library) AllocFrame() media.Frame {
	return &Frame{pts: media.NoPTS, bestEffort: media.NoPTS}
}

// Codec is a synthetic codec that supports the stream's own formats plus the
// common planar ones
type Codec struct {
	name  string
	id    int
	kind  media.Kind
	delay bool
}

func (c *Codec) Name() string   { return c.name }
func (c *Codec) ID() int        { return c.id }
func (c *Codec) HasDelay() bool { return c.delay }

func (c *Codec) PixelFormats() []int {
	if c.kind != media.KindVideo {
		return nil
	}
	return []int{PixelFormatYUV420P}
}

func (c *Codec) SampleFormats() []int {
	if c.kind != media.KindAudio {
		return nil
	}
	return []int{SampleFormatFLTP}
}

// Input serves synthetic packets
type Input struct {
	lib      *Library
	start    time.Time
	read     int
	counters []int64
	Closed   bool
}

func (in *Input) Streams() []media.StreamInfo {
	infos := make([]media.StreamInfo, len(in.lib.Streams))
	for i, s := range in.lib.Streams {
		infos[i] = media.StreamInfo{Index: i, Kind: s.Kind, TimeBase: s.TimeBase, Params: s.Params}
	}
	return infos
}

func (in *Input) OpenDecoder(index int) (media.Decoder, error) {
	s := in.lib.Streams[index]
	if in.lib.NoDecoderFor[s.Kind] {
		return nil, media.ErrCodecNotFound
	}
	dec := &Decoder{
		lib:    in.lib,
		codec:  &Codec{name: s.Params.CodecName, id: s.Params.CodecID, kind: s.Kind},
		params: s.Params,
	}
	in.lib.Decoders = append(in.lib.Decoders, dec)
	return dec, nil
}

func (in *Input) ReadPacket(pkt media.Packet) error {
	if in.lib.ReadErr != nil {
		return in.lib.ReadErr
	}
	if in.lib.MaxPackets > 0 && in.read >= in.lib.MaxPackets {
		return io.EOF
	}
	if len(in.lib.Streams) == 0 {
		return io.EOF
	}
	if in.lib.Clock != nil {
		in.lib.Clock.Step(in.lib.Step)
	}

	idx := in.read % len(in.lib.Streams)
	in.read++
	in.counters[idx]++

	var elapsed time.Duration
	if in.lib.Clock != nil {
		elapsed = in.lib.Clock.Since(in.start)
	}
	ts := media.RescaleQ(elapsed.Microseconds(), media.NewRational(1, 1_000_000), in.lib.Streams[idx].TimeBase)

	p := pkt.(*Packet)
	p.stream = idx
	p.pts = ts
	p.dts = ts
	p.seq = in.counters[idx]
	return nil
}

func (in *Input) Close() {
	in.lib.release("input", &in.Closed)
}

// PacketsRead is the number of packets handed out so far
func (in *Input) PacketsRead() int {
	return in.read
}
