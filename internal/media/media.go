// Package media defines the contract between the capture pipeline and the
// codec/container library that does the actual demuxing, decoding, filtering,
// encoding and muxing. The pipeline only drives these handles; it never looks
// inside a codec or a container.
package media

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// ErrAgain is returned by receive-style calls when more input is needed
// before the next output becomes available. End of stream is io.EOF.
var ErrAgain = errors.New("resource temporarily unavailable")

// ErrCodecNotFound is returned when no decoder or encoder exists for a codec
var ErrCodecNotFound = errors.New("codec not found")

// NoPTS marks an unset timestamp
const NoPTS int64 = math.MinInt64

// Kind is the media type of a stream
type Kind int

const (
	KindUnknown Kind = iota
	KindVideo
	KindAudio
	KindData
	KindSubtitle
	KindAttachment
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindData:
		return "data"
	case KindSubtitle:
		return "subtitle"
	case KindAttachment:
		return "attachment"
	default:
		return "unknown"
	}
}

// Transcoded reports whether streams of this kind go through decode/filter/encode
func (k Kind) Transcoded() bool {
	return k == KindVideo || k == KindAudio
}

// Rational is a fraction used for time bases, frame rates and aspect ratios
type Rational struct {
	Num int
	Den int
}

// NewRational returns num/den
func NewRational(num, den int) Rational {
	return Rational{Num: num, Den: den}
}

// Valid reports whether both terms are positive
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Invert returns den/num
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// RescaleQ converts a from time base src to time base dst, rounding half away
// from zero. NoPTS passes through unchanged.
func RescaleQ(a int64, src, dst Rational) int64 {
	if a == NoPTS || !src.Valid() || !dst.Valid() {
		return a
	}
	// a * src.Num * dst.Den / (src.Den * dst.Num)
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(int64(src.Num)*int64(dst.Den)))
	den := big.NewInt(int64(src.Den) * int64(dst.Num))

	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	m.Abs(m).Lsh(m, 1)
	if m.Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	if !q.IsInt64() {
		return NoPTS
	}
	return q.Int64()
}

// ChannelLayout describes an audio channel arrangement
type ChannelLayout struct {
	Channels int
	Name     string
}

var (
	ChannelLayoutMono   = ChannelLayout{Channels: 1, Name: "mono"}
	ChannelLayoutStereo = ChannelLayout{Channels: 2, Name: "stereo"}
)

var defaultLayouts = map[int]ChannelLayout{
	1: ChannelLayoutMono,
	2: ChannelLayoutStereo,
	3: {Channels: 3, Name: "2.1"},
	4: {Channels: 4, Name: "4.0"},
	5: {Channels: 5, Name: "5.0"},
	6: {Channels: 6, Name: "5.1"},
	7: {Channels: 7, Name: "6.1"},
	8: {Channels: 8, Name: "7.1"},
}

// DefaultChannelLayout returns the conventional layout for a channel count
func DefaultChannelLayout(channels int) (ChannelLayout, bool) {
	l, ok := defaultLayouts[channels]
	return l, ok
}

// Valid reports whether the layout names at least one channel
func (l ChannelLayout) Valid() bool {
	return l.Channels > 0
}

func (l ChannelLayout) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%d channels", l.Channels)
}

// CodecParams carries the stream or codec parameters the pipeline needs to
// configure encoders and filter endpoints. Pixel and sample formats are the
// library's numeric identifiers.
type CodecParams struct {
	Kind          Kind
	CodecID       int
	CodecName     string
	Width         int
	Height        int
	SampleAspect  Rational
	PixelFormat   int
	FrameRate     Rational
	SampleRate    int
	ChannelLayout ChannelLayout
	SampleFormat  int
	// FrameSize is the samples per frame an audio encoder requires, 0 when
	// it accepts any count
	FrameSize    int
	TimeBase     Rational
	GlobalHeader bool
}

// StreamInfo describes one discovered input stream
type StreamInfo struct {
	Index    int
	Kind     Kind
	TimeBase Rational
	Params   CodecParams
}
