// Package libav implements the media handles on top of the FFmpeg libraries
// through go-astiav.
package libav

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"

	"github.com/smazurov/webcamcapture/internal/logging"
	"github.com/smazurov/webcamcapture/internal/media"
)

var registerOnce sync.Once

// Library is the go-astiav backed media.Library
type Library struct {
	// input is the last opened input. Copy streams take their parameters
	// from it.
	input *input
}

// New registers the capture devices and routes library logs to slog
func New() *Library {
	registerOnce.Do(func() {
		astiav.RegisterAllDevices()
		InstallLogBridge(logging.GetLogger("libav"))
	})
	return &Library{}
}

func (l *Library) AllocPacket() media.Packet {
	return &packet{p: astiav.AllocPacket()}
}

func (l *Library) AllocFrame() media.Frame {
	return &frame{f: astiav.AllocFrame()}
}

// mapErr converts library sentinel errors to the media package's
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return media.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return io.EOF
	}
	return err
}

func toRational(r media.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}

func fromRational(r astiav.Rational) media.Rational {
	return media.NewRational(r.Num(), r.Den())
}

func fromMediaType(t astiav.MediaType) media.Kind {
	switch t {
	case astiav.MediaTypeVideo:
		return media.KindVideo
	case astiav.MediaTypeAudio:
		return media.KindAudio
	case astiav.MediaTypeData:
		return media.KindData
	case astiav.MediaTypeSubtitle:
		return media.KindSubtitle
	case astiav.MediaTypeAttachment:
		return media.KindAttachment
	}
	return media.KindUnknown
}

func fromChannelLayout(l astiav.ChannelLayout) media.ChannelLayout {
	return media.ChannelLayout{Channels: l.Channels(), Name: l.String()}
}

// namedLayouts are matched by name first, so a decoder's "5.1(side)" stays
// a side layout
var namedLayouts = []astiav.ChannelLayout{
	astiav.ChannelLayoutMono,
	astiav.ChannelLayoutStereo,
	astiav.ChannelLayout2Point1,
	astiav.ChannelLayout21,
	astiav.ChannelLayoutSurround,
	astiav.ChannelLayout3Point1,
	astiav.ChannelLayout4Point0,
	astiav.ChannelLayout4Point1,
	astiav.ChannelLayout22,
	astiav.ChannelLayoutQuad,
	astiav.ChannelLayout5Point0,
	astiav.ChannelLayout5Point1,
	astiav.ChannelLayout5Point0Back,
	astiav.ChannelLayout5Point1Back,
	astiav.ChannelLayout6Point0,
	astiav.ChannelLayout6Point0Front,
	astiav.ChannelLayoutHexagonal,
	astiav.ChannelLayout6Point1,
	astiav.ChannelLayout6Point1Back,
	astiav.ChannelLayout6Point1Front,
	astiav.ChannelLayout7Point0,
	astiav.ChannelLayout7Point0Front,
	astiav.ChannelLayout7Point1,
	astiav.ChannelLayout7Point1Wide,
	astiav.ChannelLayout7Point1WideBack,
	astiav.ChannelLayoutOctagonal,
}

// countLayouts mirror media.DefaultChannelLayout
var countLayouts = map[int]astiav.ChannelLayout{
	1: astiav.ChannelLayoutMono,
	2: astiav.ChannelLayoutStereo,
	3: astiav.ChannelLayout2Point1,
	4: astiav.ChannelLayout4Point0,
	5: astiav.ChannelLayout5Point0Back,
	6: astiav.ChannelLayout5Point1Back,
	7: astiav.ChannelLayout6Point1,
	8: astiav.ChannelLayout7Point1,
}

func toChannelLayout(l media.ChannelLayout) (astiav.ChannelLayout, error) {
	if l.Name != "" {
		for _, named := range namedLayouts {
			if named.String() == l.Name && named.Channels() == l.Channels {
				return named, nil
			}
		}
	}
	if layout, ok := countLayouts[l.Channels]; ok {
		return layout, nil
	}
	return astiav.ChannelLayout{}, fmt.Errorf("no channel layout for %d channels", l.Channels)
}

type packet struct {
	p *astiav.Packet
}

func (p *packet) StreamIndex() int     { return p.p.StreamIndex() }
func (p *packet) SetStreamIndex(i int) { p.p.SetStreamIndex(i) }
func (p *packet) PTS() int64           { return p.p.Pts() }
func (p *packet) SetPTS(pts int64)     { p.p.SetPts(pts) }
func (p *packet) DTS() int64           { return p.p.Dts() }
func (p *packet) SetDTS(dts int64)     { p.p.SetDts(dts) }
func (p *packet) Unref()               { p.p.Unref() }
func (p *packet) Free()                { p.p.Free() }
func (p *packet) RescaleTS(src, dst media.Rational) {
	p.p.RescaleTs(toRational(src), toRational(dst))
}

type frame struct {
	f *astiav.Frame
}

func (f *frame) PTS() int64       { return f.f.Pts() }
func (f *frame) SetPTS(pts int64) { f.f.SetPts(pts) }
func (f *frame) Unref()           { f.f.Unref() }
func (f *frame) Free()            { f.f.Free() }

// BestEffortTimestamp returns the decoder's presentation timestamp, which
// is what the decoders used for capture report as their best guess
func (f *frame) BestEffortTimestamp() int64 { return f.f.Pts() }

func (f *frame) ResetPictureType() { f.f.SetPictureType(astiav.PictureTypeNone) }

// unwrap returns the library frame of a media.Frame, nil for nil
func unwrapFrame(f media.Frame) *astiav.Frame {
	if f == nil {
		return nil
	}
	return f.(*frame).f
}

func unwrapPacket(p media.Packet) *astiav.Packet {
	return p.(*packet).p
}
