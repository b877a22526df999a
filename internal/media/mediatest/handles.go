package mediatest

import (
	"errors"
	"fmt"
	"io"

	"github.com/smazurov/webcamcapture/internal/media"
)

// ErrWrite is returned by WriteInterleaved when FailWriteAt triggers
var ErrWrite = errors.New("simulated write failure")

// Packet is an in-memory packet
type Packet struct {
	stream int
	pts    int64
	dts    int64
	seq    int64
}

func (p *Packet) StreamIndex() int     { return p.stream }
func (p *Packet) SetStreamIndex(i int) { p.stream = i }
func (p *Packet) PTS() int64           { return p.pts }
func (p *Packet) SetPTS(pts int64)     { p.pts = pts }
func (p *Packet) DTS() int64           { return p.dts }
func (p *Packet) SetDTS(dts int64)     { p.dts = dts }
func (p *Packet) Free()                {}

// Seq is the 1-based per-stream sequence number assigned on read
func (p *Packet) Seq() int64 { return p.seq }

func (p *Packet) RescaleTS(src, dst media.Rational) {
	p.pts = media.RescaleQ(p.pts, src, dst)
	p.dts = media.RescaleQ(p.dts, src, dst)
}

func (p *Packet) Unref() {
	*p = Packet{pts: media.NoPTS, dts: media.NoPTS}
}

// Frame is an in-memory frame
type Frame struct {
	pts        int64
	bestEffort int64
	pictType   bool
}

func (f *Frame) PTS() int64                 { return f.pts }
func (f *Frame) SetPTS(pts int64)           { f.pts = pts }
func (f *Frame) BestEffortTimestamp() int64 { return f.bestEffort }
func (f *Frame) ResetPictureType()          { f.pictType = false }
func (f *Frame) Free()                      {}

func (f *Frame) Unref() {
	*f = Frame{pts: media.NoPTS, bestEffort: media.NoPTS}
}

// Decoder emits one frame per packet
type Decoder struct {
	lib     *Library
	codec   *Codec
	params  media.CodecParams
	pending []int64
	Packets int
	Freed   bool
}

func (d *Decoder) Codec() media.Codec        { return d.codec }
func (d *Decoder) Params() media.CodecParams { return d.params }

func (d *Decoder) SendPacket(pkt media.Packet) error {
	d.Packets++
	d.pending = append(d.pending, pkt.PTS())
	return nil
}

func (d *Decoder) ReceiveFrame(f media.Frame) error {
	if len(d.pending) == 0 {
		return media.ErrAgain
	}
	fr := f.(*Frame)
	fr.bestEffort = d.pending[0]
	fr.pts = media.NoPTS
	fr.pictType = true
	d.pending = d.pending[1:]
	return nil
}

func (d *Decoder) Free() {
	d.lib.release("decoder", &d.Freed)
}

// Encoder emits one packet per frame, holding one back when the library
// simulates encoder delay
type Encoder struct {
	lib      *Library
	codec    *Codec
	params   media.CodecParams
	queue    []int64
	draining bool

	FramesIn   int
	PacketsOut int
	Flushes    int
	// PictureTypeSet counts frames that arrived with a decoder picture type
	PictureTypeSet int
	Freed          bool
}

func (e *Encoder) Codec() media.Codec        { return e.codec }
func (e *Encoder) Params() media.CodecParams { return e.params }

func (e *Encoder) SendFrame(f media.Frame) error {
	if e.draining {
		return io.EOF
	}
	if f == nil {
		e.Flushes++
		e.draining = true
		return nil
	}
	fr := f.(*Frame)
	if fr.pictType {
		e.PictureTypeSet++
	}
	e.FramesIn++
	e.queue = append(e.queue, fr.pts)
	return nil
}

func (e *Encoder) ReceivePacket(pkt media.Packet) error {
	hold := 0
	if e.codec.delay && !e.draining {
		hold = 1
	}
	if len(e.queue) <= hold {
		if e.draining {
			return io.EOF
		}
		return media.ErrAgain
	}
	p := pkt.(*Packet)
	p.pts = e.queue[0]
	p.dts = e.queue[0]
	e.queue = e.queue[1:]
	e.PacketsOut++
	return nil
}

func (e *Encoder) Free() {
	e.lib.release("encoder", &e.Freed)
}

// Graph passes frames through unchanged
type Graph struct {
	lib   *Library
	Spec  media.FilterSpec
	queue []int64
	eos   bool

	FramesIn  int
	FramesOut int
	EOSCount  int
	Freed     bool
}

func (g *Graph) AddFrame(f media.Frame) error {
	if g.eos {
		return io.EOF
	}
	if f == nil {
		g.eos = true
		g.EOSCount++
		return nil
	}
	g.FramesIn++
	g.queue = append(g.queue, f.PTS())
	return nil
}

func (g *Graph) GetFrame(f media.Frame) error {
	if len(g.queue) == 0 {
		if g.eos {
			return io.EOF
		}
		return media.ErrAgain
	}
	fr := f.(*Frame)
	fr.pts = g.queue[0]
	fr.pictType = true
	g.queue = g.queue[1:]
	g.FramesOut++
	return nil
}

func (g *Graph) Free() {
	g.lib.release("graph", &g.Freed)
}

// OutputStream is a stream added to an Output
type OutputStream struct {
	Kind     media.Kind
	TimeBase media.Rational
	Params   media.CodecParams
	Copied   bool
}

// Output records everything written to it
type Output struct {
	lib    *Library
	Path   string
	format string

	Streams        []OutputStream
	IOOpened       bool
	HeaderWritten  int
	TrailerWritten int
	Writes         int
	Packets        map[int]int
	// NonMonotonic counts packets whose DTS went backwards on their stream
	NonMonotonic int
	lastDTS      map[int]int64

	IOClosed bool
	Freed    bool
}

func (o *Output) FormatName() string { return o.format }

func (o *Output) NeedsGlobalHeader() bool {
	return o.format == "mp4" || o.format == "mkv" || o.format == "mov"
}

func (o *Output) NewEncodedStream(enc media.Encoder) (int, error) {
	p := enc.Params()
	tb := p.TimeBase
	if p.Kind == media.KindVideo {
		tb = media.NewRational(1, 90000)
	}
	o.Streams = append(o.Streams, OutputStream{Kind: p.Kind, TimeBase: tb, Params: p})
	return len(o.Streams) - 1, nil
}

func (o *Output) NewCopyStream(in media.StreamInfo) (int, error) {
	o.Streams = append(o.Streams, OutputStream{Kind: in.Kind, TimeBase: in.TimeBase, Params: in.Params, Copied: true})
	return len(o.Streams) - 1, nil
}

func (o *Output) OpenIO() error {
	if o.lib.OpenIOErr != nil {
		return o.lib.OpenIOErr
	}
	o.IOOpened = true
	return nil
}

func (o *Output) WriteHeader() error {
	if o.lib.HeaderErr != nil {
		return o.lib.HeaderErr
	}
	o.HeaderWritten++
	return nil
}

func (o *Output) StreamTimeBase(index int) media.Rational {
	return o.Streams[index].TimeBase
}

func (o *Output) WriteInterleaved(pkt media.Packet) error {
	o.Writes++
	if o.lib.FailWriteAt > 0 && o.Writes == o.lib.FailWriteAt {
		return ErrWrite
	}
	idx := pkt.StreamIndex()
	if idx < 0 || idx >= len(o.Streams) {
		return fmt.Errorf("invalid stream index %d", idx)
	}
	if last, ok := o.lastDTS[idx]; ok && pkt.DTS() < last {
		o.NonMonotonic++
	}
	o.lastDTS[idx] = pkt.DTS()
	o.Packets[idx]++
	return nil
}

func (o *Output) WriteTrailer() error {
	o.TrailerWritten++
	return nil
}

func (o *Output) CloseIO() error {
	if !o.IOOpened {
		return nil
	}
	o.lib.release("io", &o.IOClosed)
	return nil
}

func (o *Output) Free() {
	o.lib.release("output", &o.Freed)
}
