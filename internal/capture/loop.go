package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/smazurov/webcamcapture/internal/media"
)

// buffers are the packets and frames reused across loop iterations
type buffers struct {
	in       media.Packet
	out      media.Packet
	decoded  media.Frame
	filtered media.Frame
}

func (s *Session) scratch() *buffers {
	if s.buf == nil {
		s.buf = &buffers{
			in:       s.lib.AllocPacket(),
			out:      s.lib.AllocPacket(),
			decoded:  s.lib.AllocFrame(),
			filtered: s.lib.AllocFrame(),
		}
	}
	return s.buf
}

func (s *Session) releaseScratch() {
	if s.buf == nil {
		return
	}
	s.buf.in.Free()
	s.buf.out.Free()
	s.buf.decoded.Free()
	s.buf.filtered.Free()
	s.buf = nil
}

// isDone reports the receive-style results that mean "nothing more for now"
func isDone(err error) bool {
	return errors.Is(err, media.ErrAgain) || errors.Is(err, io.EOF)
}

// Run captures until the duration elapsed, the input ended or a stage
// failed, then flushes. Failures end up in Status and Err; Run itself never
// fails. It does nothing unless Open succeeded.
func (s *Session) Run() Status {
	if !s.ready || s.flushed {
		return s.status
	}

	start := s.clock.Now()
	deadline := start.Add(s.opts.Duration)
	nextDot := start.Add(time.Second)
	dots := false
	pkt := s.scratch().in

	s.logger.Info("Capture started", "duration", s.opts.Duration.String(), "destination", s.opts.Destination)
	for {
		now := s.clock.Now()
		if !now.Before(deadline) {
			break
		}
		if s.progress != nil && !now.Before(nextDot) {
			fmt.Fprint(s.progress, ".")
			dots = true
			nextDot = now.Add(time.Second)
		}

		if err := s.input.ReadPacket(pkt); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("Reading input failed, stopping capture", "error", err)
			} else {
				s.logger.Info("Input ended")
			}
			break
		}

		err := s.route(pkt, s.clock.Since(start))
		pkt.Unref()
		if err != nil {
			s.fail(err)
			break
		}
	}
	s.elapsed = s.clock.Since(start)
	if dots {
		fmt.Fprintln(s.progress)
	}
	s.logger.Info("Capture stopped", "elapsed", s.elapsed.String(), "packets", s.packetsRead)

	if err := s.flush(); err != nil {
		s.fail(err)
	}
	if s.status == StatusRunning {
		s.status = StatusSucceeded
	}
	return s.status
}

// route sends one packet down its stream's path
func (s *Session) route(pkt media.Packet, elapsed time.Duration) error {
	idx := pkt.StreamIndex()
	if idx < 0 || idx >= len(s.streams) {
		return newStreamError(ErrCapture, idx, "demux", fmt.Errorf("packet for unknown stream"))
	}
	sc := s.streams[idx]
	sc.PacketsRead++
	s.packetsRead++
	s.metrics.PacketRead(idx, sc.Kind.String())

	if !s.filters[idx].Filtered() {
		return s.remux(sc, pkt)
	}

	sc.handler.stamp(sc, pkt, elapsed, s.logger)
	pkt.RescaleTS(sc.Input.TimeBase, sc.Decoder.Params().TimeBase)

	if err := sc.Decoder.SendPacket(pkt); err != nil {
		return newStreamError(ErrCapture, idx, "decode", err)
	}

	frame := s.scratch().decoded
	for {
		err := sc.Decoder.ReceiveFrame(frame)
		if isDone(err) {
			return nil
		}
		if err != nil {
			return newStreamError(ErrCapture, idx, "decode", err)
		}

		frame.SetPTS(frame.BestEffortTimestamp())
		err = s.filterEncodeWrite(sc, frame)
		frame.Unref()
		if err != nil {
			return err
		}
	}
}

// remux writes a packet of an unfiltered stream unchanged
func (s *Session) remux(sc *StreamContext, pkt media.Packet) error {
	pkt.RescaleTS(sc.Input.TimeBase, s.output.StreamTimeBase(sc.Index))
	if err := s.output.WriteInterleaved(pkt); err != nil {
		return newStreamError(ErrCapture, sc.Index, "write", err)
	}
	sc.PacketsWritten++
	s.metrics.PacketWritten(sc.Index, sc.Kind.String())
	return nil
}

func (s *Session) filterEncodeWrite(sc *StreamContext, frame media.Frame) error {
	if err := s.filters[sc.Index].Graph.AddFrame(frame); err != nil {
		return newStreamError(ErrCapture, sc.Index, "filter push", err)
	}
	return s.drainFilter(sc)
}

// encodeWrite encodes one filtered frame and writes what the encoder emits
func (s *Session) encodeWrite(sc *StreamContext, frame media.Frame) error {
	err := sc.Encoder.SendFrame(frame)
	if errors.Is(err, media.ErrAgain) {
		// encoder output is full, make room and resend
		if err := s.writeEncoded(sc); err != nil {
			return err
		}
		err = sc.Encoder.SendFrame(frame)
	}
	if err != nil {
		return newStreamError(ErrCapture, sc.Index, "encode", err)
	}
	sc.FramesEncoded++
	s.metrics.FrameEncoded(sc.Index, sc.Kind.String())
	return s.writeEncoded(sc)
}

// writeEncoded moves every ready packet from the encoder to the muxer
func (s *Session) writeEncoded(sc *StreamContext) error {
	pkt := s.scratch().out
	for {
		err := sc.Encoder.ReceivePacket(pkt)
		if isDone(err) {
			return nil
		}
		if err != nil {
			return newStreamError(ErrCapture, sc.Index, "encode", err)
		}

		pkt.SetStreamIndex(sc.Index)
		pkt.RescaleTS(sc.Encoder.Params().TimeBase, s.output.StreamTimeBase(sc.Index))
		err = s.output.WriteInterleaved(pkt)
		pkt.Unref()
		if err != nil {
			return newStreamError(ErrCapture, sc.Index, "write", err)
		}
		sc.PacketsWritten++
		s.metrics.PacketWritten(sc.Index, sc.Kind.String())
	}
}
