package capture

import (
	"errors"
	"fmt"
	"maps"

	"github.com/smazurov/webcamcapture/internal/events"
	"github.com/smazurov/webcamcapture/internal/ffmpeg"
	"github.com/smazurov/webcamcapture/internal/media"
)

// RTBufSizeOption is the input option carrying the receive buffer hint
const RTBufSizeOption = "rtbufsize"

// Selector builds the device selector of an input format from the camera
// and optional microphone tokens
func Selector(format, camera, mic string) string {
	switch format {
	case "dshow":
		sel := "video=" + camera
		if mic != "" {
			sel += ":audio=" + mic
		}
		return sel
	case "avfoundation":
		if mic != "" {
			return camera + ":" + mic
		}
		return camera
	}
	return camera
}

// inputRequest returns what openInput asks the library for
func (s *Session) inputRequest() media.InputRequest {
	opts := map[string]string{RTBufSizeOption: s.opts.RTBufSize}
	maps.Copy(opts, s.opts.InputOptions)

	if ts := s.opts.TestSource; ts != nil {
		return media.InputRequest{Format: "lavfi", URL: ffmpeg.TestSourceGraph(*ts), Options: opts}
	}

	format := s.opts.InputFormat
	if s.opts.AudioDevice != "" && format != "dshow" && format != "avfoundation" {
		s.logger.Warn("Input format cannot combine camera and microphone, audio ignored",
			"format", format, "audio", s.opts.AudioDevice)
	}
	return media.InputRequest{
		Format:  format,
		URL:     Selector(format, s.opts.VideoDevice, s.opts.AudioDevice),
		Options: opts,
	}
}

// openInput opens the capture device, probes its streams and opens a
// decoder for every video and audio stream
func (s *Session) openInput() error {
	req := s.inputRequest()
	s.logger.Info("Opening input", "format", req.Format, "url", req.URL)

	in, err := s.lib.OpenInput(req)
	if err != nil {
		return newStreamError(ErrInputOpen, noStream, fmt.Sprintf("open %q", req.URL), err)
	}
	s.input = in
	s.release.input.Add(in.Close)

	infos := in.Streams()
	s.streams = make([]*StreamContext, len(infos))
	for i, info := range infos {
		sc := &StreamContext{Index: i, Kind: info.Kind, Input: info, handler: kindStrategy(info.Kind)}
		s.streams[i] = sc
		if !sc.Transcoded() {
			continue
		}

		dec, err := in.OpenDecoder(i)
		if err != nil {
			if errors.Is(err, media.ErrCodecNotFound) {
				return newStreamError(ErrDecoderNotFound, i, info.Params.CodecName, err)
			}
			return newStreamError(ErrInputOpen, i, "open decoder", err)
		}
		sc.Decoder = dec
		s.release.codecs.Add(dec.Free)
	}

	s.dumpStreams("Input", req.URL, infos)
	return nil
}

// openOutput creates the container with one output stream per input stream,
// opens the destination and writes the header
func (s *Session) openOutput() error {
	out, err := s.lib.CreateOutput(s.opts.Destination)
	if err != nil {
		return newStreamError(ErrOutputOpen, noStream, "create "+s.opts.Destination, err)
	}
	s.output = out
	s.release.output.Add(out.Free)

	for _, sc := range s.streams {
		if err := s.addOutputStream(sc); err != nil {
			return err
		}
	}

	if err := out.OpenIO(); err != nil {
		return newStreamError(ErrOutputOpen, noStream, "open "+s.opts.Destination, err)
	}
	s.release.outputIO.AddWithError(out.CloseIO)

	if err := out.WriteHeader(); err != nil {
		return newStreamError(ErrOutputOpen, noStream, "write header", err)
	}
	s.headerWritten = true

	outInfos := make([]media.StreamInfo, len(s.streams))
	for i, sc := range s.streams {
		outInfos[i] = media.StreamInfo{Index: i, Kind: sc.Kind, TimeBase: out.StreamTimeBase(i)}
		if sc.Encoder != nil {
			outInfos[i].Params = sc.Encoder.Params()
		} else {
			outInfos[i].Params = sc.Input.Params
		}
	}
	s.dumpStreams("Output", s.opts.Destination, outInfos)
	return nil
}

func (s *Session) addOutputStream(sc *StreamContext) error {
	var (
		idx     int
		err     error
		encName string
	)
	switch {
	case sc.Kind == media.KindUnknown:
		return newStreamError(ErrUnsupportedStreamKind, sc.Index, "", fmt.Errorf("elementary stream is of unknown type"))
	case sc.Transcoded():
		dec := sc.Decoder.Params()
		codec, ok := s.lib.FindEncoder(dec.CodecID, s.encoderOverride(sc.Kind))
		if !ok {
			name := s.encoderOverride(sc.Kind)
			if name == "" {
				name = dec.CodecName
			}
			return newStreamError(ErrEncoderNotFound, sc.Index, name, media.ErrCodecNotFound)
		}

		params := sc.handler.encoderParams(dec, codec)
		params.GlobalHeader = s.output.NeedsGlobalHeader()
		enc, err := s.lib.OpenEncoder(codec, params)
		if err != nil {
			return newStreamError(ErrOutputOpen, sc.Index, "open "+sc.Kind.String()+" encoder", err)
		}
		sc.Encoder = enc
		s.release.codecs.Add(enc.Free)
		encName = codec.Name()

		idx, err = s.output.NewEncodedStream(enc)
		if err != nil {
			return newStreamError(ErrOutputOpen, sc.Index, "add output stream", err)
		}
	default:
		idx, err = s.output.NewCopyStream(sc.Input)
		if err != nil {
			return newStreamError(ErrOutputOpen, sc.Index, "copy stream parameters", err)
		}
	}

	if idx != sc.Index {
		return newStreamError(ErrOutputOpen, sc.Index, "add output stream", fmt.Errorf("muxer assigned index %d", idx))
	}

	s.bus.Publish(events.StreamOpenedEvent{
		SessionID: s.ID,
		Index:     sc.Index,
		Kind:      sc.Kind.String(),
		Codec:     sc.Input.Params.CodecName,
		Encoder:   encName,
		Timestamp: s.timestamp(),
	})
	return nil
}

func (s *Session) encoderOverride(k media.Kind) string {
	if k == media.KindAudio {
		return s.opts.AudioEncoder
	}
	return s.opts.VideoEncoder
}

// dumpStreams logs the stream layout of an input or output
func (s *Session) dumpStreams(direction, url string, infos []media.StreamInfo) {
	s.logger.Info(direction+" opened", "url", url, "streams", len(infos))
	for _, info := range infos {
		p := info.Params
		attrs := []any{"index", info.Index, "kind", info.Kind.String(), "codec", p.CodecName, "time_base", info.TimeBase.String()}
		switch info.Kind {
		case media.KindVideo:
			attrs = append(attrs, "size", fmt.Sprintf("%dx%d", p.Width, p.Height), "frame_rate", p.FrameRate.String())
		case media.KindAudio:
			attrs = append(attrs, "sample_rate", p.SampleRate, "layout", p.ChannelLayout.String())
		}
		s.logger.Info(direction+" stream", attrs...)
	}
}
