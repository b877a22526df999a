package capture

import (
	"errors"

	"github.com/smazurov/webcamcapture/internal/events"
)

// flush drains every filter graph and encoder, then writes the trailer.
// Every stream is attempted even when an earlier one fails. It runs once.
func (s *Session) flush() error {
	if s.flushed {
		return nil
	}
	s.flushed = true
	defer s.releaseScratch()

	var errs []error
	for i, entry := range s.filters {
		if !entry.Filtered() {
			continue
		}
		sc := s.streams[i]
		before := sc.PacketsWritten
		if err := s.flushStream(sc); err != nil {
			s.logger.Error("Flushing stream failed", "stream", i, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("Stream flushed", "stream", i, "kind", sc.Kind.String(), "packets", sc.PacketsWritten-before)
		s.bus.Publish(events.StreamFlushedEvent{
			SessionID: s.ID,
			Index:     i,
			Kind:      sc.Kind.String(),
			Packets:   sc.PacketsWritten - before,
			Timestamp: s.timestamp(),
		})
	}

	if s.headerWritten {
		if err := s.output.WriteTrailer(); err != nil {
			errs = append(errs, newStreamError(ErrCapture, noStream, "write trailer", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) flushStream(sc *StreamContext) error {
	if err := s.filters[sc.Index].Graph.AddFrame(nil); err != nil && !isDone(err) {
		return newStreamError(ErrCapture, sc.Index, "filter end of stream", err)
	}
	if err := s.drainFilter(sc); err != nil {
		return err
	}
	if !sc.Encoder.Codec().HasDelay() {
		return nil
	}
	if err := sc.Encoder.SendFrame(nil); err != nil && !isDone(err) {
		return newStreamError(ErrCapture, sc.Index, "flush encoder", err)
	}
	return s.writeEncoded(sc)
}
