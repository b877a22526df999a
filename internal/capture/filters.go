package capture

import (
	"github.com/smazurov/webcamcapture/internal/media"
)

// FilterEntry is the filter graph of one stream. Streams that are remuxed
// have an entry without a graph.
type FilterEntry struct {
	Graph media.FilterGraph
	Spec  media.FilterSpec
}

// Filtered reports whether the stream has a graph
func (e *FilterEntry) Filtered() bool {
	return e != nil && e.Graph != nil
}

// buildFilterGraphs creates a pass-through graph for every transcoded stream,
// from the decoder's output format to the encoder's input format
func (s *Session) buildFilterGraphs() error {
	s.filters = make([]*FilterEntry, len(s.streams))
	for i, sc := range s.streams {
		entry := &FilterEntry{}
		s.filters[i] = entry
		if !sc.Transcoded() {
			continue
		}

		spec := sc.handler.filterSpec(sc.Decoder.Params(), sc.Encoder.Params())
		g, err := s.lib.NewFilterGraph(spec)
		if err != nil {
			return newStreamError(ErrFilterGraph, i, spec.Description, err)
		}
		entry.Graph = g
		entry.Spec = spec
		s.release.graphs.Add(g.Free)

		s.logger.Debug("Filter graph configured", "stream", i, "filter", spec.Description)
	}
	return nil
}

// drainFilter encodes and writes every frame the sink has ready
func (s *Session) drainFilter(sc *StreamContext) error {
	entry := s.filters[sc.Index]
	filtered := s.scratch().filtered
	encTB := sc.Encoder.Params().TimeBase
	for {
		err := entry.Graph.GetFrame(filtered)
		if isDone(err) {
			return nil
		}
		if err != nil {
			return newStreamError(ErrCapture, sc.Index, "filter pull", err)
		}

		// sink frames carry the source time base
		filtered.SetPTS(media.RescaleQ(filtered.PTS(), entry.Spec.Source.TimeBase, encTB))
		filtered.ResetPictureType()
		err = s.encodeWrite(sc, filtered)
		filtered.Unref()
		if err != nil {
			return err
		}
	}
}
