package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smazurov/webcamcapture/internal/config"
)

// Session error kinds. Every error returned or recorded by a Session
// matches exactly one of these with errors.Is.
var (
	ErrConfiguration         = config.ErrConfiguration
	ErrInputOpen             = errors.New("cannot open input")
	ErrDecoderNotFound       = errors.New("decoder not found")
	ErrOutputOpen            = errors.New("cannot open output")
	ErrEncoderNotFound       = errors.New("encoder not found")
	ErrUnsupportedStreamKind = errors.New("unsupported stream kind")
	ErrFilterGraph           = errors.New("filter graph error")
	ErrCapture               = errors.New("capture error")
)

// noStream marks an error that is not tied to one stream
const noStream = -1

// StreamError ties a failure to the stream and pipeline stage it happened in
type StreamError struct {
	Kind   error
	Stream int
	Stage  string
	Cause  error
}

func (e *StreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Stream != noStream {
		fmt.Fprintf(&b, ": stream #%d", e.Stream)
	}
	if e.Stage != "" {
		b.WriteString(": ")
		b.WriteString(e.Stage)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *StreamError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newStreamError(kind error, stream int, stage string, cause error) *StreamError {
	return &StreamError{Kind: kind, Stream: stream, Stage: stage, Cause: cause}
}

// errStage returns the stage of the first StreamError in err, "" when none
func errStage(err error) (string, int) {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Stage, se.Stream
	}
	return "", noStream
}
