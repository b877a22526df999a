package events

// Event type constants for kelindar/event.
const (
	TypeSessionStarted uint32 = iota + 1
	TypeStreamOpened
	TypeCaptureError
	TypeStreamFlushed
	TypeSessionFinished
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStartedEvent is published once bootstrap succeeded and the capture
// loop is about to run.
type SessionStartedEvent struct {
	SessionID   string `json:"session_id"`
	Destination string `json:"destination"`
	VideoDevice string `json:"video_device"`
	AudioDevice string `json:"audio_device,omitempty"`
	Duration    int    `json:"duration"`
	Streams     int    `json:"streams"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for SessionStartedEvent.
func (e SessionStartedEvent) Type() uint32 { return TypeSessionStarted }

// StreamOpenedEvent describes one output stream created during bootstrap.
type StreamOpenedEvent struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	Kind      string `json:"kind"`
	Codec     string `json:"codec"`
	Encoder   string `json:"encoder,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamOpenedEvent.
func (e StreamOpenedEvent) Type() uint32 { return TypeStreamOpened }

// CaptureErrorEvent reports the error that ended a capture loop or flush.
type CaptureErrorEvent struct {
	SessionID string `json:"session_id"`
	Stream    int    `json:"stream"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// StreamFlushedEvent is published after a stream's filter and encoder drained.
type StreamFlushedEvent struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	Kind      string `json:"kind"`
	Packets   int    `json:"packets"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamFlushedEvent.
func (e StreamFlushedEvent) Type() uint32 { return TypeStreamFlushed }

// SessionFinishedEvent is published after teardown.
type SessionFinishedEvent struct {
	SessionID   string  `json:"session_id"`
	Destination string  `json:"destination"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	Elapsed     float64 `json:"elapsed_seconds"`
	PacketsRead int     `json:"packets_read"`
	Timestamp   string  `json:"timestamp"`
}

// Type returns the event type identifier for SessionFinishedEvent.
func (e SessionFinishedEvent) Type() uint32 { return TypeSessionFinished }
