package media

// Packet is a compressed unit read from an input or produced by an encoder
type Packet interface {
	StreamIndex() int
	SetStreamIndex(i int)
	PTS() int64
	SetPTS(pts int64)
	DTS() int64
	SetDTS(dts int64)
	// RescaleTS converts PTS, DTS and duration from src to dst
	RescaleTS(src, dst Rational)
	Unref()
	Free()
}

// Frame is a decoded picture or block of audio samples
type Frame interface {
	PTS() int64
	SetPTS(pts int64)
	BestEffortTimestamp() int64
	// ResetPictureType clears the decoder's picture type so the encoder
	// picks its own frame types
	ResetPictureType()
	Unref()
	Free()
}

// Codec is an encoder or decoder implementation known to the library
type Codec interface {
	Name() string
	ID() int
	PixelFormats() []int
	SampleFormats() []int
	// HasDelay reports whether the codec buffers frames and must be flushed
	HasDelay() bool
}

// Input is an opened capture source with its streams probed
type Input interface {
	Streams() []StreamInfo
	// OpenDecoder opens a decoder for a video or audio stream. It returns
	// ErrCodecNotFound when the library has no decoder for the stream.
	OpenDecoder(index int) (Decoder, error)
	// ReadPacket fills pkt with the next packet, io.EOF at end of input
	ReadPacket(pkt Packet) error
	Close()
}

// Decoder turns packets into frames
type Decoder interface {
	Codec() Codec
	Params() CodecParams
	SendPacket(pkt Packet) error
	// ReceiveFrame returns ErrAgain or io.EOF when no frame is ready
	ReceiveFrame(f Frame) error
	Free()
}

// Encoder turns frames into packets
type Encoder interface {
	Codec() Codec
	Params() CodecParams
	// SendFrame queues a frame, nil enters draining mode
	SendFrame(f Frame) error
	// ReceivePacket returns ErrAgain or io.EOF when no packet is ready
	ReceivePacket(pkt Packet) error
	Free()
}

// FilterGraph is a configured graph with one source and one sink
type FilterGraph interface {
	// AddFrame pushes a frame into the source, nil signals end of stream
	AddFrame(f Frame) error
	// GetFrame pulls a filtered frame, ErrAgain or io.EOF when none is ready
	GetFrame(f Frame) error
	Free()
}

// Output is a container being written
type Output interface {
	// FormatName is the short name of the guessed container format
	FormatName() string
	// NeedsGlobalHeader reports whether encoders must emit global headers
	NeedsGlobalHeader() bool
	// NewEncodedStream adds a stream configured from an opened encoder
	NewEncodedStream(enc Encoder) (int, error)
	// NewCopyStream adds a stream whose parameters are copied from an input stream
	NewCopyStream(in StreamInfo) (int, error)
	// OpenIO opens the destination file. It is a no-op for file-less formats.
	OpenIO() error
	WriteHeader() error
	// StreamTimeBase is the time base chosen by the muxer for an output stream
	StreamTimeBase(index int) Rational
	WriteInterleaved(pkt Packet) error
	WriteTrailer() error
	CloseIO() error
	Free()
}

// FilterSpec configures a single-input single-output filter graph
type FilterSpec struct {
	Kind Kind
	// Source is the format of frames pushed into the graph
	Source CodecParams
	// Sink constrains the format of frames pulled from the graph
	Sink CodecParams
	// Description is the filter chain between source and sink, e.g. "null"
	Description string
}

// InputRequest selects the capture source to open. URL is the device
// selector in the syntax of the input format.
type InputRequest struct {
	Format  string
	URL     string
	Options map[string]string
}

// Library creates the handles above
type Library interface {
	OpenInput(req InputRequest) (Input, error)
	FindEncoder(codecID int, name string) (Codec, bool)
	OpenEncoder(codec Codec, params CodecParams) (Encoder, error)
	CreateOutput(path string) (Output, error)
	NewFilterGraph(spec FilterSpec) (FilterGraph, error)
	AllocPacket() Packet
	AllocFrame() Frame
}
