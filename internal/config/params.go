package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrConfiguration is returned when required capture parameters are missing
// or malformed
var ErrConfiguration = errors.New("invalid configuration")

// DefaultDuration is the capture length in seconds when none is given
const DefaultDuration = 5

// DefaultRTBufSize is the receive buffer hint passed to the capture device
const DefaultRTBufSize = "1000000000"

// NoDevice marks an unset device index
const NoDevice = -1

// ParamID identifies a capture parameter
type ParamID int

const (
	ParamFile ParamID = iota
	ParamDuration
	ParamVideoID
	ParamVideoName
	ParamAudioID
	ParamAudioName
)

// Descriptor is the user-facing description of a parameter
type Descriptor struct {
	DisplayName string
	Key         string
	// Flag is the long command-line flag bound to the parameter
	Flag     string
	Required bool
	// Internal parameters are resolved by the program, not typed by the user
	Internal bool
}

// Shorthand is the single-letter flag form of the key, empty when the key
// is longer than one letter
func (d Descriptor) Shorthand() string {
	k := strings.TrimLeft(d.Key, "-")
	if len(k) != 1 {
		return ""
	}
	return k
}

var descriptors = map[ParamID]Descriptor{
	ParamFile:      {DisplayName: "file destination", Key: "-f", Flag: "file", Required: true},
	ParamDuration:  {DisplayName: "capture duration in seconds", Key: "-d", Flag: "duration"},
	ParamVideoID:   {DisplayName: "video device ID", Key: "-v", Flag: "video", Required: true},
	ParamVideoName: {DisplayName: "video device name", Key: "-video_name", Flag: "video-name", Internal: true},
	ParamAudioID:   {DisplayName: "audio device ID", Key: "-a", Flag: "audio"},
	ParamAudioName: {DisplayName: "audio device name", Key: "-audio_name", Flag: "audio-name", Internal: true},
}

var paramOrder = []ParamID{ParamFile, ParamDuration, ParamVideoID, ParamVideoName, ParamAudioID, ParamAudioName}

// Lookup returns the descriptor of a parameter
func Lookup(id ParamID) (Descriptor, bool) {
	d, ok := descriptors[id]
	return d, ok
}

// Params lists every parameter in display order
func Params() []ParamID {
	return append([]ParamID(nil), paramOrder...)
}

// Options is the complete configuration of a capture run
type Options struct {
	Config string `flag:"config"`

	Destination string `flag:"file" toml:"capture.destination" env:"DESTINATION"`
	Duration    int    `flag:"duration" toml:"capture.duration" env:"DURATION"`
	VideoID     int    `flag:"video" toml:"capture.video" env:"VIDEO"`
	AudioID     int    `flag:"audio" toml:"capture.audio" env:"AUDIO"`
	VideoName   string `flag:"video-name" toml:"capture.video_name" env:"VIDEO_NAME"`
	AudioName   string `flag:"audio-name" toml:"capture.audio_name" env:"AUDIO_NAME"`

	InputFormat  string            `flag:"input-format" toml:"input.format" env:"INPUT_FORMAT"`
	RTBufSize    string            `flag:"rtbufsize" toml:"input.rtbufsize" env:"RTBUFSIZE"`
	InputOptions map[string]string `flag:"input-option" toml:"input.options" env:"INPUT_OPTIONS"`
	TestSource   bool              `flag:"test-source" toml:"input.test_source" env:"TEST_SOURCE"`

	VideoEncoder string `flag:"video-encoder" toml:"output.video_encoder" env:"VIDEO_ENCODER"`
	AudioEncoder string `flag:"audio-encoder" toml:"output.audio_encoder" env:"AUDIO_ENCODER"`
	MetricsFile  string `flag:"metrics-file" toml:"output.metrics_file" env:"METRICS_FILE"`

	LoggingLevel  string `flag:"logging-level" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `flag:"logging-format" toml:"logging.format" env:"LOGGING_FORMAT"`
}

// Defaults returns options with every default applied and no devices selected
func Defaults() Options {
	return Options{
		Duration:      DefaultDuration,
		VideoID:       NoDevice,
		AudioID:       NoDevice,
		RTBufSize:     DefaultRTBufSize,
		LoggingLevel:  "info",
		LoggingFormat: "text",
	}
}

// HasAudio reports whether a microphone was selected
func (o *Options) HasAudio() bool {
	return o.AudioID != NoDevice || o.AudioName != ""
}

// Validate checks the user-supplied parameters. Every problem is reported,
// each wrapped in ErrConfiguration.
func (o *Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Destination) == "" {
		errs = append(errs, missing(ParamFile))
	}
	if o.VideoID == NoDevice && o.VideoName == "" && !o.TestSource {
		errs = append(errs, missing(ParamVideoID))
	}
	if o.VideoID < NoDevice {
		errs = append(errs, invalid(ParamVideoID, o.VideoID))
	}
	if o.AudioID < NoDevice {
		errs = append(errs, invalid(ParamAudioID, o.AudioID))
	}
	if o.Duration <= 0 {
		errs = append(errs, invalid(ParamDuration, o.Duration))
	}
	return errors.Join(errs...)
}

func missing(id ParamID) error {
	d := descriptors[id]
	return fmt.Errorf("%w: required parameter %s (%s) is missing", ErrConfiguration, d.Key, d.DisplayName)
}

func invalid(id ParamID, value int) error {
	d := descriptors[id]
	return fmt.Errorf("%w: %s (%s) has invalid value %d", ErrConfiguration, d.Key, d.DisplayName, value)
}

// Value returns the current value of a parameter as text, empty when unset
func (o *Options) Value(id ParamID) string {
	switch id {
	case ParamFile:
		return o.Destination
	case ParamDuration:
		return fmt.Sprint(o.Duration)
	case ParamVideoID:
		if o.VideoID == NoDevice {
			return ""
		}
		return fmt.Sprint(o.VideoID)
	case ParamVideoName:
		return o.VideoName
	case ParamAudioID:
		if o.AudioID == NoDevice {
			return ""
		}
		return fmt.Sprint(o.AudioID)
	case ParamAudioName:
		return o.AudioName
	}
	return ""
}

// PrintInfo writes the usage block listing every user parameter
func PrintInfo(w io.Writer) {
	fmt.Fprintln(w, "Parameters:")
	for _, id := range paramOrder {
		d := descriptors[id]
		if d.Internal {
			continue
		}
		req := "optional"
		if d.Required {
			req = "required"
		}
		fmt.Fprintf(w, "  %s=<value>\t%s (%s)\n", d.Key, d.DisplayName, req)
	}
}

// PrintParams writes every parameter with its current value
func PrintParams(w io.Writer, o *Options) {
	for _, id := range paramOrder {
		fmt.Fprintf(w, "[%s] = %s\n", descriptors[id].DisplayName, o.Value(id))
	}
}
