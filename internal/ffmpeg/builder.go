package ffmpeg

import (
	"fmt"
	"runtime"
	"strings"
)

// Binary is the ffmpeg executable used for device listing
var Binary = "ffmpeg"

// DefaultInputFormat is the capture input format of the current platform
func DefaultInputFormat() string {
	switch runtime.GOOS {
	case "windows":
		return "dshow"
	case "darwin":
		return "avfoundation"
	default:
		return "v4l2"
	}
}

// ListDevicesArgs returns the arguments that make ffmpeg print the capture
// devices of an input format to stderr, each line tagged with its log level
func ListDevicesArgs(format string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "level+info",
		"-list_devices", "true",
		"-f", format,
		"-i", "dummy",
	}
}

// ListDevicesCommand is ListDevicesArgs as a shell command line
func ListDevicesCommand(format string) string {
	return Binary + " " + strings.Join(ListDevicesArgs(format), " ")
}

// TestSourceGraph builds the lavfi graph used as capture input in test mode.
// Video is labelled out0 and the optional tone out1.
func TestSourceGraph(src TestSource) string {
	video := "testsrc2"
	if src.Resolution != "" {
		video += "=size=" + src.Resolution
	} else {
		video += "=size=1920x1080"
	}
	if src.FPS != "" {
		video += ":rate=" + src.FPS
	} else {
		video += ":rate=30"
	}
	video += "[out0]"

	if !src.Audio {
		return video
	}

	tone := src.ToneHz
	if tone <= 0 {
		tone = 1000
	}
	rate := src.SampleRate
	if rate <= 0 {
		rate = 48000
	}
	return video + fmt.Sprintf(";sine=frequency=%d:sample_rate=%d,aformat=channel_layouts=stereo[out1]", tone, rate)
}
