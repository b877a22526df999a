package ffmpeg

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[info] hello", "info", "hello"},
		{"[dshow @ 0000020e] [error] Could not enumerate", "error", "[dshow @ 0000020e] Could not enumerate"},
		{"plain line", "info", "plain line"},
		{"[x] not a level", "info", "[x] not a level"},
		{"[", "info", "["},
	}

	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"fatal":   slog.LevelError,
		"error":   slog.LevelError,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelDebug,
		"trace":   slog.LevelDebug,
	}
	for in, want := range tests {
		if got := SlogLevel(in); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDeviceListDshowTagged(t *testing.T) {
	out := `[dshow @ 000001c1] [info] "HD Pro Webcam C920" (video)
[dshow @ 000001c1] [info]   Alternative name "@device_pnp_\\?\usb#vid_046d"
[dshow @ 000001c1] [info] "OBS Virtual Camera" (none)
[dshow @ 000001c1] [info] "Microphone (HD Pro Webcam C920)" (audio)
[dshow @ 000001c1] [info]   Alternative name "@device_cm_{33D9A762}\wave_{8B1C}"
[in#0 @ 000001c2] [error] Error opening input: Immediate exit requested
`
	got := ParseDeviceList(strings.NewReader(out))
	want := []ListedDevice{
		{Class: ClassVideo, Name: "HD Pro Webcam C920", AltName: `@device_pnp_\\?\usb#vid_046d`},
		{Class: ClassAudio, Name: "Microphone (HD Pro Webcam C920)", AltName: `@device_cm_{33D9A762}\wave_{8B1C}`},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDeviceList() = %+v, want %+v", got, want)
	}
}

func TestParseDeviceListDshowSections(t *testing.T) {
	out := `[dshow @ 0x1] DirectShow video devices (some may be both video and audio devices)
[dshow @ 0x1] DirectShow video devices:
[dshow @ 0x1]  "USB2.0 Camera"
[dshow @ 0x1] DirectShow audio devices:
[dshow @ 0x1]  "Line In (Realtek Audio)"
`
	got := ParseDeviceList(strings.NewReader(out))
	want := []ListedDevice{
		{Class: ClassVideo, Name: "USB2.0 Camera"},
		{Class: ClassAudio, Name: "Line In (Realtek Audio)"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDeviceList() = %+v, want %+v", got, want)
	}
}

func TestParseDeviceListAVFoundation(t *testing.T) {
	out := `[AVFoundation indev @ 0x7f8] [info] AVFoundation video devices:
[AVFoundation indev @ 0x7f8] [info] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7f8] [info] [1] Capture screen 0
[AVFoundation indev @ 0x7f8] [info] AVFoundation audio devices:
[AVFoundation indev @ 0x7f8] [info] [0] MacBook Pro Microphone
`
	got := ParseDeviceList(strings.NewReader(out))
	want := []ListedDevice{
		{Class: ClassVideo, Name: "FaceTime HD Camera"},
		{Class: ClassVideo, Name: "Capture screen 0"},
		{Class: ClassAudio, Name: "MacBook Pro Microphone"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDeviceList() = %+v, want %+v", got, want)
	}
}

func TestTestSourceGraph(t *testing.T) {
	got := TestSourceGraph(DefaultTestSource())
	want := "testsrc2=size=1280x720:rate=30[out0];sine=frequency=1000:sample_rate=48000,aformat=channel_layouts=stereo[out1]"
	if got != want {
		t.Errorf("TestSourceGraph() = %q, want %q", got, want)
	}

	videoOnly := TestSourceGraph(TestSource{})
	if videoOnly != "testsrc2=size=1920x1080:rate=30[out0]" {
		t.Errorf("TestSourceGraph(empty) = %q", videoOnly)
	}
}

func TestListDevicesCommand(t *testing.T) {
	want := "ffmpeg -hide_banner -loglevel level+info -list_devices true -f dshow -i dummy"
	if got := ListDevicesCommand("dshow"); got != want {
		t.Errorf("ListDevicesCommand() = %q, want %q", got, want)
	}
}
