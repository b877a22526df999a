package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/smazurov/webcamcapture/internal/capture"
	"github.com/smazurov/webcamcapture/internal/devices"
	"github.com/smazurov/webcamcapture/internal/media"
	"github.com/smazurov/webcamcapture/internal/media/mediatest"
	"github.com/smazurov/webcamcapture/internal/text"
)

type fakeSource struct {
	video, audio []devices.RawDevice
	err          error
	formats      []string
}

func (f *fakeSource) VideoDevices() ([]devices.RawDevice, error) { return f.video, f.err }
func (f *fakeSource) AudioDevices() ([]devices.RawDevice, error) { return f.audio, nil }

func rawDevice(name, path string) devices.RawDevice {
	return devices.RawDevice{Description: text.FromString(name), Path: path}
}

type harness struct {
	lib     *mediatest.Library
	src     *fakeSource
	created int
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func newHarness(streams ...mediatest.StreamSpec) *harness {
	h := &harness{
		lib: mediatest.NewLibrary(clocktesting.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)), streams...),
		src: &fakeSource{
			video: []devices.RawDevice{rawDevice("USB Camera", "/dev/video0")},
			audio: []devices.RawDevice{rawDevice("Microphone", "hw:1,0")},
		},
	}
	return h
}

func (h *harness) run(args ...string) int {
	rt := deps{
		library: func() media.Library {
			h.created++
			return h.lib
		},
		source: func(format string) devices.Source {
			h.src.formats = append(h.src.formats, format)
			return h.src
		},
		options: []capture.Option{capture.WithClock(h.lib.Clock), capture.WithProgress(nil)},
	}
	root := newRootCmd(rt)
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	return execute(root, args)
}

func TestMissingConfigurationExitsBeforeCapture(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mention string
	}{
		{"no arguments", nil, "file destination"},
		{"no video", []string{"-f=out.mp4"}, "video device ID"},
		{"bad duration", []string{"-f=out.mp4", "-v=0", "-d=0"}, "capture duration"},
		{"unknown flag", []string{"--frobnicate"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(mediatest.VideoStream(640, 480, 30))
			if code := h.run(tt.args...); code != ExitMissingArgs {
				t.Errorf("Expected exit code %d, got %d", ExitMissingArgs, code)
			}
			if h.created != 0 || len(h.src.formats) != 0 {
				t.Errorf("Expected no library or device access, got %d libraries and %d listings", h.created, len(h.src.formats))
			}
			errOut := h.stderr.String()
			if !strings.Contains(errOut, tt.mention) {
				t.Errorf("Expected stderr to mention %q, got:\n%s", tt.mention, errOut)
			}
			if !strings.Contains(errOut, "Parameters:") {
				t.Errorf("Expected usage block on stderr, got:\n%s", errOut)
			}
		})
	}
}

func TestCaptureRun(t *testing.T) {
	h := newHarness(mediatest.VideoStream(1280, 720, 30), mediatest.AudioStream(48000, 2))
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.mp4")
	metricsFile := filepath.Join(dir, "capture.prom")

	code := h.run("-f="+dest, "-d=2", "-v=0", "-a=1", "--input-format=dshow", "--metrics-file="+metricsFile)
	if code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d. stderr:\n%s", code, h.stderr.String())
	}

	if len(h.lib.Requests) != 1 {
		t.Fatalf("Expected one input open, got %d", len(h.lib.Requests))
	}
	req := h.lib.Requests[0]
	if req.Format != "dshow" || req.URL != "video=USB Camera:audio=Microphone" {
		t.Errorf("Unexpected input request %+v", req)
	}
	if h.lib.Output == nil || h.lib.Output.Path != dest || h.lib.Output.TrailerWritten != 1 {
		t.Errorf("Expected trailer written once to %s, got %+v", dest, h.lib.Output)
	}

	out := h.stdout.String()
	for _, want := range []string{
		"USB Camera",
		"[video device name] = USB Camera\n",
		"[audio device name] = Microphone\n",
		"[capture duration in seconds] = 2\n",
		"transcode",
		"succeeded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected stdout to contain %q, got:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("Expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), "webcamcapture_session_succeeded") {
		t.Errorf("Unexpected metrics file:\n%s", data)
	}
}

func TestCaptureUsesDevicePathOnLinuxFormats(t *testing.T) {
	h := newHarness(mediatest.VideoStream(640, 480, 30))
	dest := filepath.Join(t.TempDir(), "out.mkv")

	if code := h.run("-f", dest, "-v", "0", "-d", "1", "--input-format", "v4l2"); code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d. stderr:\n%s", code, h.stderr.String())
	}
	if got := h.lib.Requests[0].URL; got != "/dev/video0" {
		t.Errorf("Expected device path selector, got %q", got)
	}
	if len(h.src.formats) != 1 || h.src.formats[0] != "v4l2" {
		t.Errorf("Expected one v4l2 listing, got %v", h.src.formats)
	}
}

func TestBootstrapFailureExitsZero(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		setup func(*harness)
	}{
		{"unknown video index", []string{"-v=5"}, nil},
		{"audio index names a camera", []string{"-v=0", "-a=0"}, nil},
		{"input cannot open", []string{"-v=0"}, func(h *harness) { h.lib.OpenInputErr = errors.New("device busy") }},
		{"no encoder", []string{"-v=0"}, func(h *harness) { h.lib.NoEncoderFor = map[media.Kind]bool{media.KindVideo: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(mediatest.VideoStream(640, 480, 30))
			if tt.setup != nil {
				tt.setup(h)
			}
			args := append([]string{"-f=" + filepath.Join(t.TempDir(), "out.mp4"), "--input-format=dshow"}, tt.args...)
			if code := h.run(args...); code != ExitOK {
				t.Errorf("Expected exit code %d, got %d. stderr:\n%s", ExitOK, code, h.stderr.String())
			}
			if !strings.Contains(h.stderr.String(), "Error:") {
				t.Errorf("Expected the bootstrap error on stderr, got:\n%s", h.stderr.String())
			}
			if h.lib.Output != nil && h.lib.Output.TrailerWritten != 0 {
				t.Error("Expected no trailer when bootstrap failed")
			}
			if strings.Contains(h.stderr.String(), "Parameters:") {
				t.Error("Expected no usage block for a bootstrap failure")
			}
		})
	}
}

func TestCaptureErrorAfterBootstrapExitsZero(t *testing.T) {
	h := newHarness(mediatest.VideoStream(640, 480, 30))
	h.lib.FailWriteAt = 3
	dest := filepath.Join(t.TempDir(), "out.mp4")

	if code := h.run("-f="+dest, "-v=0", "--input-format=dshow"); code != ExitOK {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(h.stdout.String(), "failed") {
		t.Errorf("Expected summary to report failure, got:\n%s", h.stdout.String())
	}
	if h.lib.Output.TrailerWritten != 1 {
		t.Errorf("Expected trailer written once, got %d", h.lib.Output.TrailerWritten)
	}
}

func TestTestSourceSkipsDeviceListing(t *testing.T) {
	h := newHarness(mediatest.VideoStream(1280, 720, 30))
	dest := filepath.Join(t.TempDir(), "out.mp4")

	if code := h.run("-f="+dest, "-d=1", "--test-source"); code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d. stderr:\n%s", code, h.stderr.String())
	}
	if len(h.src.formats) != 0 {
		t.Errorf("Expected no device listing, got %v", h.src.formats)
	}
	if got := h.lib.Requests[0].Format; got != "lavfi" {
		t.Errorf("Expected lavfi input, got %q", got)
	}
}

func TestConfigFileAndEnvironment(t *testing.T) {
	h := newHarness(mediatest.VideoStream(640, 480, 30))
	dir := t.TempDir()
	dest := filepath.Join(dir, "from-file.mp4")
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := "[capture]\ndestination = \"" + filepath.ToSlash(dest) + "\"\nduration = 9\nvideo = 0\n\n[input]\nformat = \"dshow\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WEBCAMCAPTURE_DURATION", "1")

	if code := h.run("--config", cfgPath); code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d. stderr:\n%s", code, h.stderr.String())
	}
	if h.lib.Output == nil || h.lib.Output.Path != dest {
		t.Errorf("Expected destination from config file, got %+v", h.lib.Output)
	}
	if !strings.Contains(h.stdout.String(), "[capture duration in seconds] = 1\n") {
		t.Errorf("Expected env duration to override the file, got:\n%s", h.stdout.String())
	}
}

func TestDevicesCommand(t *testing.T) {
	h := newHarness()
	if code := h.run("devices", "--input-format=avfoundation"); code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d. stderr:\n%s", code, h.stderr.String())
	}
	out := h.stdout.String()
	for _, want := range []string{"USB Camera", "Microphone", "video", "audio"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected device table to contain %q, got:\n%s", want, out)
		}
	}
	if h.created != 0 {
		t.Error("Expected devices command not to open the media library")
	}
	if len(h.src.formats) != 1 || h.src.formats[0] != "avfoundation" {
		t.Errorf("Expected one avfoundation listing, got %v", h.src.formats)
	}
}

func TestDevicesCommandPartialListing(t *testing.T) {
	h := newHarness()
	h.src.err = errors.New("no video4linux")
	if code := h.run("devices"); code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(h.stdout.String(), "Microphone") {
		t.Errorf("Expected audio devices despite video failure, got:\n%s", h.stdout.String())
	}
}

func TestVersionCommand(t *testing.T) {
	h := newHarness()
	if code := h.run("version"); code != ExitOK {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.HasPrefix(h.stdout.String(), "webcamcapture ") {
		t.Errorf("Unexpected version output:\n%s", h.stdout.String())
	}
}
