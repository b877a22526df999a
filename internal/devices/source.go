package devices

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/smazurov/webcamcapture/internal/ffmpeg"
	"github.com/smazurov/webcamcapture/internal/logging"
	"github.com/smazurov/webcamcapture/internal/text"
)

// listTimeout bounds one ffmpeg -list_devices run
const listTimeout = 10 * time.Second

// FFmpegSource lists devices by running ffmpeg -list_devices for an input
// format such as dshow or avfoundation
type FFmpegSource struct {
	Format string
	// Run returns ffmpeg's combined output. Nil runs the real binary.
	Run func(ctx context.Context, args []string) ([]byte, error)
	// CodePage decodes output that is neither UTF-16 nor UTF-8. Nil means
	// Windows-1252.
	CodePage *charmap.Charmap

	listed []ffmpeg.ListedDevice
	done   bool
}

func (s *FFmpegSource) list() ([]ffmpeg.ListedDevice, error) {
	if s.done {
		return s.listed, nil
	}
	run := s.Run
	if run == nil {
		run = runFFmpeg
	}

	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	out, err := run(ctx, ffmpeg.ListDevicesArgs(s.Format))
	// ffmpeg exits non-zero after listing because "dummy" cannot be opened
	listing := decodeListing(out, s.CodePage)
	s.listed = ffmpeg.ParseDeviceList(strings.NewReader(listing.String()))
	s.done = true
	if len(s.listed) == 0 && err != nil {
		return nil, fmt.Errorf("%s: %w", ffmpeg.ListDevicesCommand(s.Format), err)
	}
	logging.GetLogger("devices").Debug("Listed devices", "format", s.Format, "count", len(s.listed))
	return s.listed, nil
}

func (s *FFmpegSource) byClass(class ffmpeg.DeviceClass) ([]RawDevice, error) {
	listed, err := s.list()
	if err != nil {
		return nil, err
	}
	var out []RawDevice
	for _, l := range listed {
		if l.Class == class {
			out = append(out, RawDevice{Description: text.FromString(l.Name), AltName: l.AltName})
		}
	}
	return out, nil
}

func (s *FFmpegSource) VideoDevices() ([]RawDevice, error) {
	return s.byClass(ffmpeg.ClassVideo)
}

func (s *FFmpegSource) AudioDevices() ([]RawDevice, error) {
	return s.byClass(ffmpeg.ClassAudio)
}

// decodeListing converts ffmpeg's console output to UTF-8. Redirected
// Windows consoles may hand back UTF-16 or the ANSI code page.
func decodeListing(out []byte, codePage *charmap.Charmap) *text.Text {
	switch {
	case len(out) >= 2 && out[0] == 0xFF && out[1] == 0xFE:
		return text.FromUTF16LE(out[2:])
	case looksUTF16LE(out):
		return text.FromUTF16LE(out)
	case utf8.Valid(out):
		return text.FromNarrow(out, nil)
	}
	if codePage == nil {
		codePage = charmap.Windows1252
	}
	return text.FromNarrow(out, codePage)
}

// looksUTF16LE reports ASCII text stored as UTF-16LE: every odd byte of the
// first few characters is zero and every even byte is not
func looksUTF16LE(b []byte) bool {
	n := min(len(b), 64) &^ 1
	if n < 4 {
		return false
	}
	for i := 0; i < n; i += 2 {
		if b[i] == 0 || b[i+1] != 0 {
			return false
		}
	}
	return true
}

func runFFmpeg(ctx context.Context, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, ffmpeg.Binary, args...).CombinedOutput()
}

// NewSource returns the device source for an input format. v4l2 and alsa use
// the kernel interfaces directly; everything else asks ffmpeg.
func NewSource(format string) Source {
	if s := platformSource(format); s != nil {
		return s
	}
	return &FFmpegSource{Format: format}
}
