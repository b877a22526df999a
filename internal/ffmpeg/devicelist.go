package ffmpeg

import (
	"bufio"
	"io"
	"strings"
)

// DeviceClass is the media type of a listed device
type DeviceClass string

const (
	ClassVideo DeviceClass = "video"
	ClassAudio DeviceClass = "audio"
)

// ListedDevice is one entry of an ffmpeg -list_devices listing
type ListedDevice struct {
	Class DeviceClass
	Name  string
	// AltName is the moniker dshow prints under each device, usable as selector
	AltName string
}

// ParseDeviceList reads ffmpeg -list_devices output for dshow or avfoundation.
// Both the per-line "(video)" / "(audio)" tags of recent dshow builds and the
// section headers of avfoundation and older dshow builds are understood.
func ParseDeviceList(r io.Reader) []ListedDevice {
	var devices []ListedDevice
	section := DeviceClass("")

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		level, msg := ParseLogLevel(scanner.Text())
		if level == "error" || level == "fatal" || level == "panic" {
			continue
		}
		msg = strings.TrimSpace(stripComponent(msg))

		lower := strings.ToLower(msg)
		switch {
		case strings.HasSuffix(lower, "video devices:"):
			section = ClassVideo
			continue
		case strings.HasSuffix(lower, "audio devices:"):
			section = ClassAudio
			continue
		case strings.HasPrefix(lower, "alternative name"):
			if n := len(devices); n > 0 {
				devices[n-1].AltName = quoted(msg)
			}
			continue
		}

		if name := quoted(msg); name != "" {
			class := section
			switch {
			case strings.HasSuffix(lower, "(video)"):
				class = ClassVideo
			case strings.HasSuffix(lower, "(audio)"):
				class = ClassAudio
			case strings.HasSuffix(lower, "(none)"):
				continue
			}
			if class != "" {
				devices = append(devices, ListedDevice{Class: class, Name: name})
			}
			continue
		}

		// avfoundation: "[0] FaceTime HD Camera"
		if section != "" && strings.HasPrefix(msg, "[") {
			if end := strings.Index(msg, "] "); end > 0 {
				devices = append(devices, ListedDevice{Class: section, Name: strings.TrimSpace(msg[end+2:])})
			}
		}
	}
	return devices
}

// stripComponent removes a leading "[component @ 0x...] " prefix
func stripComponent(msg string) string {
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "] "); end > 0 && strings.Contains(msg[:end], " @ ") {
			return msg[end+2:]
		}
	}
	return msg
}

func quoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}
