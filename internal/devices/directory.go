package devices

import (
	"errors"
	"fmt"
	"sort"

	"github.com/smazurov/webcamcapture/internal/text"
)

// ErrNoDevice is returned when an index does not name a device of the
// expected category
var ErrNoDevice = errors.New("no such device")

// Category is the kind of capture device
type Category int

const (
	CategoryVideo Category = iota
	CategoryAudio
)

func (c Category) String() string {
	if c == CategoryAudio {
		return "audio"
	}
	return "video"
}

// RawDevice is what a platform source reports for one device
type RawDevice struct {
	// Description is the preferred display name, FriendlyName the fallback
	Description  *text.Text
	FriendlyName *text.Text
	// Path is the node ffmpeg opens when the input format addresses devices
	// by path, e.g. /dev/video0 or hw:1,0
	Path string
	// AltName is an alternative selector, e.g. a dshow moniker
	AltName string
}

// Name returns the description, or the friendly name when the description is empty
func (r RawDevice) Name() string {
	if !r.Description.Empty() {
		return r.Description.String()
	}
	return r.FriendlyName.String()
}

// Device is one entry of a Directory
type Device struct {
	Index    int
	Category Category
	Name     string
	Path     string
	AltName  string
}

// Selector is the token that names the device in the syntax of an input format
func (d Device) Selector(format string) string {
	switch format {
	case "v4l2", "alsa":
		if d.Path != "" {
			return d.Path
		}
	}
	return d.Name
}

// Source enumerates the capture devices of one platform
type Source interface {
	VideoDevices() ([]RawDevice, error)
	AudioDevices() ([]RawDevice, error)
}

// Directory is an immutable snapshot of capture devices. Indices run
// consecutively over video devices first, then audio devices.
type Directory struct {
	devices []Device
}

// Load enumerates src once. A failing category is reported but does not
// hide the other.
func Load(src Source) (*Directory, error) {
	d := &Directory{}
	var errs []error

	video, err := src.VideoDevices()
	if err != nil {
		errs = append(errs, fmt.Errorf("list video devices: %w", err))
	}
	d.add(CategoryVideo, video)

	audio, err := src.AudioDevices()
	if err != nil {
		errs = append(errs, fmt.Errorf("list audio devices: %w", err))
	}
	d.add(CategoryAudio, audio)

	return d, errors.Join(errs...)
}

func (d *Directory) add(c Category, raw []RawDevice) {
	for _, r := range raw {
		d.devices = append(d.devices, Device{
			Index:    len(d.devices),
			Category: c,
			Name:     r.Name(),
			Path:     r.Path,
			AltName:  r.AltName,
		})
	}
}

// List returns the devices of one category in index order
func (d *Directory) List(c Category) []Device {
	var out []Device
	for _, dev := range d.devices {
		if dev.Category == c {
			out = append(out, dev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// All returns every device in index order
func (d *Directory) All() []Device {
	return append([]Device(nil), d.devices...)
}

// Lookup returns the device at index
func (d *Directory) Lookup(index int) (Device, bool) {
	if index < 0 || index >= len(d.devices) {
		return Device{}, false
	}
	return d.devices[index], true
}

// NameOf returns the name of the device at index, empty when there is none
func (d *Directory) NameOf(index int) string {
	dev, ok := d.Lookup(index)
	if !ok {
		return ""
	}
	return dev.Name
}

// Resolve returns the device at index, which must be of category c
func (d *Directory) Resolve(index int, c Category) (Device, error) {
	dev, ok := d.Lookup(index)
	if !ok || dev.Category != c {
		return Device{}, fmt.Errorf("%w: %s device %d", ErrNoDevice, c, index)
	}
	return dev, nil
}
