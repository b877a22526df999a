//go:build linux

package devices

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/smazurov/webcamcapture/internal/logging"
	"github.com/smazurov/webcamcapture/internal/text"
)

const (
	vidiocQueryCap        = 0x80685600
	capVideoCapture       = 0x00000001
	capDeviceCaps         = 0x80000000
	sndCtlCardInfo        = 0x81785501
	sndCtlPCMNextDevice   = 0x80045530
	sndCtlPCMInfo         = 0xc1205531
	sndPCMStreamCapture   = 1
	video4linuxClassDir   = "/sys/class/video4linux"
	alsaControlPathFormat = "/dev/snd/controlC%d"
)

// v4l2Capability mirrors struct v4l2_capability (104 bytes)
type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// sndCardInfo mirrors struct snd_ctl_card_info (376 bytes)
type sndCardInfo struct {
	card       int32
	_          [4]byte
	id         [16]byte
	driver     [16]byte
	name       [32]byte
	longname   [80]byte
	reserved   [16]byte
	mixername  [80]byte
	components [128]byte
}

// sndPCMInfo mirrors struct snd_pcm_info (288 bytes)
type sndPCMInfo struct {
	device          uint32
	subdevice       uint32
	stream          int32
	card            int32
	id              [64]byte
	name            [80]byte
	subname         [32]byte
	devClass        int32
	devSubclass     int32
	subdevicesCount uint32
	subdevicesAvail uint32
	sync            [16]byte
	reserved        [64]byte
}

var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [376]byte = [unsafe.Sizeof(sndCardInfo{})]byte{}
	_ [288]byte = [unsafe.Sizeof(sndPCMInfo{})]byte{}
)

// KernelSource enumerates V4L2 capture nodes and ALSA capture PCMs
type KernelSource struct {
	// VideoClassDir defaults to /sys/class/video4linux
	VideoClassDir string
}

func platformSource(format string) Source {
	switch format {
	case "v4l2", "video4linux2", "alsa":
		return &KernelSource{}
	}
	return nil
}

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *KernelSource) VideoDevices() ([]RawDevice, error) {
	dir := s.VideoClassDir
	if dir == "" {
		dir = video4linuxClassDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "video") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return nodeNumber(names[i]) < nodeNumber(names[j]) })

	logger := logging.GetLogger("devices")
	var out []RawDevice
	for _, name := range names {
		path := filepath.Join("/dev", name)
		cp, err := queryCapability(path)
		if err != nil {
			logger.Debug("Skipping video node", "path", path, "error", err)
			continue
		}
		caps := cp.capabilities
		if caps&capDeviceCaps != 0 {
			caps = cp.deviceCaps
		}
		if caps&capVideoCapture == 0 {
			continue
		}
		out = append(out, RawDevice{
			Description:  text.FromNarrow(cstr(cp.card[:]), nil).Own(),
			FriendlyName: text.FromString(name),
			Path:         path,
			AltName:      string(cstr(cp.busInfo[:])),
		})
	}
	return out, nil
}

func queryCapability(path string) (*v4l2Capability, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	cp := &v4l2Capability{}
	if err := ioctl(fd, vidiocQueryCap, unsafe.Pointer(cp)); err != nil {
		return nil, fmt.Errorf("VIDIOC_QUERYCAP: %w", err)
	}
	return cp, nil
}

func (s *KernelSource) AudioDevices() ([]RawDevice, error) {
	var out []RawDevice
	for card := 0; ; card++ {
		fd, err := unix.Open(fmt.Sprintf(alsaControlPathFormat, card), unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			if errors.Is(err, unix.ENOENT) {
				break
			}
			continue
		}
		out = append(out, capturePCMs(fd, card)...)
		unix.Close(fd)
	}
	return out, nil
}

func capturePCMs(fd, card int) []RawDevice {
	info := sndCardInfo{}
	if err := ioctl(fd, sndCtlCardInfo, unsafe.Pointer(&info)); err != nil {
		return nil
	}

	var out []RawDevice
	dev := int32(-1)
	for {
		if err := ioctl(fd, sndCtlPCMNextDevice, unsafe.Pointer(&dev)); err != nil || dev < 0 {
			break
		}
		pcm := sndPCMInfo{device: uint32(dev), stream: sndPCMStreamCapture}
		if err := ioctl(fd, sndCtlPCMInfo, unsafe.Pointer(&pcm)); err != nil {
			continue
		}
		out = append(out, RawDevice{
			Description:  text.FromNarrow(cstr(pcm.name[:]), nil).Own(),
			FriendlyName: text.FromNarrow(cstr(info.longname[:]), nil).Own(),
			Path:         fmt.Sprintf("hw:%d,%d", card, dev),
			AltName:      string(cstr(info.id[:])),
		})
	}
	return out
}

// cstr returns b up to the first NUL
func cstr(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func nodeNumber(name string) int {
	n := 0
	for _, c := range strings.TrimPrefix(name, "video") {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}
