package libav

//#cgo pkg-config: libavcodec
//#include <stdlib.h>
//#include <libavcodec/avcodec.h>
//
//static int codec_capabilities(const char *name, int encoder) {
//	const AVCodec *c = encoder ? avcodec_find_encoder_by_name(name) : avcodec_find_decoder_by_name(name);
//	return c ? c->capabilities : 0;
//}
import "C"

import (
	"unsafe"

	"github.com/asticode/go-astiav"
)

const (
	capabilityDelay             = int(C.AV_CODEC_CAP_DELAY)
	capabilityVariableFrameSize = int(C.AV_CODEC_CAP_VARIABLE_FRAME_SIZE)
)

// capabilities returns the AV_CODEC_CAP_* bits of c. go-astiav does not
// expose them, so the codec is looked up again by name.
func capabilities(c *astiav.Codec) int {
	name := C.CString(c.Name())
	defer C.free(unsafe.Pointer(name))
	encoder := C.int(0)
	if c.IsEncoder() {
		encoder = 1
	}
	return int(C.codec_capabilities(name, encoder))
}

// fixedFrameSize is the sample count every frame sent to an opened audio
// encoder must carry, 0 when any count is accepted
func fixedFrameSize(cc *astiav.CodecContext, c *astiav.Codec) int {
	if !c.IsEncoder() || cc.FrameSize() <= 0 {
		return 0
	}
	if capabilities(c)&capabilityVariableFrameSize != 0 {
		return 0
	}
	return cc.FrameSize()
}
