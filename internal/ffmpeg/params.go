package ffmpeg

// TestSource describes the synthetic input used instead of capture devices
type TestSource struct {
	Resolution string // 1280x720
	FPS        string // 30
	Audio      bool   // add a sine tone track
	ToneHz     int    // 1000
	SampleRate int    // 48000
}

// DefaultTestSource matches a 720p camera with a stereo 48 kHz microphone
func DefaultTestSource() TestSource {
	return TestSource{
		Resolution: "1280x720",
		FPS:        "30",
		Audio:      true,
		ToneHz:     1000,
		SampleRate: 48000,
	}
}
