package media

import "testing"

func TestRescaleQ(t *testing.T) {
	tests := []struct {
		name string
		a    int64
		src  Rational
		dst  Rational
		want int64
	}{
		{"identity", 42, NewRational(1, 1000), NewRational(1, 1000), 42},
		{"ms to 90k", 1000, NewRational(1, 1000), NewRational(1, 90000), 90000},
		{"90k to frame rate", 3003, NewRational(1, 90000), NewRational(1001, 30000), 1},
		{"round half up", 3, NewRational(1, 2), NewRational(1, 1), 2},
		{"round half away from zero", -3, NewRational(1, 2), NewRational(1, 1), -2},
		{"round down", 4, NewRational(1, 3), NewRational(1, 1), 1},
		{"no pts", NoPTS, NewRational(1, 2), NewRational(1, 1), NoPTS},
		{"invalid base", 7, NewRational(0, 1), NewRational(1, 1), 7},
		{"usec to 48k", 1_000_000, NewRational(1, 1_000_000), NewRational(1, 48000), 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RescaleQ(tt.a, tt.src, tt.dst); got != tt.want {
				t.Errorf("RescaleQ(%d, %v, %v) = %d, want %d", tt.a, tt.src, tt.dst, got, tt.want)
			}
		})
	}
}

func TestDefaultChannelLayout(t *testing.T) {
	if l, ok := DefaultChannelLayout(2); !ok || l != ChannelLayoutStereo {
		t.Errorf("Expected stereo for 2 channels, got %v (%v)", l, ok)
	}
	tests := []struct {
		channels int
		want     string
		ok       bool
	}{
		{1, "mono", true},
		{3, "2.1", true},
		{4, "4.0", true},
		{5, "5.0", true},
		{6, "5.1", true},
		{7, "6.1", true},
		{8, "7.1", true},
		{0, "", false},
		{9, "", false},
	}
	for _, tt := range tests {
		l, ok := DefaultChannelLayout(tt.channels)
		if ok != tt.ok || l.Name != tt.want {
			t.Errorf("Expected %q (%v) for %d channels, got %q (%v)", tt.want, tt.ok, tt.channels, l.Name, ok)
		}
		if ok && l.Channels != tt.channels {
			t.Errorf("Expected layout %s to carry %d channels, got %d", l, tt.channels, l.Channels)
		}
	}
	if (ChannelLayout{}).Valid() {
		t.Error("Expected zero layout to be invalid")
	}
}

func TestKindTranscoded(t *testing.T) {
	for _, k := range []Kind{KindUnknown, KindData, KindSubtitle, KindAttachment} {
		if k.Transcoded() {
			t.Errorf("Expected %s not to be transcoded", k)
		}
	}
	if !KindVideo.Transcoded() || !KindAudio.Transcoded() {
		t.Error("Expected video and audio to be transcoded")
	}
}
