package metadata

import (
	"strings"
	"testing"
)

const sampleProbeJSON = `{
	"streams": [
		{
			"index": 0,
			"codec_name": "h264",
			"codec_type": "video",
			"width": 1920,
			"height": 1080,
			"avg_frame_rate": "30000/1001",
			"duration": "12.345000",
			"bit_rate": "7800000"
		},
		{
			"index": 1,
			"codec_name": "aac",
			"codec_type": "audio",
			"bit_rate": "128000"
		}
	],
	"format": {
		"duration": "12.480000",
		"bit_rate": "8012345"
	}
}`

func TestParseProbeOutput(t *testing.T) {
	meta, err := parseProbeOutput([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}

	if meta.Codec != "h264" {
		t.Errorf("Codec = %q, want h264", meta.Codec)
	}
	if meta.Width != 1920 || meta.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", meta.Width, meta.Height)
	}
	// Container duration wins over the stream's.
	if !almostEqual(meta.DurationSecs, 12.48) {
		t.Errorf("DurationSecs = %f, want 12.48", meta.DurationSecs)
	}
	if meta.BitRate != 8012345 {
		t.Errorf("BitRate = %d, want 8012345", meta.BitRate)
	}
	if meta.FrameRate == nil || !almostEqual(*meta.FrameRate, 29.97002997002997) {
		t.Errorf("FrameRate = %v, want ~29.97", meta.FrameRate)
	}
}

func TestParseProbeOutputStreamFallbacks(t *testing.T) {
	// No format section: duration and bitrate come from the stream.
	raw := `{
		"streams": [
			{"codec_type": "video", "codec_name": "vp9", "width": 640, "height": 480,
			 "duration": "3.5", "bit_rate": "900000", "avg_frame_rate": "0/0"}
		]
	}`

	meta, err := parseProbeOutput([]byte(raw))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}
	if !almostEqual(meta.DurationSecs, 3.5) {
		t.Errorf("DurationSecs = %f, want 3.5", meta.DurationSecs)
	}
	if meta.BitRate != 900000 {
		t.Errorf("BitRate = %d, want 900000", meta.BitRate)
	}
	if meta.FrameRate != nil {
		t.Errorf("0/0 frame rate should stay nil, got %v", *meta.FrameRate)
	}
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	raw := `{"streams": [{"codec_type": "audio", "codec_name": "mp3"}], "format": {}}`

	_, err := parseProbeOutput([]byte(raw))
	if err == nil {
		t.Fatal("expected error for audio-only input")
	}
	if !strings.Contains(err.Error(), "no video stream") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte("ffprobe exploded")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"30/1", 30, true},
		{"30000/1001", 29.97002997002997, true},
		{"25", 25, true},
		{"0/0", 0, false},
		{"0", 0, false},
		{"", 0, false},
		{"abc/def", 0, false},
		{"1/0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseFrameRate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !almostEqual(got, tt.want) {
				t.Errorf("rate = %f, want %f", got, tt.want)
			}
		})
	}
}
