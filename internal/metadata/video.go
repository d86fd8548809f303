package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// probeOutput mirrors the ffprobe -print_format json layout. Numeric
// fields inside it are strings; that is ffprobe, not a mistake here.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
	BitRate      string `json:"bit_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// ProbeVideo runs ffprobe against a spooled original and returns the
// container-level metadata. The caller decides whether a probe failure
// fails the ingest; by convention it does not.
func ProbeVideo(ctx context.Context, path string) (*mediatypes.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.MetadataExtractionsTotal.WithLabelValues("video", "error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	meta, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		metrics.MetadataExtractionsTotal.WithLabelValues("video", "error").Inc()
		return nil, err
	}

	status := "success"
	if meta.Codec == "" || meta.Width == 0 || meta.DurationSecs == 0 {
		status = "partial"
	}
	metrics.MetadataExtractionsTotal.WithLabelValues("video", status).Inc()
	return meta, nil
}

// parseProbeOutput extracts the first video stream plus format-level
// duration/bitrate from raw ffprobe JSON.
func parseProbeOutput(raw []byte) (*mediatypes.VideoMetadata, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, fmt.Errorf("ffprobe reported no video stream")
	}

	meta := &mediatypes.VideoMetadata{
		Codec:  video.CodecName,
		Width:  video.Width,
		Height: video.Height,
	}

	// Prefer the container duration; fall back to the stream's own.
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		meta.DurationSecs = d
	} else if d, err := strconv.ParseFloat(video.Duration, 64); err == nil {
		meta.DurationSecs = d
	}
	if b, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
		meta.BitRate = b
	} else if b, err := strconv.ParseInt(video.BitRate, 10, 64); err == nil {
		meta.BitRate = b
	}
	if fps, ok := parseFrameRate(video.AvgFrameRate); ok {
		meta.FrameRate = &fps
	}

	return meta, nil
}

// parseFrameRate converts ffprobe's "num/den" rational notation.
// "0/0" (no measurable rate) reports false.
func parseFrameRate(s string) (float64, bool) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && f > 0
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 || n == 0 {
		return 0, false
	}
	return n / d, true
}
