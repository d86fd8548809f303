package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// DefaultOffset is where the representative still is taken from. One
// second skips black lead-in frames without seeking past short clips.
const DefaultOffset = time.Second

// Extractor pulls still frames out of video originals with ffmpeg.
type Extractor struct {
	tool string
}

// NewExtractor returns a frame extractor. tool overrides the ffmpeg
// binary path; empty means "ffmpeg" from PATH.
func NewExtractor(tool string) *Extractor {
	if tool == "" {
		tool = "ffmpeg"
	}
	return &Extractor{tool: tool}
}

// ExtractFrame decodes a single still frame at the given offset from a
// spooled video file. The frame comes back as a lossless bitmap ready
// for the rendition catalog. If the offset lies past the end of the
// clip, extraction is retried once from the start.
func (e *Extractor) ExtractFrame(ctx context.Context, path string, offset time.Duration) (image.Image, error) {
	start := time.Now()

	img, err := e.extractAt(ctx, path, offset)
	if err != nil && ctx.Err() == nil && offset > 0 {
		logging.Debug("frame at %s failed (%v), retrying at start of %s", offset, err, path)
		img, err = e.extractAt(ctx, path, 0)
	}

	metrics.FrameExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FrameExtractionsTotal.WithLabelValues("error").Inc()
		metrics.DecodeStageTotal.WithLabelValues("frame", "error").Inc()
		return nil, err
	}
	metrics.FrameExtractionsTotal.WithLabelValues("success").Inc()
	metrics.DecodeStageTotal.WithLabelValues("frame", "success").Inc()
	return img, nil
}

func (e *Extractor) extractAt(ctx context.Context, path string, offset time.Duration) (image.Image, error) {
	args := []string{
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		"-",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.tool, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s frame extraction: %s", e.tool, detail)
		}
		return nil, fmt.Errorf("%s frame extraction: %w", e.tool, err)
	}
	if stdout.Len() == 0 {
		// ffmpeg exits zero when the seek lands past EOF.
		return nil, fmt.Errorf("%s produced no frame at offset %s", e.tool, offset)
	}

	img, err := png.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode extracted frame: %w", err)
	}
	return img, nil
}

// ToolAvailable reports whether the ffmpeg binary resolves on PATH.
func ToolAvailable(tool string) bool {
	if tool == "" {
		tool = "ffmpeg"
	}
	_, err := exec.LookPath(tool)
	return err == nil
}
