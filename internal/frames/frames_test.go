package frames

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// createTestVideo renders a 2-second synthetic clip with ffmpeg.
func createTestVideo(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", "testsrc=duration=2:size=320x240:rate=30",
		"-pix_fmt", "yuv420p",
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to create test video: %v\n%s", err, out)
	}
	return path
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping ffmpeg test in short mode")
	}
	if !ToolAvailable("") {
		t.Skip("ffmpeg not available")
	}
}

func TestExtractFrame(t *testing.T) {
	requireFFmpeg(t)

	video := createTestVideo(t)
	ex := NewExtractor("")

	img, err := ex.ExtractFrame(context.Background(), video, DefaultOffset)
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("frame bounds = %v, want 320x240", b)
	}
}

func TestExtractFrameOffsetPastEnd(t *testing.T) {
	requireFFmpeg(t)

	video := createTestVideo(t)
	ex := NewExtractor("")

	// 10s offset on a 2s clip: the retry from the start must recover.
	img, err := ex.ExtractFrame(context.Background(), video, 10*time.Second)
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if img == nil {
		t.Fatal("expected a frame from the retry")
	}
}

func TestExtractFrameMissingFile(t *testing.T) {
	requireFFmpeg(t)

	ex := NewExtractor("")
	_, err := ex.ExtractFrame(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), DefaultOffset)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestExtractFrameCancelled(t *testing.T) {
	requireFFmpeg(t)

	video := createTestVideo(t)
	ex := NewExtractor("")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ex.ExtractFrame(ctx, video, DefaultOffset); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestToolAvailable(t *testing.T) {
	if ToolAvailable("this-binary-does-not-exist-anywhere") {
		t.Error("nonexistent binary reported available")
	}
}

func TestLogSubmitter(t *testing.T) {
	job := TranscodeJob{
		AssetID:     "asset-1",
		SourceKey:   "originals/coll/asset-1.mp4",
		Profiles:    DefaultProfiles,
		SubmittedAt: time.Now(),
	}

	id1, err := LogSubmitter{}.SubmitTranscode(context.Background(), job)
	if err != nil {
		t.Fatalf("SubmitTranscode failed: %v", err)
	}
	id2, err := LogSubmitter{}.SubmitTranscode(context.Background(), job)
	if err != nil {
		t.Fatalf("SubmitTranscode failed: %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Errorf("job ids should be unique and non-empty: %q, %q", id1, id2)
	}
}
