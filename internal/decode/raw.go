package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// RawDecoder shells out to a dcraw-compatible tool for camera sensor
// formats. It is the last and most expensive chain stage, gated on a
// known RAW extension set so arbitrary junk never reaches the external
// process.
//
// Invocation: -c (stdout), -w (camera white balance), -T (TIFF output).
// Demosaic stays at the tool default.
type RawDecoder struct {
	tool string
}

// NewRawDecoder returns the RAW stage. tool is the dcraw binary path;
// empty means "dcraw" resolved from PATH at invocation time.
func NewRawDecoder(tool string) *RawDecoder {
	if tool == "" {
		tool = "dcraw"
	}
	return &RawDecoder{tool: tool}
}

func (d *RawDecoder) Name() string { return "raw" }

func (d *RawDecoder) Match(ext string) bool {
	return mediatypes.RawExtensions[ext]
}

// Decode spools the bytes to a scratch file (dcraw needs a seekable
// input), converts, and parses the TIFF the tool writes to stdout.
func (d *RawDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	dir, err := os.MkdirTemp("", "rawdecode-*")
	if err != nil {
		return nil, fmt.Errorf("raw: scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.raw")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return nil, fmt.Errorf("raw: write scratch file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.tool, "-c", "-w", "-T", src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("raw: %s: %s", d.tool, detail)
		}
		return nil, fmt.Errorf("raw: %s: %w", d.tool, err)
	}

	img, err := tiff.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("raw: decode %s output: %w", d.tool, err)
	}
	return img, nil
}

// RawToolAvailable reports whether the named dcraw-compatible binary
// (or "dcraw" when empty) resolves on PATH. Checked once at startup so
// the chain composition is stable for the life of the process.
func RawToolAvailable(tool string) bool {
	if tool == "" {
		tool = "dcraw"
	}
	_, err := exec.LookPath(tool)
	return err == nil
}
