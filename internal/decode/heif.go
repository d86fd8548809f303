package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// HeifDecoder handles HEIF/HEIC/AVIF containers through libvips. It is
// gated on the declared extension: HEIF boxes share their ftyp framing
// with other ISO-BMFF files, so probing every input would be wasteful.
type HeifDecoder struct{}

// NewHeifDecoder returns the HEIF chain stage.
func NewHeifDecoder() *HeifDecoder {
	return &HeifDecoder{}
}

func (d *HeifDecoder) Name() string { return "heif" }

func (d *HeifDecoder) Match(ext string) bool {
	return mediatypes.HeifExtensions[ext]
}

// Decode loads the container with vips, applies the orientation
// transform, and re-exports losslessly so the chain sees a plain bitmap.
func (d *HeifDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("heif: libvips not available")
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("heif: vips load: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("heif: auto-rotate: %w", err)
	}

	// PNG round-trip keeps the pixels exact, alpha included.
	out, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("heif: vips export: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("heif: decode vips output: %w", err)
	}
	return img, nil
}
