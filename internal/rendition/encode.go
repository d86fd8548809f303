package rendition

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

const (
	// DefaultJPEGQuality matches the catalog encoder setting.
	DefaultJPEGQuality = 85
	// DefaultWEBPQuality is used for webp-origin sources.
	DefaultWEBPQuality = 80
)

// FlattenOnWhite composites an image onto an opaque white background.
// Required before encoding to alpha-free formats: a fully transparent
// pixel becomes pure white, a fully opaque pixel is unchanged. Opaque
// inputs are returned as-is.
func FlattenOnWhite(src *image.NRGBA) *image.NRGBA {
	if src.Opaque() {
		return src
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)
	return dst
}

// encode serializes the bitmap. Encoding is deterministic for fixed
// inputs and settings, which is what makes concurrent cache population
// safe to race.
func encode(img *image.NRGBA, format mediatypes.OutputFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case mediatypes.FormatJPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		flat := FlattenOnWhite(img)
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}

	case mediatypes.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}

	case mediatypes.FormatWEBP:
		if quality <= 0 {
			quality = DefaultWEBPQuality
		}
		out, err := encodeWebp(img, quality)
		if err != nil {
			return nil, err
		}
		return out, nil

	default:
		return nil, fmt.Errorf("encode: unsupported output format %q", format)
	}

	return buf.Bytes(), nil
}

// encodeWebp routes through libvips; the Go ecosystem decodes webp but
// does not encode it. Lossless PNG is the hand-off format into vips.
func encodeWebp(img *image.NRGBA, quality int) ([]byte, error) {
	if !decode.IsVipsAvailable() {
		return nil, fmt.Errorf("encode webp: libvips not available")
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode webp: intermediate png: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(pngBuf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encode webp: vips load: %w", err)
	}
	defer ref.Close()

	params := vips.NewWebpExportParams()
	params.Quality = quality
	out, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("encode webp: vips export: %w", err)
	}
	return out, nil
}
