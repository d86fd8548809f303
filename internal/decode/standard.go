package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Raster codecs registered for image.Decode / image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// StandardDecoder handles the common raster formats (JPEG, PNG, GIF,
// WEBP, TIFF, BMP) through the Go codec registry. It is the first chain
// stage and is attempted for every input regardless of extension, since
// misnamed files are routine.
type StandardDecoder struct{}

// NewStandardDecoder returns the stock raster stage.
func NewStandardDecoder() *StandardDecoder {
	return &StandardDecoder{}
}

func (d *StandardDecoder) Name() string { return "standard" }

// Match always reports true: magic-byte sniffing inside image.Decode
// picks the codec, so the declared extension is irrelevant here.
func (d *StandardDecoder) Match(ext string) bool { return true }

// Decode parses data with the registered codecs, applying EXIF
// auto-orientation so downstream resizing never has to reason about
// rotated coordinate systems.
func (d *StandardDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("standard codecs: %w", err)
	}
	return img, nil
}

// SniffFormat reports the registered codec name for data ("jpeg",
// "png", ...) or an empty string when no standard codec recognizes it.
func SniffFormat(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return format
}
