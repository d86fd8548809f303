package decode

import (
	"bytes"
	"fmt"
	"image"
)

const (
	// DefaultMaxDimension is the largest single-side pixel count accepted
	// for decode. Covers stitched panoramas; beyond this the bitmap alone
	// would dominate process memory.
	DefaultMaxDimension = 12_000

	// DefaultMaxPixels bounds total pixel count. 80MP is ~320MB as NRGBA.
	DefaultMaxPixels = 80_000_000
)

// Limits rejects oversized inputs before any full decode happens. The
// check reads only the image header, so a hostile dimension field costs
// a few bytes of parsing, not a giant allocation.
type Limits struct {
	MaxDimension int
	MaxPixels    int
}

// DefaultLimits returns the stock decode ceilings.
func DefaultLimits() Limits {
	return Limits{MaxDimension: DefaultMaxDimension, MaxPixels: DefaultMaxPixels}
}

// Check inspects the header of data and returns an error when declared
// dimensions exceed the ceilings. Formats the standard registry cannot
// size-probe (HEIF, RAW) pass through; their stages bound memory on
// their own.
func (l Limits) Check(data []byte) error {
	if l.MaxDimension <= 0 && l.MaxPixels <= 0 {
		return nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	if l.MaxDimension > 0 && (cfg.Width > l.MaxDimension || cfg.Height > l.MaxDimension) {
		return fmt.Errorf("%s image %dx%d exceeds max dimension %d",
			format, cfg.Width, cfg.Height, l.MaxDimension)
	}
	if l.MaxPixels > 0 && cfg.Width*cfg.Height > l.MaxPixels {
		return fmt.Errorf("%s image %dx%d exceeds max pixel count %d",
			format, cfg.Width, cfg.Height, l.MaxPixels)
	}
	return nil
}
