package rendition

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// ErrResizeTimeout is returned when a render runs past its time budget.
// Terminal for that invocation; a fresh call may retry.
var ErrResizeTimeout = errors.New("resize budget exceeded")

// Spec is one requested output: target bounds, fit policy, encoding.
// Width or Height may be zero (derived from the source aspect ratio),
// not both. Quality zero means the format default.
type Spec struct {
	Width   int
	Height  int
	Fit     mediatypes.FitPolicy
	Format  mediatypes.OutputFormat
	Quality int
}

func (s Spec) validate() error {
	if s.Width <= 0 && s.Height <= 0 {
		return fmt.Errorf("rendition: no target dimensions")
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("rendition: negative dimensions %dx%d", s.Width, s.Height)
	}
	return nil
}

// deriveBounds fills a single missing dimension from the source aspect
// ratio, so "800 wide, whatever tall" keeps the source shape.
func deriveBounds(src image.Rectangle, width, height int) (int, int) {
	if width > 0 && height > 0 {
		return width, height
	}
	srcW, srcH := src.Dx(), src.Dy()
	if srcW == 0 || srcH == 0 {
		return width, height
	}
	if width == 0 {
		width = height * srcW / srcH
		if width == 0 {
			width = 1
		}
	} else {
		height = width * srcH / srcW
		if height == 0 {
			height = 1
		}
	}
	return width, height
}

// transform applies the fit policy with Lanczos resampling.
//
//	inside:  shrink to fit within bounds, keep aspect, never upscale
//	outside: scale to cover bounds, keep aspect, center-crop to exact
//	exact:   resize to exact bounds, aspect ignored
func transform(src *image.NRGBA, width, height int, fit mediatypes.FitPolicy) *image.NRGBA {
	width, height = deriveBounds(src.Bounds(), width, height)

	switch fit {
	case mediatypes.FitOutside:
		return imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos)
	case mediatypes.FitExact:
		return imaging.Resize(src, width, height, imaging.Lanczos)
	default:
		b := src.Bounds()
		if b.Dx() <= width && b.Dy() <= height {
			// Small originals are served as-is, never upscaled.
			return src
		}
		return imaging.Fit(src, width, height, imaging.Lanczos)
	}
}

// DeriveFormat picks an output encoding from the source's format family
// when the caller did not request one. Alpha-capable families stay
// alpha-capable; webp sticks to webp only while libvips is around to
// encode it.
func DeriveFormat(sourceExt string, webpAvailable bool) mediatypes.OutputFormat {
	switch sourceExt {
	case ".png", ".gif":
		return mediatypes.FormatPNG
	case ".webp":
		if webpAvailable {
			return mediatypes.FormatWEBP
		}
		return mediatypes.FormatPNG
	default:
		return mediatypes.FormatJPEG
	}
}
