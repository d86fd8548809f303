package metadata

import (
	"bytes"
	"strings"
	"time"

	"github.com/bep/imagemeta"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// ExtractImageMetadata parses container-level EXIF from the original
// bytes. It never fails an ingest: malformed or missing tags simply
// produce fewer fields, and a source with no readable metadata yields
// nil. Fields absent from the source stay nil rather than defaulting to
// zero values a caller could mistake for measurements.
func ExtractImageMetadata(data []byte, ext string) *mediatypes.ImageMetadata {
	format, ok := metaFormatFor(ext)
	if !ok {
		metrics.MetadataExtractionsTotal.WithLabelValues("image", "error").Inc()
		return nil
	}

	var tags imagemeta.Tags
	err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF,
		Warnf:       logging.Debug,
		HandleTag: func(ti imagemeta.TagInfo) error {
			tags.Add(ti)
			return nil
		},
	})

	meta := buildImageMetadata(&tags)

	switch {
	case meta == nil:
		metrics.MetadataExtractionsTotal.WithLabelValues("image", "error").Inc()
	case err != nil:
		// Parser stopped mid-stream but salvaged some tags.
		logging.Debug("partial EXIF parse (%s): %v", ext, err)
		metrics.MetadataExtractionsTotal.WithLabelValues("image", "partial").Inc()
	default:
		metrics.MetadataExtractionsTotal.WithLabelValues("image", "success").Inc()
	}
	return meta
}

// metaFormatFor maps a filename extension to the container format the
// EXIF parser should assume. RAW camera formats are TIFF-framed, so the
// TIFF reader is attempted for those; failures there are non-fatal like
// everywhere else in extraction.
func metaFormatFor(ext string) (imagemeta.ImageFormat, bool) {
	switch ext {
	case ".jpg", ".jpeg":
		return imagemeta.JPEG, true
	case ".png":
		return imagemeta.PNG, true
	case ".tif", ".tiff":
		return imagemeta.TIFF, true
	case ".webp":
		return imagemeta.WebP, true
	}
	if mediatypes.RawExtensions[ext] {
		return imagemeta.TIFF, true
	}
	return 0, false
}

// buildImageMetadata maps collected EXIF tags onto the asset metadata
// record. Returns nil when not a single field could be extracted.
func buildImageMetadata(tags *imagemeta.Tags) *mediatypes.ImageMetadata {
	exif := tags.EXIF()
	meta := &mediatypes.ImageMetadata{}
	found := false

	if s, ok := tagString(exif, "Make"); ok {
		meta.CameraMake = &s
		found = true
	}
	if s, ok := tagString(exif, "Model"); ok {
		meta.CameraModel = &s
		found = true
	}
	if s, ok := tagString(exif, "LensModel"); ok {
		meta.LensModel = &s
		found = true
	}
	if n, ok := tagInt(exif, "Orientation"); ok {
		meta.Orientation = &n
		found = true
	}
	if n, ok := tagInt(exif, "ISOSpeedRatings"); ok {
		meta.ISO = &n
		found = true
	} else if n, ok := tagInt(exif, "PhotographicSensitivity"); ok {
		meta.ISO = &n
		found = true
	}
	if f, ok := tagFloat(exif, "FNumber"); ok {
		meta.FNumber = &f
		found = true
	}
	if f, ok := tagFloat(exif, "ExposureTime"); ok {
		meta.ExposureSecs = &f
		found = true
	}
	if f, ok := tagFloat(exif, "FocalLength"); ok {
		meta.FocalLength = &f
		found = true
	}

	if dt, err := tags.GetDateTime(); err == nil && !dt.IsZero() {
		utc := dt.UTC()
		meta.CaptureTime = &utc
		found = true
	} else if s, ok := tagString(exif, "DateTimeOriginal"); ok {
		if t, tok := parseExifTime(s); tok {
			utc := t.UTC()
			meta.CaptureTime = &utc
			found = true
		}
	}

	if gps := buildGPS(tags, exif); gps != nil {
		meta.GPS = gps
		found = true
	}

	if !found {
		return nil
	}
	return meta
}

// buildGPS resolves the latitude/longitude pair (hemisphere sign
// applied from the reference tags) and the optional altitude, where
// GPSAltitudeRef 1 means below sea level.
func buildGPS(tags *imagemeta.Tags, exif map[string]imagemeta.TagInfo) *mediatypes.GPSPosition {
	lat, latOK := coordinate(exif, "GPSLatitude", "GPSLatitudeRef", "S")
	long, longOK := coordinate(exif, "GPSLongitude", "GPSLongitudeRef", "W")
	if !latOK || !longOK {
		// Value shape we do not recognize; let the tag library resolve.
		l, g, err := tags.GetLatLong()
		if err != nil {
			return nil
		}
		lat, long = l, g
	}
	if lat == 0 && long == 0 {
		return nil
	}
	if lat < -90 || lat > 90 || long < -180 || long > 180 {
		return nil
	}

	pos := &mediatypes.GPSPosition{Latitude: lat, Longitude: long}
	if alt, ok := tagFloat(exif, "GPSAltitude"); ok {
		if ref, refOK := tagInt(exif, "GPSAltitudeRef"); refOK && ref == 1 {
			alt = -alt
		}
		pos.Altitude = &alt
	}
	return pos
}

// coordinate reads one GPS axis: the value tag (a decimal scalar or a
// degree/minute/second triple) plus its hemisphere reference. negRef is
// the reference letter that makes the axis negative ("S" or "W"). The
// sign is only applied to positive magnitudes, since a value that is
// already signed has been resolved upstream.
func coordinate(exif map[string]imagemeta.TagInfo, tag, refTag, negRef string) (float64, bool) {
	ti, ok := exif[tag]
	if !ok {
		return 0, false
	}
	v, ok := dmsToDecimal(ti.Value)
	if !ok {
		return 0, false
	}
	if ref, refOK := tagString(exif, refTag); refOK && strings.EqualFold(ref, negRef) && v > 0 {
		v = -v
	}
	return v, true
}

// dmsToDecimal converts a degree/minute/second triple to decimal
// degrees. Scalar inputs are passed through as already-decimal.
func dmsToDecimal(v interface{}) (float64, bool) {
	if triple, ok := v.([]interface{}); ok {
		if len(triple) != 3 {
			return 0, false
		}
		deg, ok1 := asFloat(triple[0])
		min, ok2 := asFloat(triple[1])
		sec, ok3 := asFloat(triple[2])
		if !ok1 || !ok2 || !ok3 {
			return 0, false
		}
		return deg + min/60 + sec/3600, true
	}
	return asFloat(v)
}

// capture time layout used when GetDateTime is unavailable and the raw
// tag has to be parsed directly.
const exifTimeLayout = "2006:01:02 15:04:05"

func parseExifTime(s string) (time.Time, bool) {
	t, err := time.Parse(exifTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
