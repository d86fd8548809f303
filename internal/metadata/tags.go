package metadata

import (
	"strings"

	"github.com/bep/imagemeta"
)

// EXIF tag values arrive as whatever the encoder wrote: strings, any
// integer width, rationals, or one-element arrays of those. The helpers
// below coerce defensively and report failure instead of guessing.

func tagString(tags map[string]imagemeta.TagInfo, name string) (string, bool) {
	ti, ok := tags[name]
	if !ok {
		return "", false
	}
	s, ok := ti.Value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" {
		return "", false
	}
	return s, true
}

func tagFloat(tags map[string]imagemeta.TagInfo, name string) (float64, bool) {
	ti, ok := tags[name]
	if !ok {
		return 0, false
	}
	return asFloat(ti.Value)
}

func tagInt(tags map[string]imagemeta.TagInfo, name string) (int, bool) {
	f, ok := tagFloat(tags, name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case interface{ Float64() float64 }:
		// Covers the EXIF rational types.
		return x.Float64(), true
	case []interface{}:
		if len(x) > 0 {
			return asFloat(x[0])
		}
	}
	return 0, false
}
