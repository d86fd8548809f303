package mediatypes

// MediaKind categorizes an asset by the pipeline that processes it.
type MediaKind string

const (
	// KindImage represents a still photo in any supported source format.
	KindImage MediaKind = "image"
	// KindVideo represents a video file; renditions come from an extracted frame.
	KindVideo MediaKind = "video"
	// KindOther represents an unrecognized or unsupported file type.
	KindOther MediaKind = "other"
)

// DecodeStatus tracks where an asset sits in the ingest pipeline.
type DecodeStatus string

const (
	// DecodePending means the original has been stored but not yet processed.
	DecodePending DecodeStatus = "pending"
	// DecodeOK means the asset decoded successfully and renditions exist.
	DecodeOK DecodeStatus = "decoded"
	// DecodeFailed means every decoder stage was exhausted without success.
	DecodeFailed DecodeStatus = "decode_failed"
)

// FitPolicy controls how a source image is mapped onto target dimensions.
type FitPolicy string

const (
	// FitInside shrinks the image to fit within the bounds, preserving
	// aspect ratio. Images already smaller than the bounds are unchanged.
	FitInside FitPolicy = "inside"
	// FitOutside covers the bounds, preserving aspect ratio, then
	// center-crops to the exact target dimensions.
	FitOutside FitPolicy = "outside"
	// FitExact resizes to the exact dimensions, distorting if needed.
	FitExact FitPolicy = "exact"
)

// ParseFitPolicy maps a request parameter to a FitPolicy.
// An empty string defaults to FitInside; unknown values are rejected.
func ParseFitPolicy(s string) (FitPolicy, bool) {
	switch FitPolicy(s) {
	case "":
		return FitInside, true
	case FitInside, FitOutside, FitExact:
		return FitPolicy(s), true
	}
	return "", false
}

// OutputFormat is an encode target for renditions.
type OutputFormat string

const (
	// FormatJPEG encodes lossy JPEG. Alpha is flattened onto white first.
	FormatJPEG OutputFormat = "jpeg"
	// FormatPNG encodes lossless PNG.
	FormatPNG OutputFormat = "png"
	// FormatWEBP encodes lossy WEBP. Requires libvips at runtime.
	FormatWEBP OutputFormat = "webp"
)

// ParseOutputFormat maps a request parameter to an OutputFormat.
// An empty string means "derive from the source" and returns ok with
// an empty format.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch s {
	case "":
		return "", true
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWEBP, true
	}
	return "", false
}

// Extension returns the canonical file extension for the format,
// including the leading dot.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatWEBP:
		return ".webp"
	default:
		return ".jpg"
	}
}

// MimeType returns the MIME type served for the format.
func (f OutputFormat) MimeType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWEBP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// RasterExtensions lists source extensions decodable by the standard
// Go image codecs (decoder stage one).
var RasterExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".bmp":  true,
}

// HeifExtensions lists source extensions handled by the libvips decoder
// stage. Stage two never runs for other extensions.
var HeifExtensions = map[string]bool{
	".heic": true,
	".heif": true,
	".avif": true,
}

// RawExtensions lists camera RAW extensions handled by the dcraw decoder
// stage. Stage three never runs for other extensions.
var RawExtensions = map[string]bool{
	".cr2": true,
	".cr3": true,
	".nef": true,
	".nrw": true,
	".arw": true,
	".sr2": true,
	".dng": true,
	".orf": true,
	".raf": true,
	".rw2": true,
	".pef": true,
	".srw": true,
	".raw": true,
}

// VideoExtensions lists supported video container extensions.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".wmv":  true,
	".flv":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".dng":  "image/x-adobe-dng",

	// Videos
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// KindForExtension returns the MediaKind for a file extension.
// The extension should be lowercase and include the leading dot (e.g. ".jpg").
// Returns KindOther if the extension is not recognized.
func KindForExtension(ext string) MediaKind {
	if RasterExtensions[ext] || HeifExtensions[ext] || RawExtensions[ext] {
		return KindImage
	}
	if VideoExtensions[ext] {
		return KindVideo
	}
	return KindOther
}

// MimeTypeFor returns the MIME type for a file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func MimeTypeFor(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsSupportedUpload reports whether the extension belongs to a media
// type the pipeline can ingest.
func IsSupportedUpload(ext string) bool {
	return KindForExtension(ext) != KindOther
}
