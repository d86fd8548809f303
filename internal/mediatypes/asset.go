package mediatypes

import "time"

// MediaAsset is the canonical record for one uploaded original.
// It is created when an upload session completes and mutated only by
// the ingest pipeline (decode status, dimensions, extracted metadata).
type MediaAsset struct {
	ID           string       `json:"id"`
	CollectionID string       `json:"collection_id"`
	StorageKey   string       `json:"storage_key"`
	FileName     string       `json:"file_name"`
	Mime         string       `json:"mime"`
	Extension    string       `json:"extension"`
	Size         int64        `json:"size"`
	Kind         MediaKind    `json:"kind"`
	DecodeStatus DecodeStatus `json:"decode_status"`

	// DecodeError holds the terminal failure detail when DecodeStatus
	// is DecodeFailed, empty otherwise.
	DecodeError string `json:"decode_error,omitempty"`

	// Width and Height are the decoded pixel dimensions, zero until the
	// asset has been processed.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Image and Video hold extracted technical metadata. Exactly one is
	// populated, matching Kind; both are nil before processing or when
	// extraction yielded nothing.
	Image *ImageMetadata `json:"image,omitempty"`
	Video *VideoMetadata `json:"video,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImageMetadata holds EXIF-derived fields. Every field is optional:
// a tag absent from the source stays nil, never a zero sentinel.
type ImageMetadata struct {
	CaptureTime  *time.Time   `json:"capture_time,omitempty"`
	CameraMake   *string      `json:"camera_make,omitempty"`
	CameraModel  *string      `json:"camera_model,omitempty"`
	LensModel    *string      `json:"lens_model,omitempty"`
	Orientation  *int         `json:"orientation,omitempty"`
	ISO          *int         `json:"iso,omitempty"`
	FNumber      *float64     `json:"f_number,omitempty"`
	ExposureSecs *float64     `json:"exposure_secs,omitempty"`
	FocalLength  *float64     `json:"focal_length,omitempty"`
	GPS          *GPSPosition `json:"gps,omitempty"`
}

// GPSPosition is a decoded GPS fix in signed decimal degrees.
// Southern latitudes and western longitudes are negative.
type GPSPosition struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// VideoMetadata holds container-level fields probed from a video asset.
type VideoMetadata struct {
	DurationSecs float64  `json:"duration_secs"`
	BitRate      int64    `json:"bit_rate,omitempty"`
	Codec        string   `json:"codec,omitempty"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	FrameRate    *float64 `json:"frame_rate,omitempty"`
}

// Rendition is one derived image written to storage. Renditions are
// immutable: identical parameters always produce identical bytes, so a
// concurrent re-write of the same key is a harmless no-op.
type Rendition struct {
	AssetID string `json:"asset_id"`

	// Class names the catalog entry that produced this rendition
	// ("thumbnail", "small", ...). On-demand cache renditions have an
	// empty class.
	Class string `json:"class,omitempty"`

	StorageKey string       `json:"storage_key"`
	Format     OutputFormat `json:"format"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Size       int64        `json:"size"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SizeClass is one entry in the fixed rendition catalog.
type SizeClass struct {
	Name   string    `json:"name"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Fit    FitPolicy `json:"fit"`
}

// DefaultCatalog is the rendition set generated for every decodable
// asset. All classes bound with FitInside, so small originals are
// stored as-is rather than upscaled.
var DefaultCatalog = []SizeClass{
	{Name: "thumbnail", Width: 400, Height: 400, Fit: FitInside},
	{Name: "small", Width: 800, Height: 600, Fit: FitInside},
	{Name: "medium", Width: 2000, Height: 2000, Fit: FitInside},
	{Name: "large", Width: 4000, Height: 4000, Fit: FitInside},
}

// CatalogClass looks up a catalog entry by name.
func CatalogClass(name string) (SizeClass, bool) {
	for _, sc := range DefaultCatalog {
		if sc.Name == name {
			return sc, true
		}
	}
	return SizeClass{}, false
}
