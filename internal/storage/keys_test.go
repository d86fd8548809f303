package storage

import "testing"

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "original",
			got:  OriginalKey("c1", "a1", ".jpg"),
			want: "originals/c1/a1.jpg",
		},
		{
			name: "catalog rendition",
			got:  RenditionKey("a1", "thumbnail", ".jpg"),
			want: "renditions/a1/thumbnail.jpg",
		},
		{
			name: "cache entry",
			got:  CacheKey("deadbeef", "cafe42", ".webp"),
			want: "renditions/cache/deadbeef/cafe42.webp",
		},
		{
			name: "cache prefix",
			got:  CachePrefix("deadbeef"),
			want: "renditions/cache/deadbeef/",
		},
		{
			name: "bundle",
			got:  BundleKey("c1"),
			want: "bundles/c1.zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
