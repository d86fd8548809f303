package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/zaitanabil/galerly-sub003/internal/bundle"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

func TestBuildBundleEmptyCollection(t *testing.T) {
	_, router, _, _ := setupHandlers(t)

	rec := doJSON(t, router, http.MethodPost, "/api/collections/empty-coll/bundle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var report bundle.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if !report.Deleted {
		t.Error("empty collection should report the archive as deleted")
	}
	if report.AssetsBundled != 0 || report.ArchiveKey != "" {
		t.Errorf("report = %+v, want no bundled assets and no archive key", report)
	}
}

func TestBuildAndDownloadBundle(t *testing.T) {
	_, router, store, db := setupHandlers(t)
	content := jpegBytes(t, 64, 48)
	seedAsset(t, db, store, "coll-1", "asset-1", ".jpg", content)
	seedAsset(t, db, store, "coll-1", "asset-2", ".png", content)
	seedAsset(t, db, store, "coll-1", "asset-3", ".jpg", nil) // orphan row

	rec := doJSON(t, router, http.MethodPost, "/api/collections/coll-1/bundle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("build status = %d, body %s", rec.Code, rec.Body.String())
	}

	var report bundle.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.AssetsBundled != 2 {
		t.Errorf("AssetsBundled = %d, want 2", report.AssetsBundled)
	}
	if report.OrphansSkipped != 1 {
		t.Errorf("OrphansSkipped = %d, want 1", report.OrphansSkipped)
	}
	if report.ArchiveKey == "" || report.ArchiveSize <= 0 {
		t.Errorf("report = %+v, want archive key and size", report)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/collections/coll-1/bundle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Errorf("Content-Type = %q, want application/zip", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="coll-1.zip"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.FormatInt(report.ArchiveSize, 10) {
		t.Errorf("Content-Length = %q, want %d", got, report.ArchiveSize)
	}

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("download is not a readable zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("archive holds %d entries, want 2", len(zr.File))
	}

	// Rebuilding after the orphan gains its object picks it up.
	orphanKey := storage.OriginalKey("coll-1", "asset-3", ".jpg")
	if err := store.Put(context.Background(), orphanKey, "image/jpeg", content); err != nil {
		t.Fatalf("failed to backfill orphan: %v", err)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/collections/coll-1/bundle", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode rebuild report: %v", err)
	}
	if report.AssetsBundled != 3 || report.OrphansSkipped != 0 {
		t.Errorf("rebuild report = %+v, want 3 bundled and 0 orphans", report)
	}
}

func TestDownloadBundleNotFound(t *testing.T) {
	_, router, _, _ := setupHandlers(t)

	rec := doJSON(t, router, http.MethodGet, "/api/collections/coll-1/bundle", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp := decodeErrorBody(t, rec); resp.Error != codeBundleNotFound {
		t.Errorf("error code = %q, want %q", resp.Error, codeBundleNotFound)
	}
}

func TestArchiveFilename(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "coll-1", want: "coll-1.zip"},
		{id: "Summer_2025.trip", want: "Summer_2025.trip.zip"},
		{id: "", want: "bundle.zip"},
		{id: "a/b", want: "bundle.zip"},
		{id: `evil"name`, want: "bundle.zip"},
		{id: "café", want: "bundle.zip"},
		{id: "with space", want: "bundle.zip"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("id %q", tt.id), func(t *testing.T) {
			if got := archiveFilename(tt.id); got != tt.want {
				t.Errorf("archiveFilename(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
