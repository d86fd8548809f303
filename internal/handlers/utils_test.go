package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, map[string]int{"count": 3})

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["count"] != 3 {
		t.Errorf("count = %d, want 3", body["count"])
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONError(rec, http.StatusNotFound, codeAssetNotFound, "asset not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != codeAssetNotFound {
		t.Errorf("error = %q, want %q", resp.Error, codeAssetNotFound)
	}
	if resp.Message != "asset not found" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestWriteJSONStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONStatus(rec, "aborted")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "aborted" {
		t.Errorf("status field = %q, want aborted", body["status"])
	}
}

// Error codes are part of the client contract; renaming one is a
// breaking change.
func TestErrorCodesAreStable(t *testing.T) {
	codes := map[string]string{
		codeInvalidRequest:          "invalid_request",
		codeSessionNotFound:         "session_not_found",
		codeSessionStateConflict:    "session_state_conflict",
		codeSessionAlreadyCompleted: "session_already_completed",
		codePartProxyNotSupported:   "part_proxy_not_supported",
		codeAssetNotFound:           "asset_not_found",
		codeOriginalMissing:         "original_missing",
		codeDecodeFailed:            "decode_failed",
		codeDecodeTimeout:           "decode_timeout",
		codeResizeTimeout:           "resize_timeout",
		codeDimensionNotPermitted:   "dimension_not_permitted",
		codeBundleNotFound:          "bundle_not_found",
		codeNotFound:                "not_found",
		codeInternal:                "internal_error",
	}
	for got, want := range codes {
		if got != want {
			t.Errorf("error code %q drifted from %q", got, want)
		}
	}
}
