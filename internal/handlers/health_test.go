package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/zaitanabil/galerly-sub003/internal/startup"
)

func TestHealthCheck(t *testing.T) {
	_, router, _, _ := setupHandlers(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp.Status != statusHealthy {
		t.Errorf("Status = %q, want %q", resp.Status, statusHealthy)
	}
	if resp.Version != startup.Version {
		t.Errorf("Version = %q, want %q", resp.Version, startup.Version)
	}
	if resp.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", resp.GoVersion, runtime.Version())
	}
	if resp.NumCPU != runtime.NumCPU() {
		t.Errorf("NumCPU = %d, want %d", resp.NumCPU, runtime.NumCPU())
	}
	if resp.NumGoroutine <= 0 {
		t.Error("NumGoroutine should be positive")
	}
	if resp.Uptime == "" {
		t.Error("Uptime should be set")
	}
	if resp.PendingAssets != 0 || resp.DecodedAssets != 0 || resp.TotalRenditions != 0 {
		t.Errorf("counts = %+v, want zeroes on a fresh stack", resp)
	}
	if resp.Capabilities.Heif || resp.Capabilities.Raw || resp.Capabilities.Video {
		t.Errorf("Capabilities = %+v, want all disabled", resp.Capabilities)
	}
	if resp.SessionsReaped != 0 || resp.ReaperLastRun != "" {
		t.Errorf("reaper fields = %q/%d, want empty before the first sweep",
			resp.ReaperLastRun, resp.SessionsReaped)
	}
}

func TestHealthCheckCountsLibraryState(t *testing.T) {
	_, router, store, db := setupHandlers(t)

	seedAsset(t, db, store, "coll-1", "pending-1", ".jpg", jpegBytes(t, 64, 48))
	seedAsset(t, db, store, "coll-1", "decoded-1", ".jpg", jpegBytes(t, 64, 48))
	if rec := doJSON(t, router, http.MethodPost, "/api/assets/decoded-1/process", nil); rec.Code != http.StatusOK {
		t.Fatalf("process status = %d, body %s", rec.Code, rec.Body.String())
	}
	initiateSmallUpload(t, router, "coll-1", "inflight.jpg", 64)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp.PendingAssets != 1 {
		t.Errorf("PendingAssets = %d, want 1", resp.PendingAssets)
	}
	if resp.DecodedAssets != 1 {
		t.Errorf("DecodedAssets = %d, want 1", resp.DecodedAssets)
	}
	if resp.TotalRenditions == 0 {
		t.Error("TotalRenditions should count the processed asset's renditions")
	}
	if resp.OpenUploadSessions != 1 {
		t.Errorf("OpenUploadSessions = %d, want 1", resp.OpenUploadSessions)
	}
}

func TestHealthCheckDegradedWhenDatabaseUnreachable(t *testing.T) {
	_, router, _, db := setupHandlers(t)
	db.Close()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Status != statusDegraded {
		t.Errorf("Status = %q, want %q", resp.Status, statusDegraded)
	}
}

func TestLivenessCheck(t *testing.T) {
	h, router, _, _ := setupHandlers(t)

	rec := doJSON(t, router, http.MethodGet, "/livez", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode liveness body: %v", err)
	}
	if status["status"] != "alive" {
		t.Errorf("status = %q, want alive", status["status"])
	}

	// HEAD gets headers only.
	req := httptest.NewRequest(http.MethodHead, "/livez", nil)
	headRec := httptest.NewRecorder()
	h.LivenessCheck(headRec, req)
	if headRec.Code != http.StatusOK {
		t.Errorf("HEAD status = %d, want 200", headRec.Code)
	}
	if headRec.Body.Len() != 0 {
		t.Errorf("HEAD body = %q, want empty", headRec.Body.String())
	}
}

func TestReadinessCheck(t *testing.T) {
	_, router, _, db := setupHandlers(t)

	rec := doJSON(t, router, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode readiness body: %v", err)
	}
	if status["status"] != "ready" {
		t.Errorf("status = %q, want ready", status["status"])
	}

	db.Close()
	rec = doJSON(t, router, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want 503", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode readiness body: %v", err)
	}
	if status["status"] != "not_ready" {
		t.Errorf("status = %q, want not_ready", status["status"])
	}
}
