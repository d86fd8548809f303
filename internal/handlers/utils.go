package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
)

// Stable machine-readable error codes carried in JSON error bodies.
// Clients key off these; the message text is free to change.
const (
	codeInvalidRequest          = "invalid_request"
	codeSessionNotFound         = "session_not_found"
	codeSessionStateConflict    = "session_state_conflict"
	codeSessionAlreadyCompleted = "session_already_completed"
	codePartProxyNotSupported   = "part_proxy_not_supported"
	codeAssetNotFound           = "asset_not_found"
	codeOriginalMissing         = "original_missing"
	codeDecodeFailed            = "decode_failed"
	codeDecodeTimeout           = "decode_timeout"
	codeResizeTimeout           = "resize_timeout"
	codeDimensionNotPermitted   = "dimension_not_permitted"
	codeBundleNotFound          = "bundle_not_found"
	codeNotFound                = "not_found"
	codeInternal                = "internal_error"
)

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response with a stable code. Messages
// must never carry storage keys or wrapped internal error text unless
// the caller has checked it is client-safe.
func writeJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, ErrorResponse{Error: code, Message: message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}
