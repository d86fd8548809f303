package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/upload"
)

// CompleteRequest carries the full part list a client presents to
// finalize its upload.
type CompleteRequest struct {
	Parts []mediatypes.PartToken `json:"parts"`
}

// SessionStatusResponse is the resume payload: the session record plus
// the parts a client still has to upload.
type SessionStatusResponse struct {
	Session      *mediatypes.UploadSession `json:"session"`
	MissingParts []int                     `json:"missing_parts"`
}

// InitiateUpload creates an upload session and returns one write
// capability per part.
func (h *Handlers) InitiateUpload(w http.ResponseWriter, r *http.Request) {
	var req upload.InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	initiated, err := h.coordinator.Initiate(r.Context(), req)
	if err != nil {
		h.writeUploadError(w, err, "initiate upload")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, initiated)
}

// GetUploadSession returns session state for client resume.
func (h *Handlers) GetUploadSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess, err := h.coordinator.Status(r.Context(), id)
	if err != nil {
		h.writeUploadError(w, err, "load upload session")
		return
	}

	missing := sess.MissingParts()
	if missing == nil {
		missing = []int{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SessionStatusResponse{Session: sess, MissingParts: missing})
}

// AcknowledgeUploadPart records a part a client finished writing
// directly to storage.
func (h *Handlers) AcknowledgeUploadPart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var part mediatypes.PartToken
	if err := json.NewDecoder(r.Body).Decode(&part); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	if err := h.coordinator.AcknowledgePart(r.Context(), id, part); err != nil {
		h.writeUploadError(w, err, "acknowledge part")
		return
	}

	writeJSONStatus(w, "acknowledged")
}

// WriteUploadPart accepts raw part bytes for backends that cannot issue
// presigned URLs. Capabilities with Proxy set point here.
func (h *Handlers) WriteUploadPart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	partNumber, err := strconv.Atoi(vars["part"])
	if err != nil || partNumber < 1 {
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, "part number must be a positive integer")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, upload.MaxChunkSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, codeInvalidRequest, "part exceeds the maximum chunk size")
			return
		}
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, "failed to read part body")
		return
	}

	token, err := h.coordinator.WritePart(r.Context(), id, partNumber, data)
	if err != nil {
		h.writeUploadError(w, err, "write part")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, token)
}

// CompleteUpload validates the part list, finalizes the original, and
// hands the new asset to the ingest pipeline.
func (h *Handlers) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	asset, err := h.coordinator.Complete(r.Context(), id, req.Parts)
	if err != nil {
		h.writeUploadError(w, err, "complete upload")
		return
	}

	// The asset exists either way; a full queue only delays processing
	// until someone hits the process endpoint or re-enqueues.
	if err := h.pipeline.Enqueue(r.Context(), asset.ID); err != nil {
		logging.Warn("asset %s created but ingest enqueue failed: %v", asset.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, asset)
}

// AbortUpload tears a session down and releases its partial storage.
func (h *Handlers) AbortUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.coordinator.Abort(r.Context(), id); err != nil {
		h.writeUploadError(w, err, "abort upload")
		return
	}

	writeJSONStatus(w, "aborted")
}

// writeUploadError maps coordinator errors onto HTTP statuses and
// stable codes. ErrInvalidRequest detail is client-safe by contract
// (bounds and part numbers, never storage internals); everything
// unexpected collapses to a generic 500.
func (h *Handlers) writeUploadError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, upload.ErrSessionNotFound):
		writeJSONError(w, http.StatusNotFound, codeSessionNotFound, "upload session not found")
	case errors.Is(err, upload.ErrAlreadyCompleted):
		writeJSONError(w, http.StatusConflict, codeSessionAlreadyCompleted, "upload session already completed")
	case errors.Is(err, upload.ErrStateConflict):
		writeJSONError(w, http.StatusConflict, codeSessionStateConflict, "upload session state changed concurrently")
	case errors.Is(err, upload.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, storage.ErrPartProxyNotSupported):
		writeJSONError(w, http.StatusNotImplemented, codePartProxyNotSupported, "storage backend does not accept proxied part writes")
	default:
		logging.Error("%s: %v", op, err)
		writeJSONError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
