package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/rendition"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

// AssetResponse joins the asset record with its stored renditions.
type AssetResponse struct {
	*mediatypes.MediaAsset
	Renditions []*mediatypes.Rendition `json:"renditions"`
}

// GetAsset returns one asset with its metadata and rendition listing.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	resp, err := h.loadAsset(r, id)
	if err != nil {
		h.writeAssetError(w, err, "load asset")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// ProcessAsset runs ingest synchronously for one asset and returns the
// refreshed record. Safe to repeat: every ingest write is idempotent.
func (h *Handlers) ProcessAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.pipeline.Process(r.Context(), id); err != nil {
		h.writeAssetError(w, err, "process asset")
		return
	}

	resp, err := h.loadAsset(r, id)
	if err != nil {
		h.writeAssetError(w, err, "reload asset after processing")
		return
	}

	// Reprocessing regenerates the catalog in place; on-demand entries
	// rendered by the old pipeline go the same way. A failed drop is not
	// worth failing the reprocess over.
	if _, err := h.cache.Invalidate(r.Context(), resp.StorageKey); err != nil {
		logging.Warn("drop cached renders for asset %s: %v", id, err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

func (h *Handlers) loadAsset(r *http.Request, id string) (*AssetResponse, error) {
	asset, err := h.db.GetAsset(r.Context(), id)
	if err != nil {
		return nil, err
	}

	renditions, err := h.db.ListRenditions(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if renditions == nil {
		renditions = []*mediatypes.Rendition{}
	}

	return &AssetResponse{MediaAsset: asset, Renditions: renditions}, nil
}

// writeAssetError maps asset and ingest errors onto HTTP statuses.
// Decode failures surface their per-stage outcomes, which name decoder
// stages and never storage locations.
func (h *Handlers) writeAssetError(w http.ResponseWriter, err error, op string) {
	var decodeErr *decode.DecodeError

	switch {
	case errors.Is(err, database.ErrAssetNotFound):
		writeJSONError(w, http.StatusNotFound, codeAssetNotFound, "asset not found")
	case errors.Is(err, storage.ErrNotExist):
		writeJSONError(w, http.StatusConflict, codeOriginalMissing, "the asset's backing original is missing from storage")
	case errors.Is(err, decode.ErrDecodeTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, codeDecodeTimeout, "decoding exceeded the time budget")
	case errors.Is(err, rendition.ErrResizeTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, codeResizeTimeout, "resizing exceeded the time budget")
	case errors.As(err, &decodeErr):
		writeJSONError(w, http.StatusUnprocessableEntity, codeDecodeFailed, decodeErr.Error())
	default:
		logging.Error("%s: %v", op, err)
		writeJSONError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
