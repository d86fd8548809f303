package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/streaming"
)

// BuildBundle assembles (or rebuilds) a collection's archive and
// returns the build report. An empty collection deletes any previous
// archive; the report says so rather than erroring.
func (h *Handlers) BuildBundle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := h.archiver.Build(r.Context(), id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client gave up; the build published nothing.
			return
		}
		logging.Error("bundle build for collection %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, codeInternal, "bundle build failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, report)
}

// DownloadBundle streams a previously built archive.
func (h *Handlers) DownloadBundle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rc, size, err := h.store.GetStream(r.Context(), storage.BundleKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, codeBundleNotFound, "no archive has been built for this collection")
			return
		}
		logging.Error("open bundle for collection %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archiveFilename(id)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}

	// The server's write timeout is disabled so big archives on slow
	// links survive; the stream carries its own bounds instead.
	n, err := streaming.Copy(r.Context(), w, rc, streaming.DefaultConfig())
	switch {
	case err == nil:
	case errors.Is(err, streaming.ErrClientGone):
		// Mid-download disconnects are routine for large archives.
		logging.Debug("bundle download for collection %s abandoned by client after %d bytes", id, n)
	default:
		logging.Warn("bundle download for collection %s aborted after %d bytes: %v", id, n, err)
	}
}

// archiveFilename builds the download name from the collection id,
// falling back to a fixed name when the id carries characters that do
// not belong in a Content-Disposition header.
func archiveFilename(collectionID string) string {
	for _, r := range collectionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return "bundle.zip"
		}
	}
	if collectionID == "" {
		return "bundle.zip"
	}
	return collectionID + ".zip"
}
