package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/rendition"
	"github.com/zaitanabil/galerly-sub003/internal/resizecache"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

// RenderImage serves an on-demand transform of a stored original.
// Query parameters: w, h (pixels), fit (inside|outside|exact),
// format (jpeg|png|webp), q (quality 1-100).
func (h *Handlers) RenderImage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" || strings.Contains(key, "..") {
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, "invalid source path")
		return
	}

	// Only originals are renderable. Cache entries, catalog renditions,
	// and archives are not decode sources.
	if !strings.HasPrefix(key, "originals/") {
		writeJSONError(w, http.StatusNotFound, codeNotFound, "no media at this location")
		return
	}

	params, err := parseRenderParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	result, err := h.cache.Resolve(r.Context(), key, params)
	if err != nil {
		h.writeRenderError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Cache-Control", result.CacheControl)
	if result.Hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}

	if _, err := w.Write(result.Data); err != nil {
		// Client disconnects mid-body are routine; nothing to recover.
		logging.Debug("render response write aborted: %v", err)
	}
}

func parseRenderParams(r *http.Request) (resizecache.Params, error) {
	q := r.URL.Query()
	var p resizecache.Params

	if s := q.Get("w"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, errors.New("w must be an integer")
		}
		p.Width = n
	}
	if s := q.Get("h"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, errors.New("h must be an integer")
		}
		p.Height = n
	}
	if s := q.Get("fit"); s != "" {
		fit, ok := mediatypes.ParseFitPolicy(s)
		if !ok {
			return p, errors.New("fit must be one of inside, outside, exact")
		}
		p.Fit = fit
	}
	if s := q.Get("format"); s != "" {
		format, ok := mediatypes.ParseOutputFormat(s)
		if !ok {
			return p, errors.New("format must be one of jpeg, png, webp")
		}
		p.Format = format
	}
	if s := q.Get("q"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			return p, errors.New("q must be an integer between 1 and 100")
		}
		p.Quality = n
	}

	return p, nil
}

func (h *Handlers) writeRenderError(w http.ResponseWriter, err error) {
	var decodeErr *decode.DecodeError

	switch {
	case errors.Is(err, resizecache.ErrDimensionNotPermitted):
		writeJSONError(w, http.StatusBadRequest, codeDimensionNotPermitted, "requested dimensions are not permitted")
	case errors.Is(err, storage.ErrNotExist):
		writeJSONError(w, http.StatusNotFound, codeNotFound, "no media at this location")
	case errors.Is(err, decode.ErrDecodeTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, codeDecodeTimeout, "decoding exceeded the time budget")
	case errors.Is(err, rendition.ErrResizeTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, codeResizeTimeout, "resizing exceeded the time budget")
	case errors.As(err, &decodeErr):
		writeJSONError(w, http.StatusUnprocessableEntity, codeDecodeFailed, "source could not be decoded")
	default:
		logging.Error("render: %v", err)
		writeJSONError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
