package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"cache-mate/internal/codec"
	"cache-mate/internal/common/logging"
)

// KeysRequest selects entries for a bulk read
type KeysRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,max=1000,dive,cache_key"`
}

// pathVars validates and returns the set and, when present, key path segments
func (h *Handlers) pathVars(r *http.Request) (set, key string, err error) {
	vars := mux.Vars(r)
	set = vars["set"]
	if err = h.validator.Key("set", set); err != nil {
		return "", "", err
	}
	if k, ok := vars["key"]; ok {
		if err = h.validator.Key("key", k); err != nil {
			return "", "", err
		}
		key = k
	}
	return set, key, nil
}

// GetData returns one entry decoded as generic JSON
// @Summary Get an entry
// @Tags data
// @Produce json
// @Param set path string true "Set name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Failure 503 {object} Response "Remote store unavailable"
// @Router /api/v1/cache-mate/{set}/data/{key} [get]
func (h *Handlers) GetData(w http.ResponseWriter, r *http.Request) {
	set, key, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := logging.ContextWithSet(r.Context(), set)

	value, found, err := h.remote.Get(ctx, set, key, codec.Any())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		ok(w, nil, &Meta{Source: SourceRemote})
		return
	}
	ok(w, value, &Meta{Source: SourceRemote})
}

// PutData stores a document under key
// @Summary Put an entry
// @Tags data
// @Accept json
// @Produce json
// @Param set path string true "Set name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Failure 400 {object} Response "InvalidRequest"
// @Router /api/v1/cache-mate/{set}/data/{key} [post]
func (h *Handlers) PutData(w http.ResponseWriter, r *http.Request) {
	set, key, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var doc codec.Document
	if !h.decodeBody(w, r, &doc) {
		return
	}

	stored, err := h.remote.Put(logging.ContextWithSet(r.Context(), set), set, key, doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, stored, nil)
}

// DeleteData removes one entry
// @Summary Delete an entry
// @Tags data
// @Produce json
// @Param set path string true "Set name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set}/data/{key} [delete]
func (h *Handlers) DeleteData(w http.ResponseWriter, r *http.Request) {
	set, key, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	deleted, err := h.remote.Delete(logging.ContextWithSet(r.Context(), set), set, key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, deleted, nil)
}

// GetListData returns one list-of-documents entry
// @Summary Get a list entry
// @Tags list-data
// @Produce json
// @Param set path string true "Set name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set}/list-data/{key} [get]
func (h *Handlers) GetListData(w http.ResponseWriter, r *http.Request) {
	set, key, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	docs, found, err := h.remote.GetList(logging.ContextWithSet(r.Context(), set), set, key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		ok(w, nil, &Meta{Source: SourceRemote})
		return
	}
	ok(w, docs, &Meta{Count: int64Ptr(int64(len(docs))), Source: SourceRemote})
}

// PutListData stores a list of documents under key
// @Summary Put a list entry
// @Tags list-data
// @Accept json
// @Produce json
// @Param set path string true "Set name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set}/list-data/{key} [post]
func (h *Handlers) PutListData(w http.ResponseWriter, r *http.Request) {
	set, key, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var docs codec.Documents
	if !h.decodeBody(w, r, &docs) {
		return
	}

	stored, err := h.remote.PutList(logging.ContextWithSet(r.Context(), set), set, map[string]codec.Documents{key: docs})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, stored, nil)
}

// PutManyListData stores several list entries in one write
// @Summary Put many list entries
// @Tags list-data
// @Accept json
// @Produce json
// @Param set path string true "Set name"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set}/list-data [post]
func (h *Handlers) PutManyListData(w http.ResponseWriter, r *http.Request) {
	set, _, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var entries map[string]codec.Documents
	if !h.decodeBody(w, r, &entries) {
		return
	}
	for key := range entries {
		if err := h.validator.Key("key", key); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	stored, err := h.remote.PutList(logging.ContextWithSet(r.Context(), set), set, entries)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, stored, &Meta{Count: int64Ptr(int64(len(entries)))})
}

// QueryListData reads several list entries in one round trip. Absent keys are left out.
// @Summary Get many list entries
// @Tags list-data
// @Accept json
// @Produce json
// @Param set path string true "Set name"
// @Param request body KeysRequest true "Keys to fetch"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set}/list-data/query [post]
func (h *Handlers) QueryListData(w http.ResponseWriter, r *http.Request) {
	set, _, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req KeysRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.fail(w, r, err)
		return
	}

	found, err := h.remote.GetMany(logging.ContextWithSet(r.Context(), set), set, req.Keys)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, found, &Meta{
		Count:       int64Ptr(int64(len(found))),
		Source:      SourceRemote,
		HasMoreData: boolPtr(false),
	})
}

// CountData returns the number of entries in a set
// @Summary Count entries
// @Tags data
// @Produce json
// @Param set path string true "Set name"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set}/count [get]
func (h *Handlers) CountData(w http.ResponseWriter, r *http.Request) {
	set, _, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	n, err := h.remote.Count(logging.ContextWithSet(r.Context(), set), set)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, n, &Meta{Count: int64Ptr(n), Source: SourceRemote})
}

// DeleteSet drops a whole set
// @Summary Delete a set
// @Tags data
// @Produce json
// @Param set path string true "Set name"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/{set} [delete]
func (h *Handlers) DeleteSet(w http.ResponseWriter, r *http.Request) {
	set, _, err := h.pathVars(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	deleted, err := h.remote.DeleteSet(logging.ContextWithSet(r.Context(), set), set)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, deleted, nil)
}
