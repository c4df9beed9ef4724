package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	"cache-mate/internal/localcache"
)

// statsTimeout bounds the remote size lookups behind the cache listing
const statsTimeout = 5 * time.Second

// CacheInfo describes one local cache for the admin listing
type CacheInfo struct {
	localcache.Stats
	RemoteSize *int64 `json:"remoteSize,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ListCaches returns every local cache with its counters and remote size
// @Summary List local caches
// @Tags caches
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/caches [get]
func (h *Handlers) ListCaches(w http.ResponseWriter, r *http.Request) {
	names := h.registry.ListCacheNames()
	infos := make([]CacheInfo, len(names))

	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	var g errgroup.Group
	for i, name := range names {
		cache, ok := h.registry.Get(name)
		if !ok {
			infos[i] = CacheInfo{Stats: localcache.Stats{Name: name}, Error: "deleted"}
			continue
		}
		infos[i].Stats = cache.Stats()

		i := i
		g.Go(func() error {
			size, err := cache.Size(ctx)
			if err != nil {
				// one unreachable cache must not hide the others
				infos[i].Error = err.Error()
				return nil
			}
			infos[i].RemoteSize = int64Ptr(size)
			return nil
		})
	}
	_ = g.Wait()

	ok(w, infos, &Meta{Count: int64Ptr(int64(len(infos))), Source: SourceLocal})
}

// GetCacheEntry reads one entry through a named local cache, creating the cache on first use
// @Summary Read through a local cache
// @Tags caches
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Failure 500 {object} Response "Cache name not registered"
// @Router /api/v1/cache-mate/caches/{name}/entries/{key} [get]
func (h *Handlers) GetCacheEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, key := vars["name"], vars["key"]
	if err := h.validator.Key("key", key); err != nil {
		h.fail(w, r, err)
		return
	}

	cache, err := h.registry.GetOrCreate(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	value, found := cache.Get(r.Context(), key)
	if !found {
		ok(w, nil, &Meta{Source: SourceLocal})
		return
	}
	ok(w, value, &Meta{Source: SourceLocal})
}

// PutCacheEntry writes one entry through a named local cache
// @Summary Write through a local cache
// @Tags caches
// @Accept json
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Entry key"
// @Success 200 {object} Response
// @Router /api/v1/cache-mate/caches/{name}/entries/{key} [post]
func (h *Handlers) PutCacheEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, key := vars["name"], vars["key"]
	if err := h.validator.Key("key", key); err != nil {
		h.fail(w, r, err)
		return
	}

	var value interface{}
	if !h.decodeBody(w, r, &value) {
		return
	}

	cache, err := h.registry.GetOrCreate(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cache.Put(r.Context(), key, value)
	ok(w, true, nil)
}

// DeleteLocalCache drops a local cache instance; remote data is kept
// @Summary Delete a local cache
// @Tags caches
// @Produce json
// @Param name path string true "Cache name"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/cache-mate/caches/{name}/local [delete]
func (h *Handlers) DeleteLocalCache(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !h.registry.DeleteLocalCache(name) {
		h.fail(w, r, errors.NotFoundError("cache "+name))
		return
	}
	ok(w, true, nil)
}

// HealthCheck reports remote store reachability
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Health(r.Context()); err != nil {
		h.logger.WithContext(r.Context()).Warn("Health check failed", logging.Err(err))
		writeJSON(w, http.StatusServiceUnavailable, Response{
			Message: "unhealthy",
			Data:    map[string]string{"redis": "down"},
		})
		return
	}
	ok(w, map[string]string{"redis": "up"}, nil)
}
