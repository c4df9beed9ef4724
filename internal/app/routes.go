package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "cache-mate/docs"
	"cache-mate/internal/handlers"
	"cache-mate/internal/metrics"
	"cache-mate/internal/middleware"
	"cache-mate/internal/ratelimit"
)

// BasePath prefixes every cache endpoint
const BasePath = "/api/v1/cache-mate"

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, collector *metrics.Collector, limiter *ratelimit.Limiter) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.Metrics(collector))

	// Operational endpoints
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := router.PathPrefix(BasePath).Subrouter()
	if limiter != nil && limiter.Enabled() {
		api.Use(ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey))
	}

	// Local cache administration, registered before the {set} routes so "caches" is never
	// taken for a set name
	api.HandleFunc("/caches", h.ListCaches).Methods(http.MethodGet)
	api.HandleFunc("/caches/{name}/entries/{key}", h.GetCacheEntry).Methods(http.MethodGet)
	api.HandleFunc("/caches/{name}/entries/{key}", h.PutCacheEntry).Methods(http.MethodPost)
	api.HandleFunc("/caches/{name}/local", h.DeleteLocalCache).Methods(http.MethodDelete)

	// Single documents
	api.HandleFunc("/{set}/data/{key}", h.GetData).Methods(http.MethodGet)
	api.HandleFunc("/{set}/data/{key}", h.PutData).Methods(http.MethodPost)
	api.HandleFunc("/{set}/data/{key}", h.DeleteData).Methods(http.MethodDelete)

	// Lists of documents; query must precede {key}
	api.HandleFunc("/{set}/list-data", h.PutManyListData).Methods(http.MethodPost)
	api.HandleFunc("/{set}/list-data/query", h.QueryListData).Methods(http.MethodPost)
	api.HandleFunc("/{set}/list-data/{key}", h.GetListData).Methods(http.MethodGet)
	api.HandleFunc("/{set}/list-data/{key}", h.PutListData).Methods(http.MethodPost)

	// Whole sets
	api.HandleFunc("/{set}/count", h.CountData).Methods(http.MethodGet)
	api.HandleFunc("/{set}", h.DeleteSet).Methods(http.MethodDelete)
}
