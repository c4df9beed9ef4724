// Package handlers is the REST adapter over the cache layer. Every response uses the
// {message, data, meta} envelope; errors are mapped to status codes by AppError type.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	"cache-mate/internal/common/validation"
	"cache-mate/internal/localcache"
	"cache-mate/internal/remotemap"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// invalidRequest is the message returned for unreadable request bodies
const invalidRequest = "InvalidRequest"

// Sources reported in response meta
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Registry is the part of the cache registry the admin endpoints use
type Registry interface {
	ListCacheNames() []string
	Get(name string) (*localcache.Cache, bool)
	GetOrCreate(ctx context.Context, name string) (*localcache.Cache, error)
	DeleteLocalCache(name string) bool
}

// HealthChecker reports whether the remote store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Meta carries response metadata
type Meta struct {
	Count       *int64 `json:"count,omitempty"`
	Source      string `json:"source,omitempty"`
	HasMoreData *bool  `json:"hasMoreData,omitempty"`
}

// Response is the envelope every endpoint returns
type Response struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Handlers serves the cache endpoints
type Handlers struct {
	remote    *remotemap.Client
	registry  Registry
	health    HealthChecker
	validator *validation.Validator
	logger    logging.Logger
}

// New creates the handler set
func New(remote *remotemap.Client, registry Registry, health HealthChecker) *Handlers {
	return &Handlers{
		remote:    remote,
		registry:  registry,
		health:    health,
		validator: validation.New(),
		logger:    logging.Component("handlers"),
	}
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}, meta *Meta) {
	writeJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// statusFor maps an AppError type to an HTTP status
func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeSerialization:
		return http.StatusBadRequest
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if appErr, ok := errors.AsAppError(err); ok {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Request failed", err, logging.String("path", r.URL.Path))
	}
	writeJSON(w, status, Response{Message: message})
}

// decodeBody reads a JSON body into dst. Unknown fields are ignored.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, Response{Message: invalidRequest})
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		h.logger.WithContext(r.Context()).Warn("Rejecting malformed request body",
			logging.String("path", r.URL.Path),
			logging.Err(err),
		)
		writeJSON(w, http.StatusBadRequest, Response{Message: invalidRequest})
		return false
	}
	return true
}

func boolPtr(b bool) *bool {
	return &b
}

func int64Ptr(n int64) *int64 {
	return &n
}
