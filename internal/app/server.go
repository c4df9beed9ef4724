package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"cache-mate/internal/handlers"
	"cache-mate/internal/server"
)

// RunServer builds the HTTP server with all handlers configured
func (app *App) RunServer() (*server.Server, http.Handler) {
	h := handlers.New(app.Remote, app.Registry, app.Redis)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Metrics, app.Limiter)

	srv := server.New(router, app.Config.Port, app.Config.TLSCert, app.Config.TLSKey)
	return srv, router
}
