// Package server wires HTTP handlers into a gorilla/mux router for the relay.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRoutes configures and returns the router with all application routes.
// Every route passes through the CORS middleware of origins.
func SetupRoutes(h *Handlers, origins *OriginPolicy) *mux.Router {
	r := mux.NewRouter()
	r.Use(origins.CORSMiddleware)

	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/ws", h.WebSocket).Methods(http.MethodGet)
	return r
}

// NewRouter builds the handlers and routes for cfg around hub.
func NewRouter(cfg Config, hub *Hub, logger *zap.Logger) *mux.Router {
	cfg = cfg.Sanitized()
	origins := NewOriginPolicy(cfg.AllowedOrigins, logger)
	return SetupRoutes(NewHandlers(cfg, hub, origins, logger), origins)
}
