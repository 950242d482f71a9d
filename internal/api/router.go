package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ecvirtual/fleetops/internal/config"
	"github.com/ecvirtual/fleetops/internal/fleet"
	"github.com/ecvirtual/fleetops/internal/websocket"
	"github.com/ecvirtual/fleetops/pkg/logger"
)

// Router assembles the HTTP routes
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(fleetService *fleet.Service, notify fleet.Notifier, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler:  NewHandler(fleetService, notify, cfg, log),
		wsServer: wsServer,
		logger:   log.Named("router"),
	}
}

// Routes returns the configured HTTP handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Inbound vAMSYS webhooks, one route per event category
	r.Post("/vamsys/pirep", rt.handler.PirepWebhook)
	r.Post("/vamsys/roster", rt.handler.RosterWebhook)

	// Fleet status and administrative operations
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rt.handler.Health)
		r.Get("/fleet", rt.handler.GetFleet)
		r.Get("/fleet/{registration}", rt.handler.GetAircraft)
		r.Post("/fleet/{registration}/maintenance", rt.handler.StartMaintenance)
		r.Post("/fleet/{registration}/reset", rt.handler.ResetCheck)
	})

	// Live fleet event stream
	if rt.wsServer != nil {
		r.Get("/ws", rt.wsServer.HandleWebSocket)
	}

	return r
}
