package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecvirtual/fleetops/internal/config"
	"github.com/ecvirtual/fleetops/internal/fleet"
	"github.com/ecvirtual/fleetops/internal/vamsys"
	"github.com/ecvirtual/fleetops/pkg/logger"
)

// maxWebhookBodySize bounds inbound webhook payloads. vAMSYS pirep
// payloads are a few KB; 1 MB gives comfortable headroom.
const maxWebhookBodySize = 1 << 20

// Handler contains the API handlers
type Handler struct {
	fleetService *fleet.Service
	notify       fleet.Notifier
	config       *config.Config
	logger       *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(fleetService *fleet.Service, notify fleet.Notifier, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		fleetService: fleetService,
		notify:       notify,
		config:       cfg,
		logger:       log.Named("api-handler"),
	}
}

// PirepWebhook receives flight-report notifications. The signature is
// verified over the raw body before anything is parsed; on success the
// platform gets its acknowledgement immediately and processing continues
// in the background so it is never blocked on sink latency.
func (h *Handler) PirepWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifyWebhook(w, r, h.config.Webhooks.PirepSecret)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})

	go h.processPirep(body)
}

// RosterWebhook receives pilot roster notifications and relays a summary
// to the monitoring channel.
func (h *Handler) RosterWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifyWebhook(w, r, h.config.Webhooks.RosterSecret)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})

	go h.processRoster(body)
}

// verifyWebhook reads the raw body and checks the route signature. On
// failure it writes the 401 and returns ok=false; no event semantics are
// touched before this passes.
func (h *Handler) verifyWebhook(w http.ResponseWriter, r *http.Request, secret string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("Failed to read webhook body", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read body")
		return nil, false
	}

	signature := r.Header.Get(SignatureHeader)
	if !VerifySignature(secret, body, signature) {
		h.logger.Warn("Invalid webhook signature",
			logger.String("path", r.URL.Path),
			logger.String("remote_addr", r.RemoteAddr))
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return nil, false
	}

	return body, true
}

// processPirep runs after the webhook has been acknowledged. Events that
// are not flight reports or do not parse are dropped silently; the
// caller only needed delivery confirmation.
func (h *Handler) processPirep(body []byte) {
	eventType := vamsys.ParseEventType(body)
	if !strings.HasPrefix(eventType, "pirep.") {
		h.logger.Debug("Ignoring non-pirep event",
			logger.String("event", eventType))
		return
	}

	ev, err := vamsys.ParsePirepEvent(body)
	if err != nil {
		h.logger.Warn("Malformed pirep event ignored",
			logger.String("event", eventType),
			logger.Error(err))
		return
	}

	report := fleet.FlightReport{
		PirepID:      ev.PirepID,
		Registration: ev.Registration,
		FlightHours:  ev.FlightHours,
		LandingRate:  ev.LandingRate,
		Arrival:      ev.Arrival,
		FleetID:      ev.FleetID,
		InternalID:   ev.InternalID,
	}
	if err := h.fleetService.ApplyFlightReport(context.Background(), report); err != nil {
		h.logger.Error("Failed to process flight report",
			logger.String("registration", ev.Registration),
			logger.String("pirep_id", ev.PirepID),
			logger.Error(err))
	}
}

func (h *Handler) processRoster(body []byte) {
	eventType := vamsys.ParseEventType(body)
	if !strings.HasPrefix(eventType, "pilot.") {
		h.logger.Debug("Ignoring non-pilot event",
			logger.String("event", eventType))
		return
	}

	ev, err := vamsys.ParseRosterEvent(body)
	if err != nil {
		h.logger.Warn("Malformed roster event ignored",
			logger.String("event", eventType),
			logger.Error(err))
		return
	}

	if h.notify == nil || !h.notify.Enabled() {
		return
	}
	if err := h.notify.Post(context.Background(), rosterMessage(ev)); err != nil {
		h.logger.Error("Roster notification failed",
			logger.String("event", ev.Event),
			logger.Error(err))
	}
}

// rosterMessage renders a pilot roster event for the monitoring channel.
func rosterMessage(ev *vamsys.RosterEvent) string {
	name := ev.PilotName
	if name == "" {
		name = "Unknown pilot"
	}
	var action string
	switch ev.Event {
	case "pilot.registered":
		action = "registered"
	case "pilot.approved":
		action = "approved"
	case "pilot.rejected":
		action = "rejected"
	case "pilot.banned":
		action = "banned"
	case "pilot.unbanned":
		action = "unbanned"
	case "pilot.deleted":
		action = "deleted"
	case "pilot.rank_changed":
		if ev.Rank != "" {
			action = "promoted to " + ev.Rank
		} else {
			action = "rank changed"
		}
	default:
		action = ev.Event
	}
	if ev.Callsign != "" {
		return fmt.Sprintf("Roster: %s (%s) %s", name, ev.Callsign, action)
	}
	return fmt.Sprintf("Roster: %s %s", name, action)
}

// GetFleet returns the full fleet overview with next-due figures
func (h *Handler) GetFleet(w http.ResponseWriter, r *http.Request) {
	entries, err := h.fleetService.FleetOverview()
	if err != nil {
		h.logger.Error("Failed to load fleet overview", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load fleet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(entries),
		"aircraft": entries,
	})
}

// GetAircraft returns the record for one registration. Unknown
// registrations answer with the synthesized default record.
func (h *Handler) GetAircraft(w http.ResponseWriter, r *http.Request) {
	registration := strings.ToUpper(chi.URLParam(r, "registration"))
	status, err := h.fleetService.GetStatus(registration)
	if err != nil {
		h.logger.Error("Failed to load aircraft",
			logger.String("registration", registration),
			logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load aircraft")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

type startMaintenanceRequest struct {
	Hours int `json:"hours"`
}

// StartMaintenance manually grounds an aircraft for a fixed duration
func (h *Handler) StartMaintenance(w http.ResponseWriter, r *http.Request) {
	registration := strings.ToUpper(chi.URLParam(r, "registration"))

	var req startMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Hours <= 0 {
		respondError(w, http.StatusBadRequest, "hours must be positive")
		return
	}

	status, err := h.fleetService.StartMaintenance(r.Context(), registration, req.Hours)
	if err != nil {
		h.logger.Error("Failed to start maintenance",
			logger.String("registration", registration),
			logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to start maintenance")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

type resetCheckRequest struct {
	Type string `json:"type"`
}

// ResetCheck closes out a check performed outside the automated flow or
// clears an AOG hold
func (h *Handler) ResetCheck(w http.ResponseWriter, r *http.Request) {
	registration := strings.ToUpper(chi.URLParam(r, "registration"))

	var req resetCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.fleetService.ResetCheck(r.Context(), registration, req.Type)
	if err != nil {
		h.logger.Warn("Check reset rejected",
			logger.String("registration", registration),
			logger.String("type", req.Type),
			logger.Error(err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are gone; nothing left to do
		return
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
