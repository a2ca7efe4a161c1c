// Package blackout exposes the incident manager over HTTP. Handlers only
// translate between JSON and manager calls; all domain validation lives in
// the manager.
package blackout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/powergrid-labs/blackoutd/core/incident"
	"github.com/powergrid-labs/blackoutd/core/logger"
	"github.com/powergrid-labs/blackoutd/core/model"
	"github.com/powergrid-labs/blackoutd/internal/eventbus"
)

// Handler serves the blackout management API.
type Handler struct {
	manager *incident.Manager
	bus     eventbus.EventBus
	log     logger.Logger
}

// NewHandler creates a Handler. The bus may be nil, which disables the event
// stream endpoint.
func NewHandler(manager *incident.Manager, bus eventbus.EventBus, log logger.Logger) *Handler {
	return &Handler{manager: manager, bus: bus, log: log}
}

// Routes returns the ServeMux with all API endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/blackout/initial-state", h.initialState)
	mux.HandleFunc("GET /api/v1/blackout/zones/{id}/details", h.zoneDetails)
	mux.HandleFunc("POST /api/v1/blackout/simulate", h.simulate)
	mux.HandleFunc("POST /api/v1/blackout/incidents/{id}/manual-allocate", h.manualAllocate)
	mux.HandleFunc("POST /api/v1/blackout/incidents/{id}/resolve", h.resolve)
	mux.HandleFunc("GET /api/v1/blackout/history", h.history)
	if h.bus != nil {
		mux.HandleFunc("GET /api/v1/blackout/events", h.stream)
	}
	return mux
}

func (h *Handler) initialState(w http.ResponseWriter, r *http.Request) {
	st := h.manager.GetState()
	writeJSON(w, http.StatusOK, map[string]any{
		"zones":                  st.Zones,
		"active_incidents":       st.ActiveIncidents,
		"total_grid_capacity_mw": st.Snapshot.TotalCapacityMW,
		"current_grid_load_mw":   st.Snapshot.TotalLoadMW,
		"available_backup_mw":    st.Snapshot.AvailableBackupMW,
		"grid_health_score":      st.Snapshot.GridHealthScore,
	})
}

func (h *Handler) zoneDetails(w http.ResponseWriter, r *http.Request) {
	zone, err := h.manager.Zone(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	populationAtRisk := 0
	if zone.State != model.FullPower {
		populationAtRisk = zone.AffectedPopulation
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zone": zone,
		"real_time_metrics": map[string]any{
			"load_factor":            zone.LoadFactor(),
			"backup_ready":           zone.BackupAvailable,
			"population_at_risk":     populationAtRisk,
			"critical_systems_count": len(zone.CriticalFacilities),
		},
	})
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req incident.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	res, err := h.manager.Simulate(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) manualAllocate(w http.ResponseWriter, r *http.Request) {
	var allocations map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&allocations); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	zones, err := h.manager.ManualAllocate(r.PathValue("id"), allocations)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	inc, err := h.manager.Resolve(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incident": inc})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"incidents": h.manager.History()})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, incident.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, incident.ErrUnknownZone), errors.Is(err, incident.ErrUnknownIncident):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing sensible left to do.
		return
	}
}
