package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/voicebridge/callout-service/internal/registry"
	"github.com/voicebridge/callout-service/internal/services/transcript"
)

// StatusHandler exposes the health and introspection endpoints
type StatusHandler struct {
	registry      *registry.CallRegistry
	transcriptSvc *transcript.Service
	instanceID    string
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(reg *registry.CallRegistry, transcriptSvc *transcript.Service, instanceID string) *StatusHandler {
	return &StatusHandler{
		registry:      reg,
		transcriptSvc: transcriptSvc,
		instanceID:    instanceID,
	}
}

// SetupStatusRoutes sets up health and status routes
func (h *StatusHandler) SetupStatusRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.handleHealth).Methods("GET")
	router.HandleFunc("/api/status", h.handleStatus).Methods("GET")
}

func (h *StatusHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       "healthy",
		"active_calls": h.registry.Count(),
	})
}

func (h *StatusHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"instance_id":    h.instanceID,
		"active_calls":   h.registry.Count(),
		"pending_chains": h.transcriptSvc.PendingChains(),
	})
}
