package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/voicebridge/callout-service/internal/dedup"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/internal/registry"
	"github.com/voicebridge/callout-service/internal/services/transcript"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// WebhookHandler handles call lifecycle webhooks from the voice provider.
// Any successfully-parsed envelope is acknowledged with 200 regardless of
// what happens downstream: the acknowledgment means the webhook was
// accepted, not that transcript delivery succeeded. Only payload-shape
// failures produce an error response.
type WebhookHandler struct {
	registry      *registry.CallRegistry
	transcriptSvc *transcript.Service
	guard         dedup.Guard
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reg *registry.CallRegistry, transcriptSvc *transcript.Service, guard dedup.Guard) *WebhookHandler {
	return &WebhookHandler{
		registry:      reg,
		transcriptSvc: transcriptSvc,
		guard:         guard,
	}
}

// SetupWebhookRoutes sets up the provider webhook route
func (h *WebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/", h.HandleWebhook).Methods("POST")

	logger.Base().Info("provider webhook route registered")
}

// sendOKResponse sends a standard OK response
func (h *WebhookHandler) sendOKResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// HandleWebhook handles a call lifecycle event from the provider
// POST /
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Base().Error("failed to read webhook body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var event domain.WebhookEvent
	if err := json.Unmarshal(bodyBytes, &event); err != nil {
		logger.Base().Error("failed to parse webhook payload", zap.Error(err))
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	// An envelope without event, call, or call_id is malformed. A 400 here
	// is the only signal the provider's redelivery mechanism gets.
	if err := event.Validate(); err != nil {
		logger.Base().Error("webhook payload rejected", zap.Error(err))
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	logger.Base().Info("webhook received",
		zap.String("event", event.Event),
		zap.String("call_id", event.Call.CallID),
		zap.String("call_status", event.Call.CallStatus),
	)

	switch event.Event {
	case domain.EventCallStarted:
		// Informational only
	case domain.EventCallAnalyzed:
		// Informational only
	case domain.EventCallEnded:
		h.handleCallEnded(r, &event)
	default:
		logger.Base().Info("ignoring unknown webhook event", zap.String("event", event.Event))
	}

	h.sendOKResponse(w)
}

// handleCallEnded processes the terminal event for a call. A completed call
// kicks off the transcript retrieval chain; a failed or abandoned call just
// drops its registry entry.
func (h *WebhookHandler) handleCallEnded(r *http.Request, event *domain.WebhookEvent) {
	callID := event.Call.CallID

	if !event.Completed() {
		logger.Base().Info("call ended without completing, pruning registry",
			zap.String("call_id", callID),
			zap.String("call_status", event.Call.CallStatus),
			zap.String("disconnection_reason", event.Call.DisconnectionReason),
		)
		h.registry.Delete(callID)
		return
	}

	if !h.guard.FirstDelivery(r.Context(), callID) {
		return
	}

	record, ok := h.registry.Claim(callID)
	if !ok {
		// Already being processed, or never registered here. Both are
		// expected with provider redelivery and multi-instance routing.
		logger.Base().Warn("no claimable record for ended call", zap.String("call_id", callID))
		return
	}

	logger.Base().Info("call completed, starting transcript retrieval",
		zap.String("call_id", callID),
		zap.String("email", record.Email),
	)

	h.transcriptSvc.Start(record, func() {
		h.registry.Delete(callID)
	})
}
