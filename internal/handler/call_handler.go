package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/internal/services/call"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// CallHandler handles call initiation requests from the contact form
type CallHandler struct {
	service *call.Service
}

// InitiateCallResponse is returned to the form submitter on success
type InitiateCallResponse struct {
	Message string `json:"message"`
	CallID  string `json:"callId"`
}

// NewCallHandler creates a new call initiation handler
func NewCallHandler(service *call.Service) *CallHandler {
	return &CallHandler{
		service: service,
	}
}

// SetupCallRoutes sets up the call initiation routes
func (h *CallHandler) SetupCallRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(ValidationMiddleware)

	apiRouter.HandleFunc("/initiate-call", h.HandleInitiateCall).Methods("POST")

	logger.Base().Info("call initiation routes registered")
}

// HandleInitiateCall handles initiating an outbound call
// POST /api/initiate-call
func (h *CallHandler) HandleInitiateCall(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Base().Error("failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var request call.InitiationRequest
	if err := json.Unmarshal(bodyBytes, &request); err != nil {
		logger.Base().Error("failed to parse initiation request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	callID, err := h.service.Initiate(r.Context(), request)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Provider failures surface as a generic message; the form
		// submitter gets no retry hint.
		http.Error(w, "Failed to initiate call", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(InitiateCallResponse{
		Message: "Call initiated successfully",
		CallID:  callID,
	})
}
