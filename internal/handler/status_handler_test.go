package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/callout-service/internal/adapters/email"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/internal/registry"
	"github.com/voicebridge/callout-service/internal/services/delivery"
	"github.com/voicebridge/callout-service/internal/services/transcript"
)

func TestStatusEndpoints(t *testing.T) {
	reg := registry.NewCallRegistry()
	reg.Put(domain.CallRecord{CallID: "call-1", Email: "ann@x.com"})

	mailer := delivery.NewMailer([]email.Transport{&recordingTransport{}})
	svc := transcript.NewService(&stubProvider{}, mailer, 1, time.Millisecond)

	router := mux.NewRouter()
	NewStatusHandler(reg, svc, "pod-1").SetupStatusRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 1, health["active_calls"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "pod-1", status["instance_id"])
	assert.EqualValues(t, 1, status["active_calls"])
	assert.EqualValues(t, 0, status["pending_chains"])
}
