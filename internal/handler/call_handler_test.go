package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/callout-service/internal/adapters/email"
	"github.com/voicebridge/callout-service/internal/dedup"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/internal/registry"
	callsvc "github.com/voicebridge/callout-service/internal/services/call"
	"github.com/voicebridge/callout-service/internal/services/delivery"
	"github.com/voicebridge/callout-service/internal/services/transcript"
)

// fullProvider stubs both provider operations for end-to-end flows.
type fullProvider struct {
	stubProvider
	callID    string
	createErr error
}

func (p *fullProvider) CreatePhoneCall(context.Context, string, string, string, map[string]string) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.callID, nil
}

func newCallRouter(provider *fullProvider, reg *registry.CallRegistry) *mux.Router {
	svc := callsvc.NewService(provider, reg, "+15550001111", "agent-1", "+1")
	router := mux.NewRouter()
	NewCallHandler(svc).SetupCallRoutes(router)
	return router
}

func postJSON(t *testing.T, router *mux.Router, path, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInitiateCallSuccess(t *testing.T) {
	reg := registry.NewCallRegistry()
	router := newCallRouter(&fullProvider{callID: "call-abc"}, reg)

	rec := postJSON(t, router, "/api/initiate-call", `{"name": "Ann", "phone": "9998887776", "email": "ann@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InitiateCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "call-abc", resp.CallID)
	assert.NotEmpty(t, resp.Message)

	record, ok := reg.Get("call-abc")
	require.True(t, ok)
	assert.Equal(t, "ann@x.com", record.Email)
}

func TestInitiateCallValidationFailure(t *testing.T) {
	reg := registry.NewCallRegistry()
	router := newCallRouter(&fullProvider{callID: "call-abc"}, reg)

	rec := postJSON(t, router, "/api/initiate-call", `{"name": "Ann", "email": "ann@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, reg.Count())
}

func TestInitiateCallMalformedBody(t *testing.T) {
	reg := registry.NewCallRegistry()
	router := newCallRouter(&fullProvider{callID: "call-abc"}, reg)

	rec := postJSON(t, router, "/api/initiate-call", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateCallProviderFailure(t *testing.T) {
	reg := registry.NewCallRegistry()
	router := newCallRouter(&fullProvider{createErr: errors.New("upstream 500")}, reg)

	rec := postJSON(t, router, "/api/initiate-call", `{"name": "Ann", "phone": "9998887776", "email": "ann@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// The provider's failure detail never reaches the form submitter.
	assert.NotContains(t, rec.Body.String(), "upstream")
}

func TestInitiateCallWrongContentType(t *testing.T) {
	reg := registry.NewCallRegistry()
	router := newCallRouter(&fullProvider{callID: "call-abc"}, reg)

	req := httptest.NewRequest(http.MethodPost, "/api/initiate-call", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// TestEndToEndTranscriptDelivery walks the whole pipeline: form intake,
// call_ended webhook, transcript retrieval, and email delivery.
func TestEndToEndTranscriptDelivery(t *testing.T) {
	provider := &fullProvider{callID: "call-e2e"}
	provider.transcriptAfter = 1
	provider.transcript = "Agent: Hello Ann"

	reg := registry.NewCallRegistry()
	transport := &recordingTransport{}
	mailer := delivery.NewMailer([]email.Transport{transport})
	transcriptSvc := transcript.NewService(provider, mailer, 5, time.Millisecond)

	callService := callsvc.NewService(provider, reg, "+15550001111", "agent-1", "+1")

	router := mux.NewRouter()
	NewCallHandler(callService).SetupCallRoutes(router)
	NewWebhookHandler(reg, transcriptSvc, dedup.NewGuard(nil)).SetupWebhookRoutes(router)

	// Intake
	rec := postJSON(t, router, "/api/initiate-call", `{"name": "Ann", "phone": "9998887776", "email": "ann@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InitiateCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "call-e2e", resp.CallID)
	require.Equal(t, 1, reg.Count())

	// Call ends
	rec = postJSON(t, router, "/", endedPayload("call-e2e", domain.CallStatusEnded, true))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return transport.sendCount() == 1 && reg.Count() == 0
	}, 2*time.Second, time.Millisecond)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, []string{"ann@x.com"}, transport.to)
	assert.Contains(t, transport.messages[0], "call-e2e")
	assert.Contains(t, transport.messages[0], "Agent: Hello Ann")
}
