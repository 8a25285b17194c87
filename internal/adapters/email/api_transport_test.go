package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/callout-service/internal/domain"
)

func TestAPITransportSend(t *testing.T) {
	var gotAuth string
	var gotBody apiSendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	transport := NewAPITransport(server.URL, "mail-key", "Call Follow-up", "noreply@x.com")
	require.Equal(t, "api", transport.Name())

	err := transport.Send(context.Background(), "ann@x.com", "Your transcript", "<p>hi</p>")
	require.NoError(t, err)

	assert.Equal(t, "Bearer mail-key", gotAuth)
	assert.Equal(t, "ann@x.com", gotBody.To)
	assert.Equal(t, "Your transcript", gotBody.Subject)
	assert.Equal(t, "<p>hi</p>", gotBody.HTML)
	assert.Equal(t, "noreply@x.com", gotBody.FromEmail)
}

func TestAPITransportUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	transport := NewAPITransport(server.URL, "mail-key", "Call Follow-up", "noreply@x.com")

	err := transport.Send(context.Background(), "ann@x.com", "Your transcript", "<p>hi</p>")
	assert.ErrorIs(t, err, domain.ErrDelivery)
}

func TestAPITransportUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	transport := NewAPITransport(server.URL, "mail-key", "Call Follow-up", "noreply@x.com")

	err := transport.Send(context.Background(), "ann@x.com", "Your transcript", "<p>hi</p>")
	assert.ErrorIs(t, err, domain.ErrDelivery)
}
