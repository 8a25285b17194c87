package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider is the surface of the voice-AI platform the service depends on.
// The transcript service and initiation handler are written against this
// interface so tests can stub the platform.
type Provider interface {
	CreatePhoneCall(ctx context.Context, from, to, agentID string, metadata map[string]string) (string, error)
	GetCall(ctx context.Context, callID string) (*domain.CallDetail, error)
}

// Client talks to the voice provider's REST API with a bearer credential.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// limiter caps provider round-trips so many concurrent retrieval
	// chains cannot hammer the API.
	limiter *rate.Limiter
}

// createCallRequest is the payload for a new outbound phone call.
type createCallRequest struct {
	FromNumber      string            `json:"from_number"`
	ToNumber        string            `json:"to_number"`
	OverrideAgentID string            `json:"override_agent_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// createCallResponse carries the provider-issued call ID.
type createCallResponse struct {
	CallID string `json:"call_id"`
}

// NewClient creates a new voice provider API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// CreatePhoneCall requests a new outbound call and returns the call ID
// issued by the provider.
func (c *Client) CreatePhoneCall(ctx context.Context, from, to, agentID string, metadata map[string]string) (string, error) {
	url := fmt.Sprintf("%s/v2/create-phone-call", c.BaseURL)

	request := createCallRequest{
		FromNumber:      from,
		ToNumber:        to,
		OverrideAgentID: agentID,
		Metadata:        metadata,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	logger.Base().Info("creating outbound call via provider API", zap.String("to", to))

	bodyBytes, err := c.do(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	var response createCallResponse
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		return "", fmt.Errorf("%w: failed to decode create-call response: %v", domain.ErrProvider, err)
	}
	if response.CallID == "" {
		return "", fmt.Errorf("%w: create-call response missing call_id", domain.ErrProvider)
	}

	logger.Base().Info("call created", zap.String("call_id", response.CallID))
	return response.CallID, nil
}

// GetCall fetches call detail by call ID. The transcript field stays empty
// until the provider finishes post-call processing.
func (c *Client) GetCall(ctx context.Context, callID string) (*domain.CallDetail, error) {
	url := fmt.Sprintf("%s/v2/get-call/%s", c.BaseURL, callID)

	bodyBytes, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var detail domain.CallDetail
	if err := json.Unmarshal(bodyBytes, &detail); err != nil {
		return nil, fmt.Errorf("%w: failed to decode get-call response: %v", domain.ErrProvider, err)
	}

	return &detail, nil
}

// do executes one authenticated provider request and returns the body.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrProvider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Base().Error("provider API error",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(bodyBytes)),
		)
		return nil, fmt.Errorf("%w: provider returned %d", domain.ErrProvider, resp.StatusCode)
	}

	return bodyBytes, nil
}
