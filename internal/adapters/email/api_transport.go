package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// APITransport sends mail through a transactional-email HTTP API with a
// bearer key.
type APITransport struct {
	BaseURL    string
	APIKey     string
	FromName   string
	FromEmail  string
	HTTPClient *http.Client
}

type apiSendRequest struct {
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
}

// NewAPITransport creates a transactional-email API transport.
func NewAPITransport(baseURL, apiKey, fromName, fromEmail string) *APITransport {
	return &APITransport{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		FromName:  fromName,
		FromEmail: fromEmail,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (t *APITransport) Name() string {
	return "api"
}

// Send posts one message to the email API.
func (t *APITransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	url := fmt.Sprintf("%s/v1/send", t.BaseURL)

	request := apiSendRequest{
		FromName:  t.FromName,
		FromEmail: t.FromEmail,
		To:        to,
		Subject:   subject,
		HTML:      htmlBody,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %v", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.Base().Error("email API error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(body))),
		)
		return fmt.Errorf("%w: email API returned %d", domain.ErrDelivery, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Base().Info("email sent via API transport", zap.String("to", to))
	return nil
}
