package call

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/voicebridge/callout-service/internal/adapters/voice"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/internal/registry"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// InitiationRequest carries the contact-form fields for a new call.
type InitiationRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Service initiates outbound calls through the voice provider and registers
// them for transcript follow-up.
type Service struct {
	provider    voice.Provider
	registry    *registry.CallRegistry
	fromNumber  string
	agentID     string
	countryCode string
}

// NewService creates the call initiation service.
func NewService(provider voice.Provider, reg *registry.CallRegistry, fromNumber, agentID, countryCode string) *Service {
	if countryCode == "" {
		countryCode = "+1"
	}
	return &Service{
		provider:    provider,
		registry:    reg,
		fromNumber:  fromNumber,
		agentID:     agentID,
		countryCode: countryCode,
	}
}

// Initiate validates the form input, requests an outbound call from the
// provider, and registers the resulting call ID. Validation failures are
// terminal and user-visible; provider failures surface as a generic error.
func (s *Service) Initiate(ctx context.Context, req InitiationRequest) (string, error) {
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Email) == "" {
		return "", fmt.Errorf("%w: phone and email are required", domain.ErrValidation)
	}

	phone := s.normalizePhone(req.Phone)

	metadata := map[string]string{
		"name":  req.Name,
		"email": req.Email,
		"phone": phone,
	}

	callID, err := s.provider.CreatePhoneCall(ctx, s.fromNumber, phone, s.agentID, metadata)
	if err != nil {
		logger.Base().Error("provider rejected call creation", zap.String("to", phone), zap.Error(err))
		return "", fmt.Errorf("%w: call creation failed", domain.ErrProvider)
	}

	s.registry.Put(domain.CallRecord{
		CallID:    callID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     phone,
		CreatedAt: time.Now(),
	})

	logger.Base().Info("call registered for follow-up",
		zap.String("call_id", callID),
		zap.String("to", phone),
	)
	return callID, nil
}

// normalizePhone strips non-digit characters and prefixes the configured
// country code. A number that already carries the prefix is left alone.
func (s *Service) normalizePhone(raw string) string {
	if strings.HasPrefix(strings.TrimSpace(raw), s.countryCode) {
		return strings.TrimSpace(raw)
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	return s.countryCode + digits
}
