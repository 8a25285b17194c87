package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/voicebridge/callout-service/internal/adapters/email"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// Mailer formats transcript emails and pushes them through the configured
// transports, primary first. When every transport rejects the full email it
// sends a short degraded notification instead; a failure of the degraded
// send is logged and absorbed, never propagated.
type Mailer struct {
	transports []email.Transport
}

// NewMailer creates a mailer over the given transports in preference order.
func NewMailer(transports []email.Transport) *Mailer {
	return &Mailer{transports: transports}
}

// DeliverTranscript sends the full transcript email for one completed call.
// It returns an error only when the transcript email could not be sent
// through any transport; the degraded fallback has already been attempted
// by then.
func (m *Mailer) DeliverTranscript(ctx context.Context, record domain.CallRecord, detail *domain.CallDetail) error {
	body, err := renderTranscriptEmail(record.Name, detail)
	if err != nil {
		logger.Base().Error("failed to render transcript email", zap.String("call_id", record.CallID), zap.Error(err))
		m.DeliverDegraded(ctx, record)
		return err
	}

	subject := fmt.Sprintf("Your call transcript (%s)", record.CallID)
	if err := m.sendWithFailover(ctx, record.Email, subject, body); err != nil {
		logger.Base().Error("all transports failed for transcript email",
			zap.String("call_id", record.CallID),
			zap.Error(err),
		)
		m.DeliverDegraded(ctx, record)
		return err
	}

	logger.Base().Info("transcript delivered",
		zap.String("call_id", record.CallID),
		zap.String("to", record.Email),
	)
	return nil
}

// DeliverDegraded sends the short "something went wrong" notification. The
// reference ID gives support a handle on the failed call without exposing
// internals to the recipient.
func (m *Mailer) DeliverDegraded(ctx context.Context, record domain.CallRecord) {
	reference := uuid.NewString()
	body, err := renderDegradedEmail(record.Name, reference)
	if err != nil {
		logger.Base().Error("failed to render degraded email", zap.String("call_id", record.CallID), zap.Error(err))
		return
	}

	if err := m.sendWithFailover(ctx, record.Email, "About your recent call", body); err != nil {
		// Total failure: nothing reached the recipient. Logged only.
		logger.Base().Error("degraded notification could not be sent",
			zap.String("call_id", record.CallID),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return
	}

	logger.Base().Warn("degraded notification sent",
		zap.String("call_id", record.CallID),
		zap.String("reference", reference),
	)
}

// sendWithFailover tries each transport in order and stops at the first
// success.
func (m *Mailer) sendWithFailover(ctx context.Context, to, subject, body string) error {
	if len(m.transports) == 0 {
		return fmt.Errorf("%w: no transports configured", domain.ErrDelivery)
	}

	var lastErr error
	for _, t := range m.transports {
		if err := t.Send(ctx, to, subject, body); err != nil {
			logger.Base().Warn("transport failed, trying next",
				zap.String("transport", t.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrDelivery, lastErr)
}
