package transcript

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicebridge/callout-service/internal/adapters/voice"
	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/internal/services/delivery"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// retryState tracks one retrieval chain. The provider finalizes
// transcripts asynchronously after call end, so each chain polls with a
// fixed interval until the transcript shows up or the budget runs out.
type retryState struct {
	callID      string
	attempt     int
	maxAttempts int
	delay       time.Duration
}

// Service runs bounded transcript-retrieval chains. Chains are launched
// asynchronously so webhook responses are never held up by polling, and
// every chain is bound to the service context so shutdown cancels pending
// retries.
type Service struct {
	provider    voice.Provider
	mailer      *delivery.Mailer
	maxAttempts int
	delay       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending atomic.Int64
}

// NewService creates the transcript retrieval service.
func NewService(provider voice.Provider, mailer *delivery.Mailer, maxAttempts int, delay time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if delay <= 0 {
		delay = 15 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		provider:    provider,
		mailer:      mailer,
		maxAttempts: maxAttempts,
		delay:       delay,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// PendingChains returns the number of retrieval chains currently running.
func (s *Service) PendingChains() int {
	return int(s.pending.Load())
}

// Shutdown cancels pending chains and waits for them to wind down.
func (s *Service) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

// Start launches a retrieval chain for the given call in the background.
// onComplete runs exactly once when the chain finishes, whether the
// transcript was delivered or the chain gave up.
func (s *Service) Start(record domain.CallRecord, onComplete func()) {
	s.wg.Add(1)
	s.pending.Add(1)

	go func() {
		defer s.wg.Done()
		defer s.pending.Add(-1)
		if onComplete != nil {
			defer onComplete()
		}
		s.Run(s.ctx, record)
	}()
}

// Run executes one retrieval chain to completion. Exported separately from
// Start so the chain's attempt accounting is testable synchronously.
func (s *Service) Run(ctx context.Context, record domain.CallRecord) {
	state := &retryState{
		callID:      record.CallID,
		maxAttempts: s.maxAttempts,
		delay:       s.delay,
	}

	for {
		state.attempt++

		detail, err := s.provider.GetCall(ctx, state.callID)
		if err != nil {
			// A fetch failure is terminal for the chain; remaining
			// budget is not spent polling a broken endpoint.
			logger.Base().Error("transcript fetch failed, abandoning chain",
				zap.String("call_id", state.callID),
				zap.Int("attempt", state.attempt),
				zap.Error(err),
			)
			s.mailer.DeliverDegraded(ctx, record)
			return
		}

		if strings.TrimSpace(detail.Transcript) != "" {
			logger.Base().Info("transcript available",
				zap.String("call_id", state.callID),
				zap.Int("attempt", state.attempt),
			)
			if err := s.mailer.DeliverTranscript(ctx, record, detail); err != nil {
				logger.Base().Error("transcript delivery failed",
					zap.String("call_id", state.callID),
					zap.Error(err),
				)
			}
			return
		}

		if state.attempt >= state.maxAttempts {
			logger.Base().Warn("transcript never became available, giving up",
				zap.String("call_id", state.callID),
				zap.Int("attempts", state.attempt),
			)
			s.mailer.DeliverDegraded(ctx, record)
			return
		}

		logger.Base().Info("transcript not ready, scheduling retry",
			zap.String("call_id", state.callID),
			zap.Int("attempt", state.attempt),
			zap.Duration("delay", state.delay),
		)

		timer := time.NewTimer(state.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Base().Info("retrieval chain cancelled",
				zap.String("call_id", state.callID),
				zap.Int("attempt", state.attempt),
			)
			return
		case <-timer.C:
		}
	}
}
