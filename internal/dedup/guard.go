package dedup

import (
	"context"
	"time"

	"github.com/voicebridge/callout-service/pkg/logger"
	"github.com/voicebridge/callout-service/pkg/redis"
	"go.uber.org/zap"
)

// eventTTL bounds how long a processed call ID is remembered. Provider
// redeliveries arrive within minutes, not hours.
const eventTTL = 30 * time.Minute

// Guard filters redelivered call_ended webhooks. FirstDelivery reports
// whether this instance (or, with Redis, this fleet) has already begun
// processing the given call.
type Guard interface {
	FirstDelivery(ctx context.Context, callID string) bool
}

// NewGuard returns a Redis-backed guard when a Redis service is available
// and a noop guard otherwise. Without Redis the registry's own claim step
// still deduplicates within the process.
func NewGuard(redisSvc redis.RedisServiceInterface) Guard {
	if redisSvc == nil {
		return noopGuard{}
	}
	return &redisGuard{redisSvc: redisSvc}
}

type redisGuard struct {
	redisSvc redis.RedisServiceInterface
}

func (g *redisGuard) FirstDelivery(ctx context.Context, callID string) bool {
	key := g.redisSvc.GenerateKey(redis.WEBHOOK_EVENT, callID)
	set, err := g.redisSvc.SetIfAbsent(ctx, key, "1", eventTTL)
	if err != nil {
		// Redis trouble must not drop webhooks; fall back to letting the
		// registry claim decide.
		logger.Base().Warn("dedup guard unavailable, allowing event",
			zap.String("call_id", callID),
			zap.Error(err),
		)
		return true
	}
	if !set {
		logger.Base().Info("duplicate webhook delivery filtered", zap.String("call_id", callID))
	}
	return set
}

type noopGuard struct{}

func (noopGuard) FirstDelivery(context.Context, string) bool { return true }
