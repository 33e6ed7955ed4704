package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	replayPrefix     = "webhook:ref:v1:"
	inProgressMarker = "__in_progress__"
	processedMarker  = "processed"
	replayOpTimeout  = 2 * time.Second
)

// ReplayGuard short-circuits duplicate webhook deliveries by reserving the
// provider reference in Redis before processing begins. The database dedup
// check remains authoritative; the guard exists to stop concurrent
// redeliveries of the same event from racing into the store. When Redis is
// unavailable the guard fails open.
type ReplayGuard struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewReplayGuard constructs a guard over the provided Redis client.
func NewReplayGuard(cache *redis.Client, ttl time.Duration, logger *slog.Logger) *ReplayGuard {
	return &ReplayGuard{cache: cache, ttl: ttl, logger: logger}
}

// Begin reserves the reference for processing. It returns false when the
// reference was already reserved or processed, in which case the delivery
// should be acknowledged without action.
func (g *ReplayGuard) Begin(ctx context.Context, reference string) bool {
	if g == nil || g.cache == nil || reference == "" {
		return true
	}

	opCtx, cancel := context.WithTimeout(ctx, replayOpTimeout)
	defer cancel()

	ok, err := g.cache.SetNX(opCtx, replayPrefix+reference, inProgressMarker, g.ttl).Result()
	if err != nil {
		g.logger.Warn("replay guard unavailable, continuing without it", slog.String("reference", reference), slog.Any("error", err))
		return true
	}
	return ok
}

// Finish records the processing outcome. A processed reference stays
// reserved until the TTL lapses; a failed one is released so the provider's
// redelivery can be retried.
func (g *ReplayGuard) Finish(ctx context.Context, reference string, processed bool) {
	if g == nil || g.cache == nil || reference == "" {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, replayOpTimeout)
	defer cancel()

	key := replayPrefix + reference
	if processed {
		if err := g.cache.Set(opCtx, key, processedMarker, g.ttl).Err(); err != nil {
			g.logger.Warn("replay guard persist failed", slog.String("reference", reference), slog.Any("error", err))
		}
		return
	}
	if err := g.cache.Del(opCtx, key).Err(); err != nil {
		g.logger.Warn("replay guard release failed", slog.String("reference", reference), slog.Any("error", err))
	}
}
