package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptsTTL = 48 * time.Hour

// Attempts counts dispatch attempts per offer in Redis so a channel
// misconfiguration cannot make the scheduler retry one offer forever.
// Counters expire on their own; a successfully posted offer simply stops
// being selected, so no explicit reset is needed.
type Attempts struct {
	rdb *redis.Client
}

// NewAttempts returns a Redis-backed attempt counter.
func NewAttempts(rdb *redis.Client) *Attempts {
	return &Attempts{rdb: rdb}
}

func key(offerID string) string { return "dispatch:attempts:" + offerID }

// Count returns the attempts recorded so far for the offer.
func (a *Attempts) Count(ctx context.Context, offerID string) (int, error) {
	n, err := a.rdb.Get(ctx, key(offerID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("attempts get: %w", err)
	}
	return n, nil
}

// Bump increments the offer's counter and returns the new value.
func (a *Attempts) Bump(ctx context.Context, offerID string) (int, error) {
	pipe := a.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key(offerID))
	pipe.Expire(ctx, key(offerID), attemptsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("attempts bump: %w", err)
	}
	return int(incr.Val()), nil
}
