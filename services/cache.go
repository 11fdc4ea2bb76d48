package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"debt-splitter/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BalanceCache keeps group settlement previews in Redis. A nil cache or a nil
// client turns every method into a no-op, and Redis errors only cost a miss.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewBalanceCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *BalanceCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &BalanceCache{client: client, ttl: ttl, log: log.Named("cache")}
}

func cacheKey(groupID uuid.UUID) string {
	return "group:" + groupID.String() + ":settlement"
}

// generationKey is bumped by every invalidation. A report is only stored when
// the generation it was computed under is still current.
func generationKey(groupID uuid.UUID) string {
	return "group:" + groupID.String() + ":generation"
}

func (c *BalanceCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *BalanceCache) Get(ctx context.Context, groupID uuid.UUID) (*models.GroupSettlementReport, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, cacheKey(groupID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.Stringer("group_id", groupID), zap.Error(err))
		}
		return nil, false
	}

	var report models.GroupSettlementReport
	if err := json.Unmarshal(raw, &report); err != nil {
		c.log.Warn("dropping unreadable cache entry", zap.Stringer("group_id", groupID), zap.Error(err))
		c.Invalidate(ctx, groupID)
		return nil, false
	}
	return &report, true
}

// Generation returns the group's current cache generation. Read it before
// loading the data a report is computed from.
func (c *BalanceCache) Generation(ctx context.Context, groupID uuid.UUID) int64 {
	if !c.enabled() {
		return 0
	}
	gen, err := c.client.Get(ctx, generationKey(groupID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("cache generation read failed", zap.Stringer("group_id", groupID), zap.Error(err))
		return -1
	}
	return gen
}

// Set stores report unless the group was invalidated after generation gen.
func (c *BalanceCache) Set(ctx context.Context, groupID uuid.UUID, gen int64, report *models.GroupSettlementReport) {
	if !c.enabled() || report == nil || gen < 0 {
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		c.log.Warn("cache encode failed", zap.Stringer("group_id", groupID), zap.Error(err))
		return
	}

	genKey := generationKey(groupID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleReport
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(groupID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleReport), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("skipping stale report", zap.Stringer("group_id", groupID))
	default:
		c.log.Warn("cache write failed", zap.Stringer("group_id", groupID), zap.Error(err))
	}
}

func (c *BalanceCache) Invalidate(ctx context.Context, groupID uuid.UUID) {
	if !c.enabled() {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(groupID))
		pipe.Del(ctx, cacheKey(groupID))
		return nil
	})
	if err != nil {
		c.log.Warn("cache invalidate failed", zap.Stringer("group_id", groupID), zap.Error(err))
	}
}

var errStaleReport = errors.New("group changed while the report was computed")
