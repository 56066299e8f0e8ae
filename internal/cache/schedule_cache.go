package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-documents/internal/domain"
)

// ScheduleCache keeps read-mostly copies of loan schedules.
type ScheduleCache interface {
	// Get returns the cached schedule; ok is false on a miss.
	Get(ctx context.Context, loanID string) (records []*domain.InstallmentRecord, ok bool, err error)
	Set(ctx context.Context, loanID string, records []*domain.InstallmentRecord) error
	Invalidate(ctx context.Context, loanID string) error
}

type redisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScheduleCache(client *redis.Client, ttl time.Duration) ScheduleCache {
	return &redisScheduleCache{client: client, ttl: ttl}
}

func scheduleKey(loanID string) string {
	return fmt.Sprintf("loan:%s:schedule", loanID)
}

func (c *redisScheduleCache) Get(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, bool, error) {
	payload, err := c.client.Get(ctx, scheduleKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []*domain.InstallmentRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode cached schedule of %s: %w", loanID, err)
	}
	return records, true, nil
}

func (c *redisScheduleCache) Set(ctx context.Context, loanID string, records []*domain.InstallmentRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(loanID), payload, c.ttl).Err()
}

func (c *redisScheduleCache) Invalidate(ctx context.Context, loanID string) error {
	return c.client.Del(ctx, scheduleKey(loanID)).Err()
}
