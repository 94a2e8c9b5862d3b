package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"modcheck/backend/internal/config"
	"modcheck/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by DequeueTrigger when nothing arrived in time.
var ErrQueueEmpty = errors.New("trigger queue is empty")

// EnqueueTrigger pushes a check request onto the Redis trigger list.
func (s *Service) EnqueueTrigger(ctx context.Context, t models.Trigger) error {
	if s.Redis == nil {
		return ErrNoRedis
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.Redis.LPush(ctx, config.TriggerQueueKey, payload).Err()
}

// DequeueTrigger blocks up to timeout for the next trigger, oldest first.
func (s *Service) DequeueTrigger(ctx context.Context, timeout time.Duration) (models.Trigger, error) {
	var t models.Trigger
	if s.Redis == nil {
		return t, ErrNoRedis
	}
	res, err := s.Redis.BRPop(ctx, timeout, config.TriggerQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return t, ErrQueueEmpty
	}
	if err != nil {
		return t, err
	}
	// res[0] is the key, res[1] the value
	err = json.Unmarshal([]byte(res[1]), &t)
	return t, err
}
