package queue

import (
	"context"
	"errors"
	"time"

	"modcheck/backend/internal/models"
	"modcheck/backend/internal/storage"
)

// TriggerStore is the Redis list behind RedisQueue.
type TriggerStore interface {
	EnqueueTrigger(ctx context.Context, t models.Trigger) error
	DequeueTrigger(ctx context.Context, timeout time.Duration) (models.Trigger, error)
}

// RedisQueue is a Source and Publisher over the storage trigger list.
type RedisQueue struct {
	Store   TriggerStore
	Timeout time.Duration
}

func NewRedisQueue(store TriggerStore, timeout time.Duration) *RedisQueue {
	return &RedisQueue{Store: store, Timeout: timeout}
}

func (q *RedisQueue) Publish(ctx context.Context, t models.Trigger) error {
	return q.Store.EnqueueTrigger(ctx, t)
}

func (q *RedisQueue) Next(ctx context.Context) (models.Trigger, error) {
	t, err := q.Store.DequeueTrigger(ctx, q.Timeout)
	if errors.Is(err, storage.ErrQueueEmpty) {
		return t, ErrEmpty
	}
	return t, err
}

func (q *RedisQueue) Close() error { return nil }
