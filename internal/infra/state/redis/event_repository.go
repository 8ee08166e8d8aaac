package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"public-clipboard/internal/domain"
)

// EventRepository 把分析事件暂存在 Redis 列表里，最新的在表头。
// 列表被裁剪到固定上限，事件丢失可以接受（尽力而为的遥测）。
type EventRepository struct {
	client    *redis.Client
	keyPrefix string
	limit     int64
}

func NewEventRepository(client *redis.Client, keyPrefix string, limit int) *EventRepository {
	return &EventRepository{client: client, keyPrefix: keyPrefix, limit: int64(limit)}
}

func (r *EventRepository) key() string {
	return r.keyPrefix + "events"
}

func (r *EventRepository) Push(ctx context.Context, event domain.AnalyticsEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key(), data)
	pipe.LTrim(ctx, r.key(), 0, r.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push event: %w", err)
	}
	return nil
}

