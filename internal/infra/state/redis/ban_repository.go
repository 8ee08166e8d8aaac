package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"public-clipboard/internal/domain"
)

// BanRepository 用 Redis 集合维护每块画板的封禁名单。
// 过期时间挂在整个集合上：每次封禁都会刷新集合 TTL，
// 也就是说旧的封禁会随最近一次封禁一起续期。这是有意保留的粗粒度语义。
type BanRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewBanRepository(client *redis.Client, keyPrefix string) *BanRepository {
	return &BanRepository{client: client, keyPrefix: keyPrefix}
}

func (r *BanRepository) setKey(boardID int) string {
	return fmt.Sprintf("%sbanned_ips:%d", r.keyPrefix, boardID)
}

func (r *BanRepository) auditKey() string {
	return r.keyPrefix + "ban_audit"
}

func (r *BanRepository) Ban(ctx context.Context, boardID int, hashedIP string, duration time.Duration) error {
	record := domain.BanRecord{
		BoardID:    boardID,
		IP:         hashedIP,
		DurationMs: duration.Milliseconds(),
	}
	member, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode ban record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.setKey(boardID), hashedIP)
	pipe.Expire(ctx, r.setKey(boardID), duration)
	pipe.ZAdd(ctx, r.auditKey(), &redis.Z{
		Score:  float64(domain.NowMillis()),
		Member: member,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ban on board %d: %w", boardID, err)
	}
	return nil
}

func (r *BanRepository) IsBanned(ctx context.Context, boardID int, hashedIP string) (bool, error) {
	banned, err := r.client.SIsMember(ctx, r.setKey(boardID), hashedIP).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check ban on board %d: %w", boardID, err)
	}
	return banned, nil
}
