package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"public-clipboard/internal/domain"
	"public-clipboard/internal/repository"
)

// BoardRepository 把画板快照整体序列化为 JSON 字符串存进 Redis。
// 快照粒度是整块画板：单写者模型下不需要字段级的并发合并。
type BoardRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewBoardRepository(client *redis.Client, keyPrefix string) *BoardRepository {
	return &BoardRepository{client: client, keyPrefix: keyPrefix}
}

func (r *BoardRepository) key(boardID int) string {
	return fmt.Sprintf("%sboard:%d", r.keyPrefix, boardID)
}

func (r *BoardRepository) Load(ctx context.Context, boardID int) (*domain.Board, error) {
	raw, err := r.client.Get(ctx, r.key(boardID)).Result()
	if err == redis.Nil {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load board %d: %w", boardID, err)
	}
	var board domain.Board
	if err := json.Unmarshal([]byte(raw), &board); err != nil {
		return nil, fmt.Errorf("failed to decode board %d: %w", boardID, err)
	}
	if board.Objects == nil {
		board.Objects = []domain.TextObject{}
	}
	if board.History == nil {
		board.History = []domain.HistoryEntry{}
	}
	return &board, nil
}

func (r *BoardRepository) Save(ctx context.Context, board *domain.Board) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("failed to encode board %d: %w", board.ID, err)
	}
	if err := r.client.Set(ctx, r.key(board.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save board %d: %w", board.ID, err)
	}
	return nil
}
