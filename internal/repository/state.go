package repository

import (
	"context"
	"time"

	"public-clipboard/internal/domain"
)

// BoardRepository 负责画板快照的加载与保存。
type BoardRepository interface {
	// Load 加载画板快照，不存在时返回 ErrNotFound。
	Load(ctx context.Context, boardID int) (*domain.Board, error)
	// Save 覆盖写入画板快照。
	Save(ctx context.Context, board *domain.Board) error
}

// BanRepository 负责每块画板的封禁名单。
type BanRepository interface {
	// Ban 把哈希后的地址加入画板的封禁集合并刷新集合的过期时间，
	// 同时写入一条审计记录。
	Ban(ctx context.Context, boardID int, hashedIP string, duration time.Duration) error
	// IsBanned 查询哈希地址是否在画板封禁集合中。
	IsBanned(ctx context.Context, boardID int, hashedIP string) (bool, error)
}

// EventRepository 负责分析事件流。
type EventRepository interface {
	// Push 把事件追加到列表头部并裁剪到上限。
	Push(ctx context.Context, event domain.AnalyticsEvent) error
}

// EventArchiveRepository 把事件批量落库，供离线分析。
type EventArchiveRepository interface {
	SaveBatch(ctx context.Context, events []domain.AnalyticsEvent) error
}
