package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"public-clipboard/internal/domain"
	"public-clipboard/internal/repository"
	"public-clipboard/internal/tasks"
)

// EventArchiveHandler 把队列里的分析事件写进数据库。
type EventArchiveHandler struct {
	repo repository.EventArchiveRepository
}

func NewEventArchiveHandler(repo repository.EventArchiveRepository) *EventArchiveHandler {
	if repo == nil {
		panic("EventArchiveRepository cannot be nil for EventArchiveHandler")
	}
	return &EventArchiveHandler{repo: repo}
}

// ProcessTask 处理单条归档任务。反序列化失败直接放弃重试。
func (h *EventArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EventArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode event archive payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.repo.SaveBatch(ctx, []domain.AnalyticsEvent{payload.Event}); err != nil {
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}
